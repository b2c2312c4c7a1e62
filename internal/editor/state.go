package editor

import (
	"slices"

	"github.com/jonathan/script-generator/internal/types"
)

// Phase is the lifecycle of the current generation job.
type Phase string

// Job phases: idle → submitting → polling → done | errored.
const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseDone       Phase = "done"
	PhaseErrored    Phase = "errored"
)

// State is a snapshot of everything the editor shows.
type State struct {
	Input              string
	HighlightedConcept string
	PreviousTopic      string
	TemplateID         string
	ExportFormat       string

	Script     string
	Validation *types.ValidationReport

	Loading bool
	Error   string
	Phase   Phase
	TaskID  string
	Stage   types.TaskStage

	Templates      []types.Template // sorted by id
	ExportMenuOpen bool
}

func (s State) clone() State {
	s.Templates = slices.Clone(s.Templates)
	return s
}

// Template returns the selected template, if any.
func (s State) Template() (types.Template, bool) {
	for _, t := range s.Templates {
		if t.ID == s.TemplateID {
			return t, true
		}
	}
	return types.Template{}, false
}
