package types

// Template is a named script-structure preset.
type Template struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description"`
	Tone        string            `json:"tone,omitempty" yaml:"tone"`
	Sections    []TemplateSection `json:"sections" yaml:"sections"`
}

// TemplateSection is one expected part of a script with its word range.
type TemplateSection struct {
	Name     string `json:"name" yaml:"name"`
	MinWords int    `json:"min_words" yaml:"min_words"`
	MaxWords int    `json:"max_words" yaml:"max_words"`
	Guidance string `json:"guidance,omitempty" yaml:"guidance"`
}

// TotalRange returns the summed word range of all sections.
func (t *Template) TotalRange() (minWords, maxWords int) {
	for _, s := range t.Sections {
		minWords += s.MinWords
		maxWords += s.MaxWords
	}
	return minWords, maxWords
}
