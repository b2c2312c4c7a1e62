// Package editor implements the script editor session: it collects input,
// submits generation jobs, polls them to completion, and validates and
// exports the result. All network I/O goes through the API interface, so the
// session runs the same against the HTTP client or a test double.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/script-generator/internal/apiclient"
	"github.com/jonathan/script-generator/internal/types"
)

// DefaultPollInterval is the status polling period.
const DefaultPollInterval = 2 * time.Second

// DefaultExportFormat is selected until the user picks another.
const DefaultExportFormat = "txt"

var (
	// ErrEmptyInput is returned by SubmitGeneration when the input is blank.
	// No request is made.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrEmptyScript is returned when validating or exporting without a script.
	ErrEmptyScript = errors.New("script is empty")
	// ErrBusy is returned by SubmitGeneration while a job is in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("editor session is closed")
	// ErrJobFailed is returned by Wait when the job ended in the errored phase.
	ErrJobFailed = errors.New("script generation failed")
	// ErrUnknownTemplate is returned when selecting a template that was not loaded.
	ErrUnknownTemplate = errors.New("unknown template")
)

// API is the backend the session talks to. *apiclient.Client implements it.
type API interface {
	Templates(ctx context.Context) (map[string]types.Template, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (string, error)
	GenerateScript(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error)
	ScriptStatus(ctx context.Context, taskID string) (*types.StatusResponse, error)
	ValidateScript(ctx context.Context, req types.ValidateRequest) (*types.ValidationReport, error)
	ExportScript(ctx context.Context, req types.ExportRequest) (*apiclient.Export, error)
}

// Options configures a Session.
type Options struct {
	PollInterval time.Duration
	ExportFormat string
	Downloader   Downloader // defaults to the current directory
	Verbose      bool
}

// poller is one running status loop. stop cancels it exactly once,
// whichever of a terminal status or Close gets there first.
type poller struct {
	taskID string
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func (p *poller) stop() {
	p.once.Do(p.cancel)
}

// Session is one editor instance. It is safe for concurrent use.
//
// Observers run synchronously after each state change and must not call
// methods that change state or Close.
type Session struct {
	api  API
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu serializes state changes with their observer callbacks so
	// Close can wait for an in-flight callback before returning.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	state     State
	closed    bool
	poll      *poller
	observers map[int]func(State)
	nextObs   int

	closeOnce sync.Once
}

// New creates an idle session.
func New(api API, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = DefaultExportFormat
	}
	if opts.Downloader == nil {
		opts.Downloader = &DirDownloader{Dir: "."}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		api:       api,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		state:     State{Phase: PhaseIdle, ExportFormat: opts.ExportFormat},
		observers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns a function that removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// update applies fn under the state lock and notifies observers. When fn
// returns an error nothing changes and nobody is notified.
func (s *Session) update(fn func(*State) error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.state.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, id := range sortedKeys(s.observers) {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}

func (s *Session) set(fn func(*State)) error {
	return s.update(func(st *State) error {
		fn(st)
		return nil
	})
}

// SetInput replaces the source text.
func (s *Session) SetInput(text string) error {
	return s.set(func(st *State) { st.Input = text })
}

// SetHighlightedConcept sets the optional concept to explain with an analogy.
func (s *Session) SetHighlightedConcept(concept string) error {
	return s.set(func(st *State) { st.HighlightedConcept = concept })
}

// SetPreviousTopic sets the optional topic to call back to.
func (s *Session) SetPreviousTopic(topic string) error {
	return s.set(func(st *State) { st.PreviousTopic = topic })
}

// SelectTemplate picks a loaded template. An empty id means no template.
func (s *Session) SelectTemplate(id string) error {
	return s.update(func(st *State) error {
		if id != "" && len(st.Templates) > 0 && !slices.ContainsFunc(st.Templates, func(t types.Template) bool { return t.ID == id }) {
			return fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
		}
		st.TemplateID = id
		return nil
	})
}

// SelectExportFormat picks the format used by SubmitExport.
func (s *Session) SelectExportFormat(format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return errors.New("export format is required")
	}
	return s.set(func(st *State) { st.ExportFormat = format })
}

// SetScript replaces the script with an edited version. The validation report
// described the old text, so it is cleared when the text changes.
func (s *Session) SetScript(script string) error {
	return s.set(func(st *State) {
		if st.Script != script {
			st.Script = script
			st.Validation = nil
		}
	})
}

// OpenExportMenu marks the export menu as shown.
func (s *Session) OpenExportMenu() error {
	return s.set(func(st *State) { st.ExportMenuOpen = true })
}

// CloseExportMenu hides the export menu without exporting.
func (s *Session) CloseExportMenu() error {
	return s.set(func(st *State) { st.ExportMenuOpen = false })
}

// ClearError dismisses the error message.
func (s *Session) ClearError() error {
	return s.set(func(st *State) { st.Error = "" })
}

// CanSubmit reports whether SubmitGeneration would send a request.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.state.Loading && strings.TrimSpace(s.state.Input) != ""
}

// LoadTemplates fetches the template list.
func (s *Session) LoadTemplates(ctx context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	byID, err := s.api.Templates(ctx)
	if err != nil {
		s.fail("Failed to load templates")
		return fmt.Errorf("failed to load templates: %w", err)
	}

	list := make([]types.Template, 0, len(byID))
	for id, t := range byID {
		if t.ID == "" {
			t.ID = id
		}
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return s.set(func(st *State) { st.Templates = list })
}

// UploadFile sends a file to the backend and replaces the input with its text.
func (s *Session) UploadFile(ctx context.Context, filename string, r io.Reader) error {
	if err := s.alive(); err != nil {
		return err
	}
	content, err := s.api.UploadFile(ctx, filename, r)
	if err != nil {
		s.fail("Error uploading file: " + detail(err))
		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	return s.set(func(st *State) {
		st.Input = content
		st.Error = ""
	})
}

// SubmitGeneration sends the input for generation and starts polling.
// Blank input returns ErrEmptyInput without any request.
func (s *Session) SubmitGeneration(ctx context.Context) (string, error) {
	var req types.GenerateRequest
	err := s.update(func(st *State) error {
		if strings.TrimSpace(st.Input) == "" {
			return ErrEmptyInput
		}
		if st.Loading {
			return ErrBusy
		}
		req = types.GenerateRequest{
			Content:            st.Input,
			TemplateName:       st.TemplateID,
			HighlightedConcept: strings.TrimSpace(st.HighlightedConcept),
			PreviousTopic:      strings.TrimSpace(st.PreviousTopic),
		}
		st.Loading = true
		st.Error = ""
		st.Phase = PhaseSubmitting
		st.TaskID = ""
		st.Stage = ""
		return nil
	})
	if err != nil {
		return "", err
	}

	resp, err := s.api.GenerateScript(ctx, req)
	if err == nil && resp.TaskID == "" {
		err = errors.New("no task id in response")
	}
	if err != nil {
		s.set(func(st *State) { //nolint:errcheck
			st.Error = "Error generating script: " + detail(err)
			st.Loading = false
			st.Phase = PhaseErrored
		})
		return "", fmt.Errorf("failed to start generation: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return resp.TaskID, ErrClosed
	}
	pctx, cancel := context.WithCancel(s.ctx)
	p := &poller{taskID: resp.TaskID, cancel: cancel, done: make(chan struct{})}
	s.poll = p
	s.mu.Unlock()

	err = s.set(func(st *State) {
		st.TaskID = resp.TaskID
		st.Phase = PhasePolling
		st.Stage = types.StageQueued
	})
	if err != nil {
		p.stop()
		close(p.done)
		return resp.TaskID, err
	}

	if s.opts.Verbose {
		log.Printf("[editor] polling task %s every %s", resp.TaskID, s.opts.PollInterval)
	}
	go s.pollStatus(pctx, p)
	return resp.TaskID, nil
}

// pollStatus checks the task on every tick until it reaches a terminal
// status, a request fails, or the session closes.
func (s *Session) pollStatus(ctx context.Context, p *poller) {
	defer close(p.done)
	defer p.stop()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := s.api.ScriptStatus(ctx, p.taskID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.finish(p, func(st *State) {
				st.Error = "Error checking script status: " + detail(err)
				st.Phase = PhaseErrored
			})
			return
		}

		switch status.Status {
		case types.TaskCompleted:
			s.finish(p, func(st *State) {
				st.Script = status.Script
				st.Validation = status.Validation
				st.Stage = types.StageDone
				st.Phase = PhaseDone
			})
			return
		case types.TaskFailed:
			msg := status.Error
			if msg == "" {
				msg = "Script generation failed"
			}
			s.finish(p, func(st *State) {
				st.Error = msg
				st.Phase = PhaseErrored
			})
			return
		default:
			if status.Stage != "" {
				s.update(func(st *State) error { //nolint:errcheck
					if s.poll != p || st.Stage == status.Stage {
						return errUnchanged
					}
					st.Stage = status.Stage
					return nil
				})
			}
		}
	}
}

var errUnchanged = errors.New("unchanged")

// finish stops the poller and applies the terminal state in one update.
func (s *Session) finish(p *poller, fn func(*State)) {
	p.stop()
	s.update(func(st *State) error { //nolint:errcheck
		if s.poll != p {
			return errUnchanged
		}
		fn(st)
		st.Loading = false
		return nil
	})
}

// Wait blocks until the current poll loop ends. It returns an error wrapping
// ErrJobFailed when the job ended in the errored phase.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	p := s.poll
	s.mu.Unlock()
	if p == nil {
		return nil
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	st := s.State()
	if st.Phase == PhaseErrored {
		return fmt.Errorf("%w: %s", ErrJobFailed, st.Error)
	}
	return nil
}

// SubmitValidation re-validates the current script against the selected
// template. A report for text that was edited while the request was in flight
// is returned but not stored.
func (s *Session) SubmitValidation(ctx context.Context) (*types.ValidationReport, error) {
	st := s.State()
	if err := s.alive(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(st.Script) == "" {
		return nil, ErrEmptyScript
	}

	report, err := s.api.ValidateScript(ctx, types.ValidateRequest{Script: st.Script, TemplateName: st.TemplateID})
	if err != nil {
		s.fail("Error validating script: " + detail(err))
		return nil, fmt.Errorf("failed to validate script: %w", err)
	}

	err = s.update(func(cur *State) error {
		if cur.Script != st.Script {
			return errUnchanged
		}
		cur.Validation = report
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return report, err
	}
	return report, nil
}

// SubmitExport requests the script in the selected format and hands exactly
// one file to the downloader. The export menu closes either way.
func (s *Session) SubmitExport(ctx context.Context) error {
	st := s.State()
	if err := s.alive(); err != nil {
		return err
	}
	if strings.TrimSpace(st.Script) == "" {
		return ErrEmptyScript
	}

	exp, err := s.api.ExportScript(ctx, types.ExportRequest{Script: st.Script, Format: st.ExportFormat})
	if err == nil {
		filename := exp.Filename
		if filename == "" {
			filename = "script." + st.ExportFormat
		}
		err = s.opts.Downloader.Download(filename, exp.ContentType, exp.Body)
	}
	if err != nil {
		s.set(func(cur *State) { //nolint:errcheck
			cur.Error = "Error exporting script: " + detail(err)
			cur.ExportMenuOpen = false
		})
		return fmt.Errorf("failed to export script: %w", err)
	}
	return s.set(func(cur *State) { cur.ExportMenuOpen = false })
}

// Close stops polling and detaches observers. After Close returns no observer
// is called and the state no longer changes. The backend job keeps running.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		p := s.poll
		s.mu.Unlock()

		s.cancel()
		if p != nil {
			p.stop()
			<-p.done
		}
		// Wait out a callback that started before closed was set.
		s.notifyMu.Lock()
		s.notifyMu.Unlock() //nolint:staticcheck
	})
}

func (s *Session) alive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// fail records a user-visible error from a side request (templates, upload,
// validation). Loading belongs to the generation job and is left alone.
func (s *Session) fail(msg string) {
	s.set(func(st *State) { //nolint:errcheck
		st.Error = msg
	})
}

// detail extracts the server's message from API errors.
func detail(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}

func sortedKeys(m map[int]func(State)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
