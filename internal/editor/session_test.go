package editor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/script-generator/internal/apiclient"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI counts calls and delegates to optional function fields.
type fakeAPI struct {
	templates func(ctx context.Context) (map[string]types.Template, error)
	upload    func(ctx context.Context, filename string, r io.Reader) (string, error)
	generate  func(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error)
	status    func(ctx context.Context, taskID string) (*types.StatusResponse, error)
	validate  func(ctx context.Context, req types.ValidateRequest) (*types.ValidationReport, error)
	export    func(ctx context.Context, req types.ExportRequest) (*apiclient.Export, error)

	generateCalls atomic.Int32
	statusCalls   atomic.Int32
	exportCalls   atomic.Int32
}

func (f *fakeAPI) Templates(ctx context.Context) (map[string]types.Template, error) {
	if f.templates == nil {
		return map[string]types.Template{}, nil
	}
	return f.templates(ctx)
}

func (f *fakeAPI) UploadFile(ctx context.Context, filename string, r io.Reader) (string, error) {
	if f.upload == nil {
		b, err := io.ReadAll(r)
		return string(b), err
	}
	return f.upload(ctx, filename, r)
}

func (f *fakeAPI) GenerateScript(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error) {
	f.generateCalls.Add(1)
	if f.generate == nil {
		return &types.GenerateResponse{TaskID: "task-1", Status: types.TaskPending}, nil
	}
	return f.generate(ctx, req)
}

func (f *fakeAPI) ScriptStatus(ctx context.Context, taskID string) (*types.StatusResponse, error) {
	f.statusCalls.Add(1)
	if f.status == nil {
		return &types.StatusResponse{TaskID: taskID, Status: types.TaskPending}, nil
	}
	return f.status(ctx, taskID)
}

func (f *fakeAPI) ValidateScript(ctx context.Context, req types.ValidateRequest) (*types.ValidationReport, error) {
	if f.validate == nil {
		return &types.ValidationReport{}, nil
	}
	return f.validate(ctx, req)
}

func (f *fakeAPI) ExportScript(ctx context.Context, req types.ExportRequest) (*apiclient.Export, error) {
	f.exportCalls.Add(1)
	if f.export == nil {
		return &apiclient.Export{Body: []byte(req.Script), ContentType: "text/plain", Filename: "script." + req.Format}, nil
	}
	return f.export(ctx, req)
}

// recorder collects observer snapshots.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestSession(t *testing.T, api API, opts ...func(*Options)) *Session {
	t.Helper()
	o := Options{PollInterval: 5 * time.Millisecond, Downloader: DownloaderFunc(func(string, string, []byte) error { return nil })}
	for _, fn := range opts {
		fn(&o)
	}
	s := New(api, o)
	t.Cleanup(s.Close)
	return s
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeAPI{}, Options{})
	defer s.Close()

	assert.Equal(t, DefaultPollInterval, s.opts.PollInterval)
	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, DefaultExportFormat, st.ExportFormat)
	assert.IsType(t, &DirDownloader{}, s.opts.Downloader)
}

func TestSubmitGeneration_EmptyInputMakesNoRequest(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(t, api)

	for _, input := range []string{"", "   \n\t"} {
		require.NoError(t, s.SetInput(input))
		assert.False(t, s.CanSubmit())

		_, err := s.SubmitGeneration(context.Background())
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Zero(t, api.generateCalls.Load())
	assert.Equal(t, PhaseIdle, s.State().Phase)
	assert.False(t, s.State().Loading)
}

func TestSubmitGeneration_Completed(t *testing.T) {
	report := &types.ValidationReport{Structure: types.Structure{WordCount: 4}}
	api := &fakeAPI{}
	api.status = func(_ context.Context, id string) (*types.StatusResponse, error) {
		if api.statusCalls.Load() < 3 {
			return &types.StatusResponse{TaskID: id, Status: types.TaskPending, Stage: types.StageGenerating}, nil
		}
		return &types.StatusResponse{TaskID: id, Status: types.TaskCompleted, Script: "Once upon a time.", Validation: report}, nil
	}
	api.generate = func(_ context.Context, req types.GenerateRequest) (*types.GenerateResponse, error) {
		assert.Equal(t, "source text", req.Content)
		assert.Equal(t, "documentary", req.TemplateName)
		assert.Equal(t, "entropy", req.HighlightedConcept)
		return &types.GenerateResponse{TaskID: "abc", Status: types.TaskPending}, nil
	}

	s := newTestSession(t, api)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	require.NoError(t, s.SetInput("source text"))
	require.NoError(t, s.SelectTemplate("documentary"))
	require.NoError(t, s.SetHighlightedConcept("  entropy "))

	id, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.True(t, s.State().Loading)

	require.NoError(t, s.Wait(waitCtx(t)))

	st := s.State()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.Equal(t, "Once upon a time.", st.Script)
	assert.Same(t, report, st.Validation)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)

	// Script and validation arrive in a single update.
	withScript := 0
	for _, snap := range rec.all() {
		if snap.Script != "" {
			withScript++
			assert.NotNil(t, snap.Validation)
		}
	}
	assert.Equal(t, 1, withScript)

	// Polling stopped.
	calls := api.statusCalls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, api.statusCalls.Load())
}

func TestSubmitGeneration_StageUpdates(t *testing.T) {
	stages := []types.TaskStage{types.StageChunking, types.StageChunking, types.StageSummarizing}
	api := &fakeAPI{}
	api.status = func(_ context.Context, id string) (*types.StatusResponse, error) {
		n := int(api.statusCalls.Load()) - 1
		if n < len(stages) {
			return &types.StatusResponse{TaskID: id, Status: types.TaskPending, Stage: stages[n]}, nil
		}
		return &types.StatusResponse{TaskID: id, Status: types.TaskCompleted, Script: "done"}, nil
	}
	s := newTestSession(t, api)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	require.NoError(t, s.SetInput("text"))
	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	var seen []types.TaskStage
	for _, snap := range rec.all() {
		if len(seen) == 0 || seen[len(seen)-1] != snap.Stage {
			seen = append(seen, snap.Stage)
		}
	}
	assert.Equal(t, []types.TaskStage{"", types.StageQueued, types.StageChunking, types.StageSummarizing, types.StageDone}, seen)
}

func TestSubmitGeneration_Failed(t *testing.T) {
	api := &fakeAPI{
		status: func(_ context.Context, id string) (*types.StatusResponse, error) {
			return &types.StatusResponse{TaskID: id, Status: types.TaskFailed, Error: "model unavailable"}, nil
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetInput("text"))
	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)

	err = s.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrJobFailed)

	st := s.State()
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "model unavailable", st.Error)
	assert.Empty(t, st.Script)
	assert.Nil(t, st.Validation)
	assert.False(t, st.Loading)
	assert.EqualValues(t, 1, api.statusCalls.Load())
}

func TestSubmitGeneration_FailedWithoutMessage(t *testing.T) {
	api := &fakeAPI{
		status: func(_ context.Context, id string) (*types.StatusResponse, error) {
			return &types.StatusResponse{TaskID: id, Status: types.TaskFailed}, nil
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetInput("text"))
	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)
	assert.Error(t, s.Wait(waitCtx(t)))
	assert.Equal(t, "Script generation failed", s.State().Error)
}

func TestSubmitGeneration_RequestError(t *testing.T) {
	api := &fakeAPI{
		generate: func(context.Context, types.GenerateRequest) (*types.GenerateResponse, error) {
			return nil, &apiclient.Error{StatusCode: 422, Detail: "content is required"}
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetInput("text"))

	_, err := s.SubmitGeneration(context.Background())
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, "Error generating script: content is required", st.Error)
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.False(t, st.Loading)
	assert.Zero(t, api.statusCalls.Load())
}

func TestSubmitGeneration_BusyWhileLoading(t *testing.T) {
	s := newTestSession(t, &fakeAPI{}, func(o *Options) { o.PollInterval = time.Hour })
	require.NoError(t, s.SetInput("text"))

	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)
	assert.False(t, s.CanSubmit())

	_, err = s.SubmitGeneration(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestPollError_IsTerminal(t *testing.T) {
	api := &fakeAPI{
		status: func(context.Context, string) (*types.StatusResponse, error) {
			return nil, &apiclient.Error{StatusCode: 404, Detail: "Task not found"}
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetInput("text"))
	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Wait(waitCtx(t)), ErrJobFailed)
	assert.Equal(t, "Error checking script status: Task not found", s.State().Error)

	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, api.statusCalls.Load())
}

func TestClose_StopsPollingAndUpdates(t *testing.T) {
	polled := make(chan struct{}, 1)
	api := &fakeAPI{}
	api.status = func(_ context.Context, id string) (*types.StatusResponse, error) {
		select {
		case polled <- struct{}{}:
		default:
		}
		return &types.StatusResponse{TaskID: id, Status: types.TaskPending, Stage: types.StageGenerating}, nil
	}
	s := newTestSession(t, api)
	rec := &recorder{}
	s.Subscribe(rec.observe)

	require.NoError(t, s.SetInput("text"))
	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)

	select {
	case <-polled:
	case <-time.After(5 * time.Second):
		t.Fatal("status was never polled")
	}

	s.Close()
	updates := rec.len()
	calls := api.statusCalls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, updates, rec.len())
	assert.Equal(t, calls, api.statusCalls.Load())

	assert.ErrorIs(t, s.SetInput("more"), ErrClosed)
	_, err = s.SubmitGeneration(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.SubmitExport(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.LoadTemplates(context.Background()), ErrClosed)
}

func TestClose_Idempotent(t *testing.T) {
	s := New(&fakeAPI{}, Options{})
	s.Close()
	s.Close()
	assert.False(t, s.CanSubmit())
}

func TestSubmitExport_SelectedFormat(t *testing.T) {
	var downloads []string
	api := &fakeAPI{}
	api.export = func(_ context.Context, req types.ExportRequest) (*apiclient.Export, error) {
		assert.Equal(t, "md", req.Format)
		assert.Equal(t, "# Title", req.Script)
		return &apiclient.Export{Body: []byte("# Title\n"), ContentType: "text/markdown", Filename: "script.md"}, nil
	}
	s := newTestSession(t, api, func(o *Options) {
		o.Downloader = DownloaderFunc(func(filename, contentType string, body []byte) error {
			downloads = append(downloads, filename)
			assert.Equal(t, "text/markdown", contentType)
			assert.Equal(t, "# Title\n", string(body))
			return nil
		})
	})

	require.NoError(t, s.SetScript("# Title"))
	require.NoError(t, s.SelectExportFormat("MD"))
	require.NoError(t, s.OpenExportMenu())

	require.NoError(t, s.SubmitExport(context.Background()))
	assert.Equal(t, []string{"script.md"}, downloads)
	assert.EqualValues(t, 1, api.exportCalls.Load())
	assert.False(t, s.State().ExportMenuOpen)
}

func TestSubmitExport_ErrorClosesMenu(t *testing.T) {
	api := &fakeAPI{
		export: func(context.Context, types.ExportRequest) (*apiclient.Export, error) {
			return nil, &apiclient.Error{StatusCode: 400, Detail: `unsupported export format: "doc"`}
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetScript("text"))
	require.NoError(t, s.SelectExportFormat("doc"))
	require.NoError(t, s.OpenExportMenu())

	require.Error(t, s.SubmitExport(context.Background()))
	st := s.State()
	assert.False(t, st.ExportMenuOpen)
	assert.Equal(t, `Error exporting script: unsupported export format: "doc"`, st.Error)
}

func TestSubmitExport_EmptyScript(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(t, api)
	assert.ErrorIs(t, s.SubmitExport(context.Background()), ErrEmptyScript)
	assert.Zero(t, api.exportCalls.Load())
}

func TestSubmitExport_DirDownloader(t *testing.T) {
	dir := t.TempDir()
	dl := &DirDownloader{Dir: filepath.Join(dir, "out")}
	api := &fakeAPI{
		export: func(context.Context, types.ExportRequest) (*apiclient.Export, error) {
			return &apiclient.Export{Body: []byte("hello"), Filename: "../../escape.txt"}, nil
		},
	}
	s := newTestSession(t, api, func(o *Options) { o.Downloader = dl })
	require.NoError(t, s.SetScript("hello"))
	require.NoError(t, s.SubmitExport(context.Background()))

	assert.Equal(t, filepath.Join(dir, "out", "escape.txt"), dl.Saved)
	b, err := os.ReadFile(dl.Saved)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestSubmitValidation(t *testing.T) {
	report := &types.ValidationReport{Structure: types.Structure{WordCount: 2}}
	api := &fakeAPI{
		validate: func(_ context.Context, req types.ValidateRequest) (*types.ValidationReport, error) {
			assert.Equal(t, "two words", req.Script)
			return report, nil
		},
	}
	s := newTestSession(t, api)
	_, err := s.SubmitValidation(context.Background())
	assert.ErrorIs(t, err, ErrEmptyScript)

	require.NoError(t, s.SetScript("two words"))
	got, err := s.SubmitValidation(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, got)
	assert.Same(t, report, s.State().Validation)

	// Editing the script invalidates the report.
	require.NoError(t, s.SetScript("three words now"))
	assert.Nil(t, s.State().Validation)
}

func TestSubmitValidation_Error(t *testing.T) {
	api := &fakeAPI{
		validate: func(context.Context, types.ValidateRequest) (*types.ValidationReport, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.SetScript("text"))
	_, err := s.SubmitValidation(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error validating script: connection refused", s.State().Error)
}

func TestSubmitValidation_DropsReportForEditedScript(t *testing.T) {
	var s *Session
	api := &fakeAPI{
		validate: func(_ context.Context, req types.ValidateRequest) (*types.ValidationReport, error) {
			assert.Equal(t, "first draft", req.Script)
			require.NoError(t, s.SetScript("edited text"))
			return &types.ValidationReport{Structure: types.Structure{WordCount: 2}}, nil
		},
	}
	s = newTestSession(t, api)
	require.NoError(t, s.SetScript("first draft"))

	report, err := s.SubmitValidation(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)

	st := s.State()
	assert.Equal(t, "edited text", st.Script)
	assert.Nil(t, st.Validation)
}

func TestSideRequestErrors_KeepGenerationBusy(t *testing.T) {
	api := &fakeAPI{
		validate: func(context.Context, types.ValidateRequest) (*types.ValidationReport, error) {
			return nil, errors.New("validator down")
		},
		upload: func(context.Context, string, io.Reader) (string, error) {
			return "", errors.New("disk full")
		},
		templates: func(context.Context) (map[string]types.Template, error) {
			return nil, errors.New("unreachable")
		},
	}
	s := newTestSession(t, api, func(o *Options) { o.PollInterval = time.Hour })
	require.NoError(t, s.SetInput("source text"))
	require.NoError(t, s.SetScript("an older script"))

	_, err := s.SubmitGeneration(context.Background())
	require.NoError(t, err)

	_, err = s.SubmitValidation(context.Background())
	require.Error(t, err)
	require.Error(t, s.UploadFile(context.Background(), "notes.txt", strings.NewReader("x")))
	require.Error(t, s.LoadTemplates(context.Background()))

	st := s.State()
	assert.Equal(t, PhasePolling, st.Phase)
	assert.True(t, st.Loading)
	assert.False(t, s.CanSubmit())

	_, err = s.SubmitGeneration(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, int32(1), api.generateCalls.Load())
}

func TestUploadFile(t *testing.T) {
	s := newTestSession(t, &fakeAPI{})
	require.NoError(t, s.UploadFile(context.Background(), "notes.txt", strings.NewReader("extracted text")))
	assert.Equal(t, "extracted text", s.State().Input)

	failing := &fakeAPI{
		upload: func(context.Context, string, io.Reader) (string, error) {
			return "", &apiclient.Error{StatusCode: 400, Detail: "Error processing file: unsupported file type"}
		},
	}
	s = newTestSession(t, failing)
	require.NoError(t, s.SetInput("keep me"))
	require.Error(t, s.UploadFile(context.Background(), "x.exe", strings.NewReader("")))
	st := s.State()
	assert.Equal(t, "keep me", st.Input)
	assert.Equal(t, "Error uploading file: Error processing file: unsupported file type", st.Error)
}

func TestLoadTemplates(t *testing.T) {
	api := &fakeAPI{
		templates: func(context.Context) (map[string]types.Template, error) {
			return map[string]types.Template{
				"tutorial":    {Name: "Tutorial"},
				"documentary": {ID: "documentary", Name: "Documentary"},
			}, nil
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.LoadTemplates(context.Background()))

	st := s.State()
	require.Len(t, st.Templates, 2)
	assert.Equal(t, "documentary", st.Templates[0].ID)
	assert.Equal(t, "tutorial", st.Templates[1].ID)

	assert.ErrorIs(t, s.SelectTemplate("missing"), ErrUnknownTemplate)
	require.NoError(t, s.SelectTemplate("tutorial"))
	tmpl, ok := s.State().Template()
	assert.True(t, ok)
	assert.Equal(t, "Tutorial", tmpl.Name)
	require.NoError(t, s.SelectTemplate(""))
}

func TestLoadTemplates_Error(t *testing.T) {
	api := &fakeAPI{
		templates: func(context.Context) (map[string]types.Template, error) {
			return nil, errors.New("boom")
		},
	}
	s := newTestSession(t, api)
	require.Error(t, s.LoadTemplates(context.Background()))
	assert.Equal(t, "Failed to load templates", s.State().Error)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := newTestSession(t, &fakeAPI{})
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.observe)

	require.NoError(t, s.SetInput("a"))
	unsubscribe()
	require.NoError(t, s.SetInput("b"))

	require.Equal(t, 1, rec.len())
	assert.Equal(t, "a", rec.all()[0].Input)
}

func TestState_SnapshotIsolated(t *testing.T) {
	api := &fakeAPI{
		templates: func(context.Context) (map[string]types.Template, error) {
			return map[string]types.Template{"a": {ID: "a"}}, nil
		},
	}
	s := newTestSession(t, api)
	require.NoError(t, s.LoadTemplates(context.Background()))

	snap := s.State()
	snap.Templates[0].ID = "changed"
	assert.Equal(t, "a", s.State().Templates[0].ID)
}
