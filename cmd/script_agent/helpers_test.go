package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/script-generator/internal/analysis"
	"github.com/jonathan/script-generator/internal/generation"
	"github.com/jonathan/script-generator/internal/jobs"
	"github.com/jonathan/script-generator/internal/rendering"
	"github.com/jonathan/script-generator/internal/server"
	"github.com/jonathan/script-generator/internal/templates"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/stretchr/testify/require"
)

// fakeGenerator echoes the request into a short script, or fails with err.
type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Generate(_ context.Context, req types.GenerateRequest, progress generation.ProgressFunc) (*generation.Result, error) {
	progress(types.StageGenerating)
	if f.err != nil {
		return nil, f.err
	}
	script := "# Script\n\nScript about " + strings.TrimSpace(req.Content) + ". Is it clear?"
	return &generation.Result{
		Script:     script,
		Validation: analysis.New(analysis.DefaultThresholds()).Validate(script, nil),
		Chunks:     1,
	}, nil
}

// newBackend serves the real API handler over a fake generator and returns its URL.
func newBackend(t *testing.T, gen jobs.Generator) string {
	t.Helper()
	tmpls, err := templates.Builtin()
	require.NoError(t, err)

	runner := jobs.NewRunner(jobs.NewMemoryStore(), gen, jobs.Options{MaxConcurrent: 2, TaskTimeout: 5 * time.Second})
	t.Cleanup(runner.Stop)

	srv := server.NewWithDeps(server.Deps{
		Templates:      tmpls,
		Analyzer:       analysis.New(analysis.DefaultThresholds()),
		Runner:         runner,
		Renderer:       rendering.NewRenderer(nil),
		MaxUploadBytes: 1 << 20,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs the CLI in-process with stdin and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
