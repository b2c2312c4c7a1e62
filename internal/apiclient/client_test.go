package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonathan/script-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*Options)) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	o := Options{BaseURL: ts.URL + "/"}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := New(o)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: "://nope"})
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/templates", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, types.TemplatesResponse{
			Status:    "success",
			Templates: map[string]types.Template{"documentary": {ID: "documentary", Name: "Documentary"}},
		})
	})

	got, err := c.Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Documentary", got["documentary"].Name)
}

func TestBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, types.TemplatesResponse{Status: "success"})
	}, func(o *Options) { o.Token = "secret" })

	_, err := c.Templates(context.Background())
	require.NoError(t, err)
}

func TestUploadFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.txt", header.Filename)
		writeJSON(w, http.StatusOK, types.UploadResponse{Status: "success", Content: "clean " + string(data)})
	})

	content, err := c.UploadFile(context.Background(), "notes.txt", strings.NewReader("text"))
	require.NoError(t, err)
	assert.Equal(t, "clean text", content)
}

func TestGenerateAndStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate-script":
			var req types.GenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "source", req.Content)
			assert.Equal(t, "storytelling", req.TemplateName)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusOK, types.GenerateResponse{TaskID: "t-1", Status: types.TaskPending})
		case "/api/script-status/t-1":
			writeJSON(w, http.StatusOK, types.StatusResponse{TaskID: "t-1", Status: types.TaskCompleted, Script: "done"})
		default:
			http.NotFound(w, r)
		}
	})

	gen, err := c.GenerateScript(context.Background(), types.GenerateRequest{Content: "source", TemplateName: "storytelling"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", gen.TaskID)

	status, err := c.ScriptStatus(context.Background(), gen.TaskID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, status.Status)
	assert.Equal(t, "done", status.Script)
}

func TestValidateScript(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ValidateResponse{
			Status:     "success",
			Validation: &types.ValidationReport{Structure: types.Structure{WordCount: 7}},
		})
	})

	report, err := c.ValidateScript(context.Background(), types.ValidateRequest{Script: "x"})
	require.NoError(t, err)
	assert.Equal(t, 7, report.Structure.WordCount)
}

func TestExportScript(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.ExportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "md", req.Format)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="script.md"`)
		io.WriteString(w, "# Script") //nolint:errcheck
	})

	exp, err := c.ExportScript(context.Background(), types.ExportRequest{Script: "x", Format: "md"})
	require.NoError(t, err)
	assert.Equal(t, "# Script", string(exp.Body))
	assert.Equal(t, "script.md", exp.Filename)
	assert.Equal(t, "text/markdown; charset=utf-8", exp.ContentType)
}

func TestExportScript_FilenameFallbackAndSanitizing(t *testing.T) {
	disposition := ""
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if disposition != "" {
			w.Header().Set("Content-Disposition", disposition)
		}
		io.WriteString(w, "body") //nolint:errcheck
	})

	exp, err := c.ExportScript(context.Background(), types.ExportRequest{Script: "x", Format: "txt"})
	require.NoError(t, err)
	assert.Equal(t, "script.txt", exp.Filename)

	disposition = `attachment; filename="../../etc/passwd"`
	exp, err = c.ExportScript(context.Background(), types.ExportRequest{Script: "x", Format: "txt"})
	require.NoError(t, err)
	assert.Equal(t, "passwd", exp.Filename)
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"string detail", http.StatusNotFound, `{"status":"error","detail":"Task not found"}`, "Task not found"},
		{"list detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","content"]}]}`, `[{"loc":["body","content"]}]`},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body) //nolint:errcheck
			})

			_, err := c.ScriptStatus(context.Background(), "x")
			require.Error(t, err)
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}
}

func TestExportScript_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Status: "error", Detail: "Error exporting script: unsupported export format: \"doc\""})
	})

	_, err := c.ExportScript(context.Background(), types.ExportRequest{Script: "x", Format: "doc"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "unsupported export format")
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Templates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
