// Package apiclient is a typed HTTP client for the script generator REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/script-generator/internal/types"
)

// DefaultTimeout bounds each request when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// DefaultUserAgent identifies the client.
const DefaultUserAgent = "script-agent/1.0"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Token      string // sent as a bearer token when set
	HTTPClient *http.Client
	UserAgent  string
}

// Error is returned for non-2xx responses.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Detail)
}

// Export is a downloaded export file.
type Export struct {
	Body        []byte
	ContentType string
	Filename    string
}

// Client talks to the API server.
type Client struct {
	base      *url.URL
	http      *http.Client
	token     string
	userAgent string
}

// New creates a client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{base: base, http: httpClient, token: opts.Token, userAgent: userAgent}, nil
}

// Templates lists the server's templates keyed by id.
func (c *Client) Templates(ctx context.Context) (map[string]types.Template, error) {
	var resp types.TemplatesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// UploadFile sends a file and returns its extracted text.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload-file", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp types.UploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateScript starts a generation task.
func (c *Client) GenerateScript(ctx context.Context, in types.GenerateRequest) (*types.GenerateResponse, error) {
	var resp types.GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-script", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScriptStatus fetches the state of a task.
func (c *Client) ScriptStatus(ctx context.Context, taskID string) (*types.StatusResponse, error) {
	var resp types.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/script-status/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateScript scores a script, optionally against a template.
func (c *Client) ValidateScript(ctx context.Context, in types.ValidateRequest) (*types.ValidationReport, error) {
	var resp types.ValidateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/validate-script", in, &resp); err != nil {
		return nil, err
	}
	return resp.Validation, nil
}

// ExportScript renders a script on the server and downloads the file.
func (c *Client) ExportScript(ctx context.Context, in types.ExportRequest) (*Export, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/export-script", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return &Export{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    attachmentName(resp.Header.Get("Content-Disposition"), "script."+in.Format),
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError reads {"detail": ...}. A non-string detail (such as a list of
// field errors) is kept as raw JSON; an unreadable body falls back to the
// status text.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 {
		var detail string
		if json.Unmarshal(body.Detail, &detail) == nil {
			apiErr.Detail = detail
		} else {
			apiErr.Detail = string(body.Detail)
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		apiErr.Detail = text
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// attachmentName returns the base name from a Content-Disposition header.
func attachmentName(header, fallback string) string {
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}
