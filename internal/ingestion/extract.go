package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/script-generator/internal/fetch"
)

// ExtractionError reports why a file or page yielded no usable text.
type ExtractionError struct {
	Source string
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// binaryExtensions are rejected up front with a clearer message than the UTF-8 check gives.
var binaryExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".odt": true, ".rtf": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".zip": true,
}

// ExtractText returns the cleaned text of an uploaded file. HTML files (by
// extension or content sniffing) are reduced to their visible text; all other
// files must be UTF-8 text.
func ExtractText(filename string, data []byte) (string, error) {
	source := filepath.Base(filename)
	if source == "." || source == "/" {
		source = "upload"
	}
	ext := strings.ToLower(filepath.Ext(filename))

	if len(bytes.TrimSpace(data)) == 0 {
		return "", &ExtractionError{Source: source, Reason: "file is empty"}
	}
	if binaryExtensions[ext] {
		return "", &ExtractionError{Source: source, Reason: "unsupported file type " + ext}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", &ExtractionError{Source: source, Reason: "file is not valid UTF-8 text"}
	}

	var text string
	if isHTML(ext, data) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return "", &ExtractionError{Source: source, Reason: "failed to parse HTML", Cause: err}
		}
		doc.Find("script, style, noscript, template").Remove()
		body := doc.Find("body")
		if body.Length() == 0 {
			body = doc.Selection
		}
		text = CleanText(fetch.SelectionText(body))
	} else {
		text = CleanText(string(data))
	}

	if text == "" {
		return "", &ExtractionError{Source: source, Reason: "no text content found"}
	}
	return text, nil
}

func isHTML(ext string, data []byte) bool {
	switch ext {
	case ".html", ".htm", ".xhtml":
		return true
	case ".txt", ".md", ".markdown":
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "text/html")
}

// ReadFile reads a local file and extracts its text like an upload.
func ReadFile(path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", &ExtractionError{Source: filepath.Base(path), Reason: fmt.Sprintf("file exceeds %d bytes", maxBytes)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return ExtractText(path, data)
}

// URLOptions controls FromURL.
type URLOptions struct {
	// UseBrowser re-renders pages with too little static text in headless Chrome.
	UseBrowser     bool
	BrowserTimeout time.Duration
	Verbose        bool
	Fetch          *fetch.Options
}

// FromURL fetches a web page and returns its main text.
func FromURL(ctx context.Context, urlStr string, opts URLOptions) (string, error) {
	result, err := fetch.URL(ctx, urlStr, opts.Fetch)
	if err != nil {
		return "", err
	}

	selectors := fetch.DefaultTextSelectors()
	text, err := fetch.ExtractMainText(result.HTML, selectors)
	if err != nil {
		return "", &ExtractionError{Source: urlStr, Reason: "content extraction failed", Cause: err}
	}
	if opts.Verbose {
		log.Printf("[ingest] %s: %d chars from static HTML", urlStr, len(text))
	}

	if opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		timeout := opts.BrowserTimeout
		if timeout <= 0 {
			timeout = fetch.DefaultTimeout
		}
		rendered, browserErr := fetch.WithBrowser(ctx, urlStr, timeout, opts.Verbose)
		if browserErr != nil {
			log.Printf("[ingest] browser rendering failed, using static HTML: %v", browserErr)
		} else if browserText, err := fetch.ExtractMainText(rendered, selectors); err == nil {
			text = browserText
		}
	}

	text = CleanText(text)
	if text == "" {
		return "", &ExtractionError{Source: urlStr, Reason: "no text content found"}
	}
	return text, nil
}
