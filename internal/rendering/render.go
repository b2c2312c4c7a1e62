package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/jonathan/script-generator/internal/analysis"
	"github.com/jonathan/script-generator/internal/types"
	"github.com/microcosm-cc/bluemonday"
)

// Export formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// DefaultTitle heads markdown exports that carry no heading of their own.
const DefaultTitle = "Script"

// Document is a rendered export ready to be written or served.
type Document struct {
	Body        []byte
	ContentType string
	Extension   string
}

// Filename is the download name for the document.
func (d *Document) Filename() string {
	return "script." + d.Extension
}

// PDFPrinter converts a standalone HTML page into PDF bytes.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, page []byte) ([]byte, error)
}

// Renderer produces export documents. A nil PDF printer disables pdf export.
type Renderer struct {
	pdf    PDFPrinter
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer. Pass nil to disable pdf export.
func NewRenderer(pdf PDFPrinter) *Renderer {
	return &Renderer{pdf: pdf, policy: bluemonday.UGCPolicy()}
}

// Formats lists the formats this renderer can produce.
func (r *Renderer) Formats() []string {
	formats := []string{FormatText, FormatMarkdown, FormatHTML, FormatJSON}
	if r.pdf != nil {
		formats = append(formats, FormatPDF)
	}
	return formats
}

// Supports reports whether format can be rendered.
func (r *Renderer) Supports(format string) bool {
	for _, f := range r.Formats() {
		if f == format {
			return true
		}
	}
	return false
}

// Render converts script into the requested format.
func (r *Renderer) Render(ctx context.Context, script, format string) (*Document, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText:
		return &Document{Body: []byte(script), ContentType: "text/plain; charset=utf-8", Extension: FormatText}, nil
	case FormatMarkdown:
		return &Document{Body: []byte(Markdown(script)), ContentType: "text/markdown; charset=utf-8", Extension: FormatMarkdown}, nil
	case FormatHTML:
		page, err := r.htmlPage(script)
		if err != nil {
			return nil, err
		}
		return &Document{Body: page, ContentType: "text/html; charset=utf-8", Extension: FormatHTML}, nil
	case FormatJSON:
		body, err := jsonExport(script)
		if err != nil {
			return nil, &RenderError{Format: FormatJSON, Message: "failed to encode script", Cause: err}
		}
		return &Document{Body: body, ContentType: "application/json", Extension: FormatJSON}, nil
	case FormatPDF:
		if r.pdf == nil {
			return nil, &UnsupportedFormatError{Format: format}
		}
		page, err := r.htmlPage(script)
		if err != nil {
			return nil, err
		}
		body, err := r.pdf.PrintPDF(ctx, page)
		if err != nil {
			return nil, &RenderError{Format: FormatPDF, Message: "failed to print page", Cause: err}
		}
		return &Document{Body: body, ContentType: "application/pdf", Extension: FormatPDF}, nil
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}
}

// Markdown returns the script as a markdown document, adding a title
// heading when the script has none.
func Markdown(script string) string {
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return script
		}
	}
	return "# " + DefaultTitle + "\n\n" + script
}

// HTMLFragment converts markdown to sanitized HTML.
func (r *Renderer) HTMLFragment(script string) []byte {
	// Parsers carry state and cannot be reused across documents.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	unsafe := markdown.ToHTML([]byte(script), p, renderer)
	return r.policy.SanitizeBytes(unsafe)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; line-height: 1.6; max-width: 42em; margin: 2em auto; padding: 0 1em; color: #222; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title string
	Body  template.HTML
}

func (r *Renderer) htmlPage(script string) ([]byte, error) {
	data := pageData{
		Title: DefaultTitle,
		// Already sanitized by the bluemonday policy.
		Body: template.HTML(r.HTMLFragment(script)),
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, &TemplateError{Message: "failed to execute page template", Cause: err}
	}
	return buf.Bytes(), nil
}

type jsonDocument struct {
	Script  string                  `json:"script"`
	Metrics *types.ValidationReport `json:"metrics"`
}

func jsonExport(script string) ([]byte, error) {
	doc := jsonDocument{
		Script:  script,
		Metrics: analysis.Measure(script).Report(analysis.DefaultWordsPerMinute),
	}
	return json.MarshalIndent(doc, "", "  ")
}
