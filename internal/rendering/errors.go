// Package rendering turns a finished script into downloadable export documents.
package rendering

import "fmt"

// UnsupportedFormatError is returned for an export format the renderer cannot produce.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format: %q", e.Format)
}

// TemplateError represents an error executing the HTML page template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a general rendering failure
type RenderError struct {
	Format  string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error (%s): %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("render error (%s): %s", e.Format, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
