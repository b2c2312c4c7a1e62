// Package types provides type definitions for structured data used throughout the script generator.
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// GenerateRequest is the body of POST /api/generate-script.
type GenerateRequest struct {
	Content            string `json:"content" validate:"required"`
	TemplateName       string `json:"template_name,omitempty" validate:"omitempty,max=64"`
	HighlightedConcept string `json:"highlighted_concept,omitempty" validate:"omitempty,max=500"`
	PreviousTopic      string `json:"previous_topic,omitempty" validate:"omitempty,max=500"`
}

// GenerateResponse is returned when a generation task has been accepted.
type GenerateResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// ValidateRequest is the body of POST /api/validate-script.
type ValidateRequest struct {
	Script       string `json:"script" validate:"required"`
	TemplateName string `json:"template_name,omitempty" validate:"omitempty,max=64"`
}

// ValidateResponse wraps a validation report.
type ValidateResponse struct {
	Status     string            `json:"status"`
	Validation *ValidationReport `json:"validation"`
}

// ExportRequest is the body of POST /api/export-script.
type ExportRequest struct {
	Script string `json:"script" validate:"required"`
	Format string `json:"format" validate:"required"`
}

// UploadResponse is returned by POST /api/upload-file.
type UploadResponse struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

// TemplatesResponse is returned by GET /api/templates.
type TemplatesResponse struct {
	Status    string              `json:"status"`
	Templates map[string]Template `json:"templates"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Validate trims the request and checks its fields.
// Blank content counts as missing.
func (r *GenerateRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	r.TemplateName = strings.TrimSpace(r.TemplateName)
	r.HighlightedConcept = strings.TrimSpace(r.HighlightedConcept)
	r.PreviousTopic = strings.TrimSpace(r.PreviousTopic)
	validate := validator.New()
	return validate.Struct(r)
}

// Validate checks the ValidateRequest. Blank scripts count as missing.
func (r *ValidateRequest) Validate() error {
	if strings.TrimSpace(r.Script) == "" {
		r.Script = ""
	}
	r.TemplateName = strings.TrimSpace(r.TemplateName)
	validate := validator.New()
	return validate.Struct(r)
}

// Validate checks the ExportRequest.
func (r *ExportRequest) Validate() error {
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	validate := validator.New()
	return validate.Struct(r)
}
