package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/script-generator/internal/ingestion"
	"github.com/jonathan/script-generator/internal/jobs"
	"github.com/jonathan/script-generator/internal/rendering"
	"github.com/jonathan/script-generator/internal/templates"
)

// ErrValidation indicates an unprocessable request body.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ErrUploadTooLarge indicates an upload above the configured limit.
type ErrUploadTooLarge struct {
	Limit int64
}

func (e *ErrUploadTooLarge) Error() string {
	return fmt.Sprintf("file exceeds the %d byte upload limit", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		fields      validator.ValidationErrors
		tooLarge    *ErrUploadTooLarge
		maxBytes    *http.MaxBytesError
		notFound    *templates.NotFoundError
		unsupported *rendering.UnsupportedFormatError
		extraction  *ingestion.ExtractionError
	)
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validation), errors.As(err, &fields):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, jobs.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.As(err, &notFound), errors.As(err, &unsupported), errors.As(err, &extraction):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrRunnerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// validationDetail turns validator field errors into a short sentence
// using the JSON field names.
func validationDetail(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		name := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", name, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// jsonName converts a Go field name such as TemplateName to template_name.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
