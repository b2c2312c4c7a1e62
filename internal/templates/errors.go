package templates

import "fmt"

// LoadError represents a template document that could not be loaded.
type LoadError struct {
	Source  string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("template %s: %s", e.Source, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NotFoundError is returned when a template id is unknown.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown template: %s", e.ID)
}
