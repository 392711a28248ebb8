package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// NormalizeID trims surrounding whitespace from an operator-entered id.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// ValidateCreate checks a new event before it is added.
// It returns a *ValidationError if any rules fail, or nil if the event is valid.
func ValidateCreate(id string, attrs Attributes) error {
	var ve ValidationError

	if NormalizeID(id) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if len(attrs) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "attributes", Message: "at least one attribute is required"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateUpdate checks the replacement mapping for an existing event.
func ValidateUpdate(id string, attrs Attributes) error {
	var ve ValidationError

	if NormalizeID(id) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "select an event to edit"})
	}
	if len(attrs) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "attributes", Message: "at least one attribute is required"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateDelete checks that a delete names an event.
func ValidateDelete(id string) error {
	if NormalizeID(id) == "" {
		return &ValidationError{Errors: []FieldError{{Field: "id", Message: "select an event to delete"}}}
	}
	return nil
}
