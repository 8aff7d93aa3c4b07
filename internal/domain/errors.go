package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrSuppressed    = errors.New("suppressed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
// A write request carrying fields not valid for the requested action is
// rejected with a ValidationError before any state changes.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// InvalidTransitionError is returned when an action is not legal for the
// entity's current lifecycle state. It names the entity, state, and action
// so the caller can report which invariant failed.
type InvalidTransitionError struct {
	Entity EntityType
	State  string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s in state %q does not allow action %q", e.Entity, e.State, e.Action)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrConflict }

// NewInvalidTransition creates an InvalidTransitionError.
func NewInvalidTransition(entity EntityType, state, action string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, State: state, Action: action}
}
