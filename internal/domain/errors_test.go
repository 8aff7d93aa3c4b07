package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_SingleField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("snooze_until", "must be in the future")
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should unwrap to ErrValidation")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(ve.Errors))
	}
	if ve.Errors[0].Field != "snooze_until" {
		t.Errorf("field: got %q", ve.Errors[0].Field)
	}
}

func TestValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors([]FieldError{
		{Field: "a", Message: "required"},
		{Field: "b", Message: "required"},
	})
	if got := err.Error(); got != "validation: 2 errors" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInvalidTransitionError_Wrapping(t *testing.T) {
	t.Parallel()

	err := NewInvalidTransition(EntityTypeInboxItem, "dismissed", "snooze")
	wrapped := fmt.Errorf("apply action: %w", err)

	if !errors.Is(wrapped, ErrConflict) {
		t.Error("wrapped InvalidTransitionError should match ErrConflict")
	}

	var ite *InvalidTransitionError
	if !errors.As(wrapped, &ite) {
		t.Fatalf("expected *InvalidTransitionError through wrapping")
	}
	if ite.State != "dismissed" || ite.Action != "snooze" {
		t.Errorf("got state %q action %q", ite.State, ite.Action)
	}
}
