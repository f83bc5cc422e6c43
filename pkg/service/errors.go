package service

import (
	"errors"
	"fmt"
	"strings"

	"withdrawal_settlement/pkg/validation"
	"withdrawal_settlement/pkg/workflow"
)

var (
	ErrNotFound              = errors.New("withdrawal request not found")
	ErrForbidden             = errors.New("actor lacks the required capability")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrInvalidTransition = workflow.ErrInvalidTransition
	ErrTerminalState     = workflow.ErrTerminalState
	ErrMissingReason     = workflow.ErrMissingReason
	ErrUnknownAction     = workflow.ErrUnknownEvent
)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed at submit time. Nothing
// is persisted when it is returned.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed with code.
func (e *ValidationError) Has(field, code string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field && fe.Code == code {
			return true
		}
	}
	return false
}

// NewValidationError merges an amount failure and detail failures. It
// returns nil when there is nothing to report.
func NewValidationError(amountErr error, details []*validation.DetailError) *ValidationError {
	var verr ValidationError
	var ae *validation.AmountError
	if errors.As(amountErr, &ae) {
		verr.Errors = append(verr.Errors, FieldError{Field: "amount", Code: string(ae.Kind), Message: ae.Error()})
	}
	for _, de := range details {
		verr.Errors = append(verr.Errors, FieldError{Field: de.Field, Code: string(de.Kind), Message: de.Error()})
	}
	if len(verr.Errors) == 0 {
		return nil
	}
	return &verr
}
