package shared

import (
	"errors"
	"strings"
)

// Error codes shared by every bounded context
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInternal            = "INTERNAL"
)

// FieldError describes a single violated field constraint
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeConflict, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// NewNotFoundError creates a NOT_FOUND error naming the missing entity
func NewNotFoundError(entity string) *DomainError {
	return NewDomainError(CodeNotFound, entity+" not found")
}

// NewInvalidStateError creates an INVALID_STATE error explaining the failed precondition
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewInvalidTransitionError creates an INVALID_TRANSITION error
func NewInvalidTransitionError(message string) *DomainError {
	return NewDomainError(CodeInvalidTransition, message)
}

// NewConflictError creates a CONFLICT error
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// ValidationErrors collects every violated field constraint before failing
type ValidationErrors struct {
	fields []FieldError
}

// Add records a violation for field
func (v *ValidationErrors) Add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// Merge appends violations from other
func (v *ValidationErrors) Merge(other []FieldError) {
	v.fields = append(v.fields, other...)
}

// HasErrors reports whether any violation has been recorded
func (v *ValidationErrors) HasErrors() bool {
	return len(v.fields) > 0
}

// Fields returns the recorded violations
func (v *ValidationErrors) Fields() []FieldError {
	return v.fields
}

// Err returns nil when there are no violations, otherwise a VALIDATION_ERROR
// listing all of them.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewValidationError(v.fields)
}

// NewValidationError creates a VALIDATION_ERROR carrying field details
func NewValidationError(fields []FieldError) *DomainError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: "Validation failed: " + strings.Join(msgs, "; "),
		Details: fields,
	}
}

// IsNotFound reports whether err is a NOT_FOUND domain error
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInvalidState reports whether err is an INVALID_STATE domain error
func IsInvalidState(err error) bool {
	return hasCode(err, CodeInvalidState)
}

// IsConcurrencyConflict reports whether err is an optimistic locking conflict
func IsConcurrencyConflict(err error) bool {
	return hasCode(err, CodeConcurrencyConflict)
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
