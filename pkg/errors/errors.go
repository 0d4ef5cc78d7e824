package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed domain error identified by a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their template.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrDuplicateEnrollment    = New("DUPLICATE_ENROLLMENT", "student already enrolled in course")
	ErrMaxCreditLimitExceeded = New("MAX_CREDIT_LIMIT_EXCEEDED", "enrollment exceeds maximum credits")
	ErrInvalidMarks           = New("INVALID_MARKS", "marks must be between 0 and 100")
	ErrNotFound               = New("NOT_FOUND", "resource not found")
	ErrConflict               = New("CONFLICT", "conflict")
	ErrPreconditionFailed     = New("PRECONDITION_FAILED", "precondition failed")
	ErrValidation             = New("VALIDATION_ERROR", "validation failed")
	ErrInternal               = New("INTERNAL_ERROR", "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
