package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicate         Kind = "DUPLICATE"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindStoreIntegrity    Kind = "STORE_INTEGRITY"
	KindValidation        Kind = "VALIDATION"
	KindPartialBatch      Kind = "PARTIAL_BATCH"
	KindInternal          Kind = "INTERNAL"
)

// Error represents a typed domain error.
type Error struct {
	Kind    Kind   `json:"kind"`
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

// Is matches errors sharing the same Kind, so callers can compare against
// the predefined sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && e.Kind == t.Kind
}

// New creates a new Error instance.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound          = New(KindNotFound, "record not found")
	ErrDuplicate         = New(KindDuplicate, "duplicate record")
	ErrInvalidTransition = New(KindInvalidTransition, "operation not permitted in current state")
	ErrStoreIntegrity    = New(KindStoreIntegrity, "database file integrity problem")
	ErrValidation        = New(KindValidation, "validation failed")
	ErrPartialBatch      = New(KindPartialBatch, "some batch items failed")
	ErrInternal          = New(KindInternal, "internal error")
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
	return Wrap(err, KindInternal, ErrInternal.Message)
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

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
