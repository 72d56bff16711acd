// Package apperr defines the engine's error taxonomy: a closed set of Kind
// values shared by every component, with constructors that wrap an
// underlying cause the way the rest of the codebase wraps errors with
// fmt.Errorf and %w.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the thirteen taxonomy values every component-facing error
// must map to.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindTransportError    Kind = "transport_error"
	KindDecodeError       Kind = "decode_error"
	KindDimensionMismatch Kind = "dimension_mismatch"
	KindResourceExhausted Kind = "resource_exhausted"
	KindTimeout           Kind = "timeout"
	KindAdapterFailure    Kind = "adapter_failure"
	KindRetrievalError    Kind = "retrieval_error"
	KindSchemaViolation   Kind = "schema_violation"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

// Error pairs a Kind with a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to traverse into the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping cause. If cause is nil,
// Wrap returns nil so call sites can write `return apperr.Wrap(k, "...", err)`
// unconditionally.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// KindInternal otherwise — the fallback every boundary layer should use
// before mapping to a transport-level code.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func Internal(cause error, format string, args ...any) *Error {
	return Wrap(KindInternal, fmt.Sprintf(format, args...), cause)
}
