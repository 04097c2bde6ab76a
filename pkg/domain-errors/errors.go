// Package domainerrors carries coded errors across the service boundary.
// Services translate store sentinels and collaborator failures into coded
// errors; the HTTP layer maps codes onto status codes without inspecting
// error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and retry semantics.
type Code string

const (
	// CodeBadRequest marks caller-input faults. Never retried.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a rejected credential, e.g. an invalid or
	// already redeemed confirmation token.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a natural-key collision.
	CodeConflict Code = "conflict"
	// CodeUnavailable marks a transient downstream failure the caller may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures. Details stay server-side.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	code  Code
	msg   string
	cause error
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Wrap creates a coded error around a cause. The cause stays reachable
// through errors.Is/errors.As for sentinel checks.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the classification of this error.
func (e *Error) Code() Code { return e.code }

// Message returns the caller-facing description without the wrapped cause.
func (e *Error) Message() string { return e.msg }

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks as a success.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
