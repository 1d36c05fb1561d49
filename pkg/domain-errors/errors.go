// Package domainerrors defines the error type shared by all services.
//
// Every error that crosses a service boundary carries a stable Code so
// transports and consumers can branch on kind without string matching.
// Stores stay on sentinel errors; services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of a domain error.
type Code string

const (
	CodeInternal           Code = "INTERNAL"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeValidation         Code = "VALIDATION"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeTimeout            Code = "TIMEOUT"

	// Lifecycle-specific codes.
	CodeReferenceNotFound     Code = "REFERENCE_NOT_FOUND"
	CodeDuplicateSubmission   Code = "DUPLICATE_SUBMISSION"
	CodeFinalized             Code = "FINALIZED"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeInvalidDocumentType   Code = "INVALID_DOCUMENT_TYPE"
	CodeDocumentNotFound      Code = "DOCUMENT_NOT_FOUND"
	CodeNotSchedulable        Code = "NOT_SCHEDULABLE"
	CodeNotCompleted          Code = "NOT_COMPLETED"
	CodeDeserialization       Code = "DESERIALIZATION_FAILURE"
	CodeDownstreamUnavailable Code = "DOWNSTREAM_UNAVAILABLE"
)

// Error is a domain error with a stable code and human-readable message.
type Error struct {
	code Code
	msg  string
	err  error
}

// New builds a domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Code returns the stable error code.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable message without the wrapped cause.
func (e *Error) Message() string { return e.msg }

func (e *Error) Unwrap() error { return e.err }

// Is matches two domain errors by code, so sentinel-style comparisons like
// errors.Is(err, domainerrors.New(CodeNotFound, "")) behave as expected.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.code == t.code
}

// HasCode reports whether any error in the chain is a domain error with the
// given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.code == code
}

// CodeOf extracts the code from the chain, defaulting to CodeInternal for
// non-domain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}
