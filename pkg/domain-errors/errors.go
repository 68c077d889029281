// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values so transports can map failures to a response
// without string matching. Stores return sentinel facts (see pkg/platform/sentinel)
// which services translate into one of the codes below.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure. Codes are stable and safe to expose.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeDuplicateKey        Code = "duplicate_key"
	CodeAlreadyRegistered   Code = "already_registered"
	CodeAlreadySet          Code = "already_set"
	CodeForbidden           Code = "forbidden"
	CodeUnauthorized        Code = "unauthorized"
	CodeLocked              Code = "locked"
	CodeInactive            Code = "inactive"
	CodeAlreadyInactive     Code = "already_inactive"
	CodeInvalidInput        Code = "invalid_input"
	CodeConsensusNotReached Code = "consensus_not_reached"
	CodeBadRequest          Code = "bad_request"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error is a coded domain error. Err, when set, is the wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal
// when err carries no code. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
