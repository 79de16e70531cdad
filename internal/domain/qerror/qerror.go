// Package qerror defines the coded error taxonomy shared by the question
// pipeline. Codes are stable strings surfaced to API callers; per-package
// sentinel errors stay local to their packages and get wrapped into one of
// these at the boundary.
package qerror

import (
	"errors"
	"fmt"
)

// Code represents stable error codes for all pipeline failure modes.
type Code string

const (
	// CodeAmbiguousEntity indicates multiple equally likely name matches.
	CodeAmbiguousEntity Code = "AMBIGUOUS_ENTITY"
	// CodeNoEntityFound indicates a role expected an entity but none cleared the floor.
	CodeNoEntityFound Code = "NO_ENTITY_FOUND"
	// CodeConflictingFilter indicates two mutually exclusive predicates were inferred.
	CodeConflictingFilter Code = "CONFLICTING_FILTER"
	// CodeUnresolvableIntent indicates no query shape matched the question.
	CodeUnresolvableIntent Code = "UNRESOLVABLE_INTENT"
	// CodeUnsupportedShape indicates the assembler has no template for the shape.
	// This is an engine gap, not a user problem.
	CodeUnsupportedShape Code = "UNSUPPORTED_SHAPE"
	// CodeQueryTimeout indicates row store execution exceeded the deadline.
	CodeQueryTimeout Code = "QUERY_TIMEOUT"
	// CodeRowStoreError indicates the executor reported a failure.
	CodeRowStoreError Code = "ROW_STORE_ERROR"
)

// Error is a coded pipeline error. Candidates carries the tied entity names
// for AmbiguousEntity; Details is free-form context for logs and responses.
type Error struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	Candidates []string       `json:"candidates,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	cause      error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around a cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCandidates attaches the tied entity names.
func (e *Error) WithCandidates(names ...string) *Error {
	e.Candidates = names
	return e
}

// WithDetail attaches one detail key.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Recoverable reports whether the caller should treat err as a user-input
// problem worth a clarifying message rather than an engine defect.
func Recoverable(err error) bool {
	switch CodeOf(err) {
	case CodeAmbiguousEntity, CodeNoEntityFound, CodeConflictingFilter, CodeUnresolvableIntent:
		return true
	default:
		return false
	}
}
