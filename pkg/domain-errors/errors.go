// Package domainerrors carries coded errors from services to the transport layer.
//
// Services return these errors (optionally wrapping an infrastructure cause) and the
// HTTP layer maps the code to a stable status and a client-facing error envelope.
// Infrastructure facts (not found, conflict, unavailable) live in pkg/platform/sentinel
// and are translated into coded errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, client-facing error classification.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeInsufficientCredits Code = "insufficient_credits"
	CodeWaiverRequired      Code = "waiver_required"
	CodeNoCasesAvailable    Code = "no_cases_available"
	CodeBadSignature        Code = "bad_signature"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeValidation          Code = "validation_error"
	CodeGateway             Code = "gateway_error"
	CodeUnavailable         Code = "unavailable"
	CodeBadRequest          Code = "bad_request"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeConflict            Code = "conflict"
	CodeRateLimited         Code = "rate_limited"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to clients unless the
// code is CodeInternal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// From extracts the outermost coded error from the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	if de, ok := From(err); ok {
		return de.Code
	}
	return CodeInternal
}
