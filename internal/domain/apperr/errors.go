package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-checkable category of an engine error.
type Kind string

const (
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindExpired      Kind = "expired"
	KindRateLimited  Kind = "rate_limited"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error carries a Kind, a client-safe Message and an optional internal Cause.
// Cause is for logs only and never reaches a response body.
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

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Expired(msg string) *Error      { return New(KindExpired, msg) }
func RateLimited(msg string) *Error  { return New(KindRateLimited, msg) }
func Validation(msg string) *Error   { return New(KindValidation, msg) }

// Internal wraps an unexpected failure behind a generic message.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal server error", cause)
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
