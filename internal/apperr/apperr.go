// Package apperr holds the error taxonomy shared by the HTTP API, the services
// and the client adapters. Callers classify errors with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden")
	ErrNotSupported       = errors.New("not supported")
	ErrUnavailable        = errors.New("backend unavailable")
)

// Error carries a human readable message on top of one of the sentinels.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New wraps kind with a custom message.
func New(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Invalid is shorthand for an InvalidInput error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

var table = []struct {
	kind   error
	status int
	code   string
}{
	{ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials"},
	{ErrConflict, http.StatusConflict, "conflict"},
	{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{ErrForbidden, http.StatusForbidden, "forbidden"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrNotSupported, http.StatusNotImplemented, "not_supported"},
	{ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// Status maps err to an HTTP status; unknown errors are 500.
func Status(err error) int {
	for _, t := range table {
		if errors.Is(err, t.kind) {
			return t.status
		}
	}
	return http.StatusInternalServerError
}

// Code maps err to the stable machine code used in error bodies.
func Code(err error) string {
	for _, t := range table {
		if errors.Is(err, t.kind) {
			return t.code
		}
	}
	return "internal_error"
}

// FromCode is the inverse of Code. It is used by the HTTP client adapter to
// turn an error body back into a sentinel.
func FromCode(code string) error {
	for _, t := range table {
		if t.code == code {
			return t.kind
		}
	}
	return nil
}

// FromStatus is the fallback used when a response carries no code.
func FromStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidInput
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotImplemented:
		return ErrNotSupported
	}
	return ErrUnavailable
}

// Message returns the text that is safe to show to API callers.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	for _, t := range table {
		if errors.Is(err, t.kind) {
			return t.kind.Error()
		}
	}
	return "internal error"
}
