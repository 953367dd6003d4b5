// Package errors provides the typed request errors returned by the planning
// core, plus transient-failure classification and retry helpers used by the
// LLM clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a structured failure carrying an HTTP-style status. The planner
// returns these as values; the HTTP layer maps Status to the response code
// and the CLI maps any Error to exit code 1.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest marks a malformed or incomplete request.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound marks a request that matched nothing.
func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. The cause stays reachable through
// Unwrap for logging; the message is what callers see.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

// StatusOf returns the HTTP status carried by err, or 500 for untyped errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// IsBadRequest reports whether err is a 400-class typed error.
func IsBadRequest(err error) bool {
	return StatusOf(err) == http.StatusBadRequest && isTyped(err)
}

// IsNotFound reports whether err is a 404-class typed error.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound && isTyped(err)
}

func isTyped(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
