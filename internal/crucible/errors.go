package crucible

import (
	"fmt"
	"net/http"
)

// ErrorFormat indicates durable text that could not be decoded back into a
// message or expectation. It is fatal to the load that encountered it.
func ErrorFormat() *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Type:       "crucible#FormatError",
	}
}

// ErrorTestCaseNotFound indicates no storage location exists for a test id.
func ErrorTestCaseNotFound() *Error {
	return &Error{
		StatusCode: http.StatusNotFound,
		Type:       "crucible#TestCaseNotFound",
	}
}

// ErrorCorruptTestCase indicates a present action index is missing one of its
// sibling artifacts, or an artifact violates an expectation invariant.
func ErrorCorruptTestCase() *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Type:       "crucible#CorruptTestCase",
	}
}

// ErrorSessionConflict indicates a replay session was started while another
// one is still active; the caller may retry after clearing it.
func ErrorSessionConflict() *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Type:       "crucible#SessionConflict",
	}
}

// ErrorNoSessionInProgress indicates a check was requested with no replay
// session active.
func ErrorNoSessionInProgress() *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Type:       "crucible#NoSessionInProgress",
	}
}

// Error is the common error shape returned by the harness core.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"msg"`
}

func (e Error) WithMessage(message string) *Error {
	e.Message = message
	return &e
}

func (e Error) WithMessagef(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return &e
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
