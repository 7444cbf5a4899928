package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure that knows its HTTP status and a stable code clients can switch on. Err is
// kept for logs and never serialised.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New declares an error kind.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap reports err to clients as code/status/message while keeping it for errors.Is and logs.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	// ErrNotFound covers unknown concern and resident ids.
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	// ErrConflict is returned for a resident email that is already registered.
	ErrConflict = New("CONFLICT", http.StatusConflict, "conflict")
	// ErrValidation rejects payloads before they reach storage or the verification queue.
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	// ErrQueueUnavailable means the verification queue is stopped or not started.
	ErrQueueUnavailable  = New("QUEUE_UNAVAILABLE", http.StatusServiceUnavailable, "verification queue unavailable")
	ErrUnsupportedFormat = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")
)

// ErrCacheMiss signals an absent stats cache entry. It never reaches HTTP clients.
var ErrCacheMiss = errors.New("cache miss")

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether err means the concern or resident no longer exists.
func IsNotFound(err error) bool {
	return HasCode(err, ErrNotFound.Code)
}

// FromError maps err onto an *Error; anything untyped becomes ErrInternal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a declared kind with a request-specific message.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
