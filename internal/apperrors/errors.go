// Package apperrors holds the error taxonomy shared by the services and the
// HTTP boundary. Services return one of the sentinels (optionally wrapped in
// *Error for a client-facing message); handlers map them to status codes.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
	ErrRateLimited        = errors.New("too many requests")
	ErrInternal           = errors.New("internal error")
)

// Error carries a client-safe message and, for validation failures, a
// field -> message map. The underlying cause is kept for logging only and is
// not reachable through errors.Unwrap.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

// Cause returns the wrapped storage or driver error, if any.
func (e *Error) Cause() error { return e.cause }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func AlreadyExists(msg string) error { return &Error{Kind: ErrAlreadyExists, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

func Unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Message: msg} }

func Validation(fields map[string]string) error {
	return &Error{Kind: ErrValidation, Message: ErrValidation.Error(), Fields: fields}
}

// Internal hides cause behind msg.
func Internal(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Message: msg, cause: cause}
}

// Status maps err onto an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to a client.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch Status(err) {
	case http.StatusInternalServerError:
		return "Internal server error"
	default:
		return err.Error()
	}
}

// FieldErrors returns the validation map carried by err, if any.
func FieldErrors(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// CauseOf digs out the hidden storage cause for logging.
func CauseOf(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.cause != nil {
		return appErr.cause
	}
	return err
}
