// Package apperror defines the typed errors shared by every layer.
//
// Services and stores return *AppError values wrapping one of the sentinel
// errors below. Handlers never inspect messages: they use errors.Is against
// the sentinels (or StatusCode) to pick the HTTP status.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message, safe to show to clients
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the wrapped sentinel to an HTTP status.
func (e *AppError) StatusCode() int {
	switch {
	case errors.Is(e.Err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(e.Err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(e.Err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(e.Err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(e.Err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NotFound reports a missing aggregate or sub-entity, e.g.
// NotFound("event", id) → "event not found with id <id>".
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict is returned when a write loses a race (optimistic version
// mismatch) or violates a uniqueness constraint.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means no identity, or an identity that failed verification.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
