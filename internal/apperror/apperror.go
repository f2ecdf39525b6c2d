// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer maps them to status
// codes in exactly one place (handler/response.go). Nothing outside the
// handler package knows about HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel category (ErrNotFound, ErrValidation, ...)
	Message string // human-readable, safe to return to the client
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

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

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized returns an AppError for any authentication failure.
//
// IMPORTANT: the message is deliberately generic and identical across
// sub-causes (unknown email, wrong password, missing/expired token,
// deleted-but-tokened user). Distinguishing them would leak which
// accounts exist. Only server-side logs may differ.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
