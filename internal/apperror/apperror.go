// Package apperror defines the error kinds shared by every layer.
//
// Callers test the kind with errors.Is against a sentinel; an *AppError adds the
// text shown to the visitor and, for validation, the offending form field.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBusy         = errors.New("busy")
)

// AppError is an error kind with a user-facing message.
type AppError struct {
	Err     error  // one of the sentinels
	Message string // shown to the visitor
	Field   string // form field at fault, if any
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
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden means the viewer is signed in but may not touch the resource.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// Unauthorized means the viewer must sign in before the action is allowed.
// Page handlers redirect to /signin instead of rendering an error.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

// Busy reports that a toggle for the same resource is still waiting for the backend.
func Busy(resource, id string) *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: fmt.Sprintf("%s %s is already being updated", resource, id),
	}
}
