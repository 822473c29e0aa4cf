package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AppError struct {
	Err     error    // actual error
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: one message per violated field
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
		Details: []string{message},
	}
}

// Invalid bundles several field violations into one validation error.
// Message is the first violation so callers that only print Error() still
// get something useful.
func Invalid(details []string) *AppError {
	msg := "validation failed"
	if len(details) > 0 {
		msg = details[0]
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Details: details,
	}
}

func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("email %s is already registered", email),
		Field:   "email",
	}
}

// InvalidCredentials is returned by login when the email is unknown or the
// password does not match. HTTP handlers map it to 400.
func InvalidCredentials(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: message,
	}
}
