package services

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyOpenSession = errors.New("You are already clocked in. Clock out before clocking in again.")
	ErrNoOpenSession      = errors.New("You are not clocked in.")
	ErrInvalidTimestamp   = errors.New("Invalid timestamp (ISO datetime expected).")
	ErrForbidden          = errors.New("Not allowed.")
	ErrNotFound           = errors.New("Not found.")
	ErrValidation         = errors.New("Invalid request.")
	ErrConflict           = errors.New("Already exists.")
	ErrInvalidCredentials = errors.New("Invalid credentials.")
)

// Error carries a caller-facing message while still matching its sentinel
// kind through errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func notFound(what string) error {
	return newError(ErrNotFound, "%s not found.", what)
}

func invalid(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// ErrorKind maps an error to a stable logging label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyOpenSession):
		return "already_open_session"
	case errors.Is(err, ErrNoOpenSession):
		return "no_open_session"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
