package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a service failure for the API boundary.
type Code string

const (
	InvalidArgument Code = "INVALID_ARGUMENT"
	NotFound        Code = "NOT_FOUND"
	Unauthorized    Code = "UNAUTHORIZED"
	Conflict        Code = "CONFLICT"
	Internal        Code = "INTERNAL"
)

type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap keeps the underlying cause for logging while the message stays
// safe to return to the client.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewInvalidArgument(message string) *AppError { return New(InvalidArgument, message) }
func NewNotFound(message string) *AppError        { return New(NotFound, message) }
func NewUnauthorized(message string) *AppError    { return New(Unauthorized, message) }
func NewConflict(message string) *AppError        { return New(Conflict, message) }

// NewInternal hides storage-layer detail behind a generic message.
func NewInternal(err error) *AppError {
	return Wrap(Internal, "internal error", err)
}

// From classifies an arbitrary error. Unknown errors become Internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
