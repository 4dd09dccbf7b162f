// Package errors defines the sentinel errors shared across the service and
// an AppError type that carries the HTTP status a handler should answer with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPolicyNotFound = errors.New("policy not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidDataset = errors.New("invalid policy dataset")
	ErrNotConfigured  = errors.New("not configured")
	ErrUpstream       = errors.New("upstream request failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInternal       = errors.New("internal error")
	ErrTimeout        = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrPolicyNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
