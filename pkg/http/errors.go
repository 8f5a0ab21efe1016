package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
		Params:  make(map[string]interface{}),
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// ValidationErr creates a 400 error for bad local input.
func ValidationErr(message string) *AppError {
	return NewAppError("ERR_VALIDATION", "", message, http.StatusBadRequest)
}

// ValidationErrf creates a 400 error with formatting.
func ValidationErrf(format string, a ...interface{}) *AppError {
	return ValidationErr(fmt.Sprintf(format, a...))
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

// RateLimitedError creates a 429 error. ResilientCache retries these with
// backoff; every other class propagates immediately.
func RateLimitedError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// ServiceUnavailableError creates a 503 error for a failed external
// dependency call. The circuit breaker counts these.
func ServiceUnavailableError(message string) *AppError {
	return NewAppError("ERR_SERVICE_UNAVAILABLE", "", message, http.StatusServiceUnavailable)
}

// ServiceUnavailableErrorf creates a 503 error with formatting.
func ServiceUnavailableErrorf(format string, a ...interface{}) *AppError {
	return ServiceUnavailableError(fmt.Sprintf(format, a...))
}

// PersistenceError creates a 500 error for a failed store operation.
func PersistenceError(message string) *AppError {
	return NewAppError("ERR_PERSISTENCE", "", message, http.StatusInternalServerError)
}

// PersistenceErrorf creates a 500 error with formatting.
func PersistenceErrorf(format string, a ...interface{}) *AppError {
	return PersistenceError(fmt.Sprintf(format, a...))
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// IsRateLimited reports whether err is a rate-limit-class failure
// (ERR_RATE_LIMITED, HTTP 429, or an upstream "Too Many Requests" message).
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

// IsNotFound reports whether err is a not-found-class failure.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status == http.StatusNotFound
	}
	return false
}
