// Package errors defines the structured error taxonomy returned by the
// portal services. Service layers return these instead of raw database or
// transport errors so that handlers can map them to HTTP statuses uniformly.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies the error category.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// ServiceError is a structured application error. Callers receive the
// Message and Details; Err carries the underlying cause for server-side
// logging only.
type ServiceError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a key/value detail and returns the error for
// chaining.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Validation reports missing or malformed caller input.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports a missing, invalid or expired identity token.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeAuthentication, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden reports an authenticated request denied by policy.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NotFound reports an absent record or file slot.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// Conflict reports a unique-constraint violation.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Internal wraps an unexpected failure. The caller-visible message stays
// generic; err is preserved for logging.
func Internal(message string, err error) *ServiceError {
	if message == "" {
		message = "An unexpected error occurred."
	}
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// GetServiceError extracts a *ServiceError from err, or nil when err is not
// one.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// IsCode reports whether err is a ServiceError with the given code.
func IsCode(err error, code Code) bool {
	svcErr := GetServiceError(err)
	return svcErr != nil && svcErr.Code == code
}

func IsValidation(err error) bool { return IsCode(err, CodeValidation) }
func IsForbidden(err error) bool  { return IsCode(err, CodeForbidden) }
func IsNotFound(err error) bool   { return IsCode(err, CodeNotFound) }
func IsConflict(err error) bool   { return IsCode(err, CodeConflict) }
