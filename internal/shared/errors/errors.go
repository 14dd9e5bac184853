package errors

import (
	"errors"
	"net/http"
)

// Error kinds. Every module error wraps exactly one of these so the HTTP
// layer can map it without knowing the module.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrUpstream     = errors.New("upstream service failure")
	ErrInternal     = errors.New("internal error")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Kind       error  `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Is matches another AppError with the same code and message, so copies
// made by WithCause still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of e wrapping cause.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, kind error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Kind:       kind,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return NewAppError("VALIDATION_ERROR", message, http.StatusBadRequest, ErrValidation)
}

// NotFound creates a not found error.
func NotFound(message string) *AppError {
	if message == "" {
		message = "not found"
	}
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, ErrNotFound)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError("FORBIDDEN", message, http.StatusForbidden, ErrForbidden)
}

// Duplicate creates a duplicate error. Duplicates are reported as 400 and
// callers treat them as an idempotent outcome.
func Duplicate(message string) *AppError {
	return NewAppError("DUPLICATE", message, http.StatusBadRequest, ErrDuplicate)
}

// Upstream creates an upstream failure error wrapping cause.
func Upstream(message string, cause error) *AppError {
	e := NewAppError("UPSTREAM_ERROR", message, http.StatusInternalServerError, ErrUpstream)
	e.Err = cause
	return e
}

// Internal creates an internal error wrapping cause.
func Internal(message string, cause error) *AppError {
	e := NewAppError("INTERNAL_ERROR", message, http.StatusInternalServerError, ErrInternal)
	e.Err = cause
	return e
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to API callers.
// Server-side failures never leak their cause.
func PublicMessage(err error) string {
	status := GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		if errors.Is(err, ErrUpstream) {
			return "upstream service unavailable"
		}
		return "internal server error"
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
