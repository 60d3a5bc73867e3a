package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// AppError is the unified provider error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// StatusCode is the remote HTTP status, when one exists (0 otherwise).
	StatusCode int `json:"-"`
	// RetryAfter is the provider-supplied wait hint for rate-limit responses.
	// Zero means no hint was given.
	RetryAfter time.Duration `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// ServiceUnavailable creates a new AppError for a platform that is temporarily unavailable.
func ServiceUnavailable(platform string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("%s is temporarily unavailable", platform),
		Retryable: true,
		Details:   map[string]any{"platform": platform},
	}
}

// ConnectionFailed creates a new AppError for a failed connection.
func ConnectionFailed(platform string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to connect to %s", platform),
		Retryable: true, Cause: cause,
		Details: map[string]any{"platform": platform},
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("operation %s timed out", operation),
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// RateLimited creates a new AppError for a provider rate-limit rejection.
// retryAfter carries the Retry-After hint; pass 0 when the provider gave none.
func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "rate limit exceeded on remote platform",
		Retryable:  true,
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

// Server creates a new AppError for a 5xx-class response.
func Server(statusCode int, body string) *AppError {
	return &AppError{
		Code: ErrCodeServer, Message: fmt.Sprintf("server error (HTTP %d): %s", statusCode, body),
		Retryable:  true,
		StatusCode: statusCode,
	}
}

// Validation creates a new AppError for a rejected request payload.
func Validation(reason string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: fmt.Sprintf("invalid request: %s", reason),
		Retryable:  false,
		StatusCode: 400,
	}
}

// Unauthorized creates a new AppError for missing or invalid credentials.
func Unauthorized(platform string) *AppError {
	return &AppError{
		Code: ErrCodeUnauthorized, Message: fmt.Sprintf("authentication against %s failed", platform),
		Retryable:  false,
		StatusCode: 401,
		Details:    map[string]any{"platform": platform},
	}
}

// NotFound creates a new AppError for a missing remote resource.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("the requested %s was not found", resource),
		Retryable:  false,
		StatusCode: 404,
		Details:    details,
	}
}

// Cancelled creates a new AppError for an operation cancelled before it started.
func Cancelled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: fmt.Sprintf("operation %s cancelled", operation),
		Retryable: false,
		Details:   map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal engine error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: message,
		Retryable: false, Cause: cause,
	}
}

// FromStatusCode classifies an HTTP response status into an AppError.
// Provider adapters use this to translate REST responses uniformly.
func FromStatusCode(statusCode int, body string) *AppError {
	switch {
	case statusCode == 429:
		return RateLimited(0)
	case statusCode == 401:
		return &AppError{Code: ErrCodeUnauthorized, Message: "authentication failed", StatusCode: statusCode}
	case statusCode == 403:
		return &AppError{Code: ErrCodeForbidden, Message: "permission denied", StatusCode: statusCode}
	case statusCode == 404:
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", StatusCode: statusCode}
	case statusCode >= 500:
		return Server(statusCode, body)
	case statusCode >= 400:
		return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf("request rejected (HTTP %d): %s", statusCode, body), StatusCode: statusCode}
	default:
		return Internal(fmt.Sprintf("unexpected status %d", statusCode), nil)
	}
}

// --- Classification helpers ---

// IsRetryable reports whether err (or anything it wraps) is a retryable AppError.
// Non-AppError values are conservatively treated as not retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// IsCode reports whether err wraps an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// RetryAfterHint extracts the provider's Retry-After hint from err, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.RetryAfter > 0 {
		return appErr.RetryAfter, true
	}
	return 0, false
}

// AsAppError extracts an *AppError from err's chain, if present.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}
