package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the remote platform is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to the remote platform.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the provider rejected the call with a rate-limit signal.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeServer indicates a server-side (5xx class) error from the provider.
	ErrCodeServer ErrorCode = "SERVER_ERROR"
)

// Request errors (not retryable)
const (
	// ErrCodeValidation indicates the provider rejected the request payload.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeUnauthorized indicates missing or invalid credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the credentials lack permission for the resource.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotFound indicates the requested resource does not exist on the remote.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Engine errors
const (
	// ErrCodeCancelled indicates the run was cancelled before the operation started.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeInternal indicates an internal engine error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeServer:             true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
