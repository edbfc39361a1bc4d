package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes.
const (
	ErrBadRequest        = "BAD_REQUEST"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrForbidden         = "FORBIDDEN"
	ErrNotFound          = "NOT_FOUND"
	ErrConflict          = "CONFLICT"
	ErrValidationError   = "VALIDATION_ERROR"
	ErrRateLimited       = "RATE_LIMITED"
	ErrInternalError     = "INTERNAL_ERROR"
	ErrPortalUnavailable = "PORTAL_UNAVAILABLE"
	ErrPortalTimeout     = "PORTAL_TIMEOUT"
)

// Session-specific error codes.
const (
	ErrNoRefreshToken = "NO_REFRESH_TOKEN"
	ErrRefreshFailed  = "REFRESH_FAILED"
)

// APIError is the typed failure returned for any non-2xx portal response.
// It carries the HTTP status and, when the response body could be parsed,
// the error payload the portal returned. A body that fails to parse is
// tolerated and leaves Payload nil.
type APIError struct {
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details []FieldError   `json:"details,omitempty"`
	Payload map[string]any `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("portal returned status %d", e.Status)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not an
// APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrUnauthorized, Message: msg}
}

// NewNoRefreshTokenError is returned when a refresh is requested with no
// stored refresh token. No network call is made in that case.
func NewNoRefreshTokenError() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    ErrNoRefreshToken,
		Message: "no refresh token stored, re-authentication required",
	}
}

// NewRefreshFailedError wraps a failed token refresh. The session is torn
// down before this error reaches the caller.
func NewRefreshFailedError(cause error) *APIError {
	msg := "token refresh failed, re-authentication required"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &APIError{Status: http.StatusUnauthorized, Code: ErrRefreshFailed, Message: msg}
}

// NewPortalUnavailableError returns a PORTAL_UNAVAILABLE error for network
// level failures (connection refused, DNS).
func NewPortalUnavailableError() *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    ErrPortalUnavailable,
		Message: "the portal is temporarily unreachable",
	}
}

// NewPortalTimeoutError returns a PORTAL_TIMEOUT error.
func NewPortalTimeoutError() *APIError {
	return &APIError{
		Status:  http.StatusGatewayTimeout,
		Code:    ErrPortalTimeout,
		Message: "the portal did not respond in time",
	}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}
