package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// APIError represents a structured error from the remote API client
type APIError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// DisplayMessage returns the message suitable for direct user display.
// The backend's own error text is preserved when it was parseable.
func (e *APIError) DisplayMessage() string {
	return e.Message
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewTransportError creates an error for failures before any HTTP response
// (DNS, connect, timeout, cancelled context).
func NewTransportError(endpoint string, cause error) *APIError {
	return &APIError{
		Type:     "TRANSPORT_ERROR",
		Message:  "could not reach the server",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// NewUnauthenticatedError creates an error for requests that need a session
// token when none is available.
func NewUnauthenticatedError(endpoint string) *APIError {
	return &APIError{
		Type:       "UNAUTHENTICATED",
		Message:    "no authentication token available",
		Endpoint:   endpoint,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewUnauthorizedError creates an error for 401/403 responses
func NewUnauthorizedError(message, endpoint string) *APIError {
	return &APIError{
		Type:       "UNAUTHORIZED",
		Message:    message,
		Endpoint:   endpoint,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewNotFoundError creates an error for 404 responses
func NewNotFoundError(message, endpoint string) *APIError {
	return &APIError{
		Type:       "NOT_FOUND",
		Message:    message,
		Endpoint:   endpoint,
		StatusCode: http.StatusNotFound,
	}
}

// NewValidationError creates an error for rejected request payloads
func NewValidationError(message string, cause error) *APIError {
	return &APIError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewServerError creates an error for any other non-2xx response
func NewServerError(message, endpoint string, statusCode int) *APIError {
	return &APIError{
		Type:       "SERVER_ERROR",
		Message:    message,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// NewDecodeError creates an error for unparseable success responses
func NewDecodeError(endpoint string, cause error) *APIError {
	return &APIError{
		Type:     "DECODE_ERROR",
		Message:  "could not decode server response",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// AsAPIError extracts an *APIError from an error chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Type == errorType
	}
	return false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsUnauthorized checks if an error means the session is missing or rejected
func IsUnauthorized(err error) bool {
	return IsErrorType(err, "UNAUTHORIZED") || IsErrorType(err, "UNAUTHENTICATED")
}

// IsTransport checks if an error happened before any HTTP response arrived
func IsTransport(err error) bool {
	return IsErrorType(err, "TRANSPORT_ERROR")
}
