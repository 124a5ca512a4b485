package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeInvalidURL indicates a malformed scan target (400)
	ErrorTypeInvalidURL ErrorType = "invalid_url"
	// ErrorTypeNetwork indicates the scan backend was unreachable or returned
	// a failure. Recovered locally by the fallback classifier, never surfaced
	// as a hard error to callers.
	ErrorTypeNetwork ErrorType = "network_failure"
	// ErrorTypeMessaging indicates a relay to a tab or surface that is gone.
	// Always best-effort and swallowed.
	ErrorTypeMessaging ErrorType = "messaging_failure"
	// ErrorTypeStorage indicates a durable storage read/write failure.
	// Callers fail open (cache miss assumed) rather than aborting the scan.
	ErrorTypeStorage ErrorType = "storage_failure"
	// ErrorTypeAuthentication indicates a rejected master key (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// ScanError is the base error type for all service errors
type ScanError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ScanError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ScanError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidURL:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	case ErrorTypeMessaging:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *ScanError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewInvalidURLError creates a new invalid URL error (400)
func NewInvalidURLError(raw string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeInvalidURL,
		Message:    fmt.Sprintf("please enter a valid URL: %q", raw),
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNetworkError creates a new network failure error (502)
func NewNetworkError(message string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// NewMessagingError creates a new messaging failure error
func NewMessagingError(message string, err error) *ScanError {
	return &ScanError{
		Type:    ErrorTypeMessaging,
		Message: message,
		Err:     err,
	}
}

// NewStorageError creates a new storage failure error
func NewStorageError(message string, err error) *ScanError {
	return &ScanError{
		Type:    ErrorTypeStorage,
		Message: message,
		Err:     err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(message string) *ScanError {
	return &ScanError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}
