package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Post Errors
	ErrPostNotFound = &DomainError{
		Code:    "POST_NOT_FOUND",
		Message: "post not found",
	}

	// Auth Errors
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "Incorrect email or password",
	}
	ErrAuthCheckFailed = &DomainError{
		Code:    "AUTH_CHECK_FAILED",
		Message: "session check failed",
	}

	// Data Errors
	ErrDataUnavailable = &DomainError{
		Code:    "DATA_UNAVAILABLE",
		Message: "Data unavailable",
	}

	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}

	// Infrastructure Errors
	ErrDatabaseOperation = &DomainError{
		Code:    "DATABASE_OPERATION_FAILED",
		Message: "database operation failed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapPostNotFound wraps an error as a post not found error
func WrapPostNotFound(postID string, cause error) error {
	return &DomainError{
		Code:    ErrPostNotFound.Code,
		Message: fmt.Sprintf("post not found: %s", postID),
		Cause:   cause,
	}
}

// WrapAuthCheckFailed wraps a failure of the session validity probe
func WrapAuthCheckFailed(cause error) error {
	return &DomainError{
		Code:    ErrAuthCheckFailed.Code,
		Message: ErrAuthCheckFailed.Message,
		Cause:   cause,
	}
}

// WrapDataUnavailable wraps a failed fetch of display data
func WrapDataUnavailable(source string, cause error) error {
	return &DomainError{
		Code:    ErrDataUnavailable.Code,
		Message: fmt.Sprintf("%s unavailable", source),
		Cause:   cause,
	}
}

// WrapValidationError wraps an error as a validation failure for a field.
// The cause text is kept in the public message so callers can show it.
func WrapValidationError(field string, cause error) error {
	msg := fmt.Sprintf("validation failed for %s", field)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: msg,
		Cause:   cause,
	}
}

// WrapDatabaseOperation wraps an error as a database operation failure
func WrapDatabaseOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrDatabaseOperation.Code,
		Message: fmt.Sprintf("database operation failed: %s", operation),
		Cause:   cause,
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

func hasCode(err error, codes ...string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	for _, code := range codes {
		if domainErr.Code == code {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrPostNotFound.Code)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasCode(err, ErrValidationFailed.Code)
}

// IsInvalidCredentials checks if an error reports rejected credentials
func IsInvalidCredentials(err error) bool {
	return hasCode(err, ErrInvalidCredentials.Code)
}

// IsAuthCheckFailure checks if an error comes from the session validity probe
func IsAuthCheckFailure(err error) bool {
	return hasCode(err, ErrAuthCheckFailed.Code)
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	return hasCode(err, ErrDatabaseOperation.Code, ErrDataUnavailable.Code)
}

// PublicMessage returns the client-safe text of an error.
// Infrastructure causes are never included.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if err == nil || !errors.As(err, &domainErr) {
		return "An error occurred"
	}
	switch domainErr.Code {
	case ErrDatabaseOperation.Code, ErrDataUnavailable.Code:
		return ErrDataUnavailable.Message
	case ErrAuthCheckFailed.Code:
		return "Login failed, try again"
	}
	return domainErr.Message
}
