// Package shared contains common domain errors used across all domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
// They map onto the user-facing error taxonomy: input format, authorization,
// not-found, delivery and persistence failures.
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService = errors.New("external service error")
	ErrCorrupted       = errors.New("stored data corrupted")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "homework", "roster", "settings"
	Op      string // Operation that failed, e.g., "Parse", "Remove"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Homework domain errors
var (
	ErrHomeworkNotFound = NewDomainError("homework", "Find", ErrNotFound, "no homework for date")
	ErrInvalidDate      = NewDomainError("homework", "ParseDate", ErrInvalidFormat, "date not recognized")
	ErrEmptyTask        = NewDomainError("homework", "Validate", ErrEmptyValue, "task text is empty")
	ErrInvalidCount     = NewDomainError("homework", "List", ErrInvalidInput, "count must be an integer")
)

// Roster domain errors
var (
	ErrEmptyRoster       = NewDomainError("roster", "Resolve", ErrInvalidState, "duty roster is empty")
	ErrRosterEntryAbsent = NewDomainError("roster", "Remove", ErrNotFound, "no roster entry for handle")
	ErrInvalidHandle     = NewDomainError("roster", "Validate", ErrInvalidFormat, "invalid handle")
)

// Settings domain errors
var (
	ErrInvalidChatID     = NewDomainError("settings", "Validate", ErrInvalidFormat, "invalid chat id")
	ErrNoBroadcastTarget = NewDomainError("settings", "BroadcastTarget", ErrNotFound, "broadcast target is not configured")
	ErrHandleRequired    = NewDomainError("settings", "Identity", ErrUnauthorized, "user has no public handle")
)

// Transport errors
var (
	ErrTelegramAPIFailed = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is an input format error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsAuthorization checks if the error is an authorization error.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService)
}
