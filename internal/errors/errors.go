package errors

import (
	"errors"
	"fmt"
)

// WatchError is the structured error type for dirwatch.
type WatchError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_EXTENSION").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the condition may clear on a later scan.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *WatchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WatchError) Unwrap() error {
	return e.Cause
}

// Is matches another WatchError by code, so errors.Is works against
// sentinel values built with New.
func (e *WatchError) Is(target error) bool {
	if t, ok := target.(*WatchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *WatchError) WithDetail(key, value string) *WatchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *WatchError) WithSuggestion(suggestion string) *WatchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new WatchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WatchError {
	return &WatchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WatchError from an existing error.
func Wrap(code string, err error) *WatchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WatchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(code, message string) *WatchError {
	return New(code, message, nil)
}

// BackendError creates an error for a failing watch backend.
func BackendError(message string, cause error) *WatchError {
	return New(ErrCodeBackendFailed, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var we *WatchError
	if errors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var we *WatchError
	if errors.As(err, &we) {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a WatchError.
// Returns empty string if err carries none.
func GetCode(err error) string {
	var we *WatchError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}
