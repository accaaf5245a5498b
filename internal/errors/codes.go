// Package errors provides structured error handling for dirwatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Filesystem errors
//   - 4XX: Validation errors
//   - 5XX: Internal / runtime errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates runtime errors inside the watcher.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Filesystem errors (200-299)
	ErrCodePathNotFound   = "ERR_201_PATH_NOT_FOUND"
	ErrCodePathPermission = "ERR_202_PATH_PERMISSION"

	// Validation errors (400-499)
	ErrCodeInvalidExtension = "ERR_401_INVALID_EXTENSION"
	ErrCodeInvalidInterval  = "ERR_402_INVALID_INTERVAL"
	ErrCodeInvalidBackend   = "ERR_403_INVALID_BACKEND"
	ErrCodeInvalidPath      = "ERR_406_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeBackendFailed  = "ERR_501_BACKEND_FAILED"
	ErrCodeListenerFailed = "ERR_502_LISTENER_FAILED"
	ErrCodeWatcherState   = "ERR_503_WATCHER_STATE"
	ErrCodeInternal       = "ERR_504_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeWatcherState:
		return SeverityFatal
	case ErrCodeBackendFailed, ErrCodeListenerFailed, ErrCodePathNotFound, ErrCodePathPermission:
		// The loop keeps running through these.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendFailed, ErrCodePathNotFound, ErrCodePathPermission:
		return true
	default:
		return false
	}
}
