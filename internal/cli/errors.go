// Package cli implements the command-line interface.
package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Store errors
	ErrDatabaseError = "DATABASE_ERROR"
	ErrNotFound      = "NOT_FOUND"

	// Input errors
	ErrValidationFailed = "VALIDATION_ERROR"
	ErrInvalidInput     = "INVALID_INPUT"
	ErrMissingArgument  = "MISSING_ARGUMENT"

	// File errors
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnFilterIgnored = "FILTER_IGNORED"
)
