// Package errors provides structured error handling for docsage.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index/IO errors
//   - 3XX: Network errors
//   - 4XX: Validation errors
//   - 5XX: Internal/pipeline errors
//   - 6XX: Cancellation
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryCancelled indicates a run aborted by its caller or a
	// superseding query, not a failure.
	CategoryCancelled Category = "CANCELLED"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index/IO errors (200-299)
	ErrCodeIndexIO      = "ERR_201_INDEX_IO"
	ErrCodeIndexLocked  = "ERR_202_INDEX_LOCKED"
	ErrCodeIndexCorrupt = "ERR_203_INDEX_CORRUPT"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeBackendUnavailable = "ERR_302_BACKEND_UNAVAILABLE"
	ErrCodeBackendStatus      = "ERR_303_BACKEND_STATUS"
	ErrCodeVerification       = "ERR_304_VERIFICATION"
	ErrCodeFetchFailed        = "ERR_305_FETCH_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong = "ERR_403_QUERY_TOO_LONG"

	// Internal/pipeline errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeSearchFailed    = "ERR_502_SEARCH_FAILED"
	ErrCodeSynthesisFailed = "ERR_503_SYNTHESIS_FAILED"
	ErrCodeNoDocuments     = "ERR_504_NO_DOCUMENTS"

	// Cancellation (600-699)
	ErrCodeCancelled  = "ERR_601_CANCELLED"
	ErrCodeSuperseded = "ERR_602_SUPERSEDED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "102" from "ERR_102_CONFIG_INVALID")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategoryCancelled
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Corrupt index data cannot be recovered by continuing.
	if code == ErrCodeIndexCorrupt {
		return SeverityFatal
	}

	// Cancellation is not a failure; callers discard the run silently.
	if categoryFromCode(code) == CategoryCancelled {
		return SeverityInfo
	}

	// Retryable network errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeBackendUnavailable:
		return true
	default:
		return false
	}
}
