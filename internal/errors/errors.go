package errors

import (
	stderrors "errors"
	"fmt"
)

// SageError is the structured error type for docsage.
// It provides rich context for error handling, logging, and user presentation.
type SageError struct {
	// Code is the unique error code (e.g., "ERR_503_SYNTHESIS_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Network, Cancelled, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SageError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SageError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SageError.
func (e *SageError) Is(target error) bool {
	if t, ok := target.(*SageError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SageError) WithDetail(key, value string) *SageError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *SageError) WithSuggestion(suggestion string) *SageError {
	e.Suggestion = suggestion
	return e
}

// WithRetryable overrides the code-derived retryable flag.
// Backend status errors use this to mark 5xx responses retryable.
func (e *SageError) WithRetryable(retryable bool) *SageError {
	e.Retryable = retryable
	return e
}

// New creates a new SageError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SageError {
	return &SageError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SageError from an existing error.
// The error's message becomes the SageError message.
func Wrap(code string, err error) *SageError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SageError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *SageError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SageError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SageError {
	return New(ErrCodeInternal, message, cause)
}

// CancelledError creates the distinguished cancellation error.
// Callers use IsCancelled to discard such a run's result silently.
func CancelledError(message string) *SageError {
	return New(ErrCodeCancelled, message, nil)
}

// SupersededError marks a run cancelled because a newer query replaced it.
func SupersededError(query string) *SageError {
	return New(ErrCodeSuperseded, fmt.Sprintf("superseded by a newer query: %q", query), nil)
}

// asSage finds the first SageError in the chain.
func asSage(err error) (*SageError, bool) {
	var se *SageError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains a SageError with Retryable set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := asSage(err); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := asSage(err); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsCancelled reports whether the error chain marks a cancelled or
// superseded run, as opposed to a soft or hard failure.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := asSage(err); ok {
		return se.Category == CategoryCancelled
	}
	return false
}

// GetCode extracts the error code from the first SageError in the chain.
// Returns empty string if none is present.
func GetCode(err error) string {
	if se, ok := asSage(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from the first SageError in the chain.
// Returns empty string if none is present.
func GetCategory(err error) Category {
	if se, ok := asSage(err); ok {
		return se.Category
	}
	return ""
}
