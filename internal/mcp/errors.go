// Package mcp implements the Model Context Protocol (MCP) server for
// DocSage.
package mcp

import (
	"context"
	"errors"
	"fmt"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// Custom MCP error codes for DocSage.
const (
	// ErrCodeIndexUnavailable indicates the document index cannot be
	// opened or searched.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeNoResults indicates the pipeline retrieved nothing usable.
	ErrCodeNoResults = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeCancelled indicates the run was cancelled by its caller.
	ErrCodeCancelled = -32004

	// ErrCodeSuperseded indicates a newer query replaced this run.
	ErrCodeSuperseded = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
// It maps pipeline error codes and categories to MCP error codes.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var sageErr *sageerrors.SageError
	if errors.As(err, &sageErr) {
		return mapSageError(sageErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeCancelled,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapSageError converts a pipeline error to an MCPError.
func mapSageError(se *sageerrors.SageError) *MCPError {
	// Build message with suggestion if available
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s %s", se.Message, se.Suggestion)
	}

	// Specific codes before category fallbacks
	switch se.Code {
	case sageerrors.ErrCodeNoDocuments:
		return &MCPError{Code: ErrCodeNoResults, Message: message}
	case sageerrors.ErrCodeSuperseded:
		return &MCPError{Code: ErrCodeSuperseded, Message: message}
	case sageerrors.ErrCodeCancelled:
		return &MCPError{Code: ErrCodeCancelled, Message: message}
	case sageerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}

	switch se.Category {
	case sageerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case sageerrors.CategoryIO:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	case sageerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case sageerrors.CategoryCancelled:
		return &MCPError{Code: ErrCodeCancelled, Message: message}
	default: // CategoryConfig, CategoryInternal and unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
