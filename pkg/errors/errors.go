// Package errors provides structured error types for covidchart.
//
// Error codes classify failures the chart pipeline has to tell apart:
// a failed fetch leaves a selection unresolved, missing data is dropped from
// the chart, degenerate scaling skips a series, and invalid input is reported
// to the caller.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NETWORK_*, FETCH_*: Data source failures
//   - DEGENERATE_*, ALIGNMENT_*: Transform edge cases
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSelection, "unknown country: %s", code)
//	if errors.Is(err, errors.ErrCodeInvalidSelection) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetchFailure, origErr, "failed to fetch %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidCountry   Code = "INVALID_COUNTRY"
	ErrCodeInvalidSelection Code = "INVALID_SELECTION"
	ErrCodeInvalidSeries    Code = "INVALID_SERIES"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeSeriesNotFound Code = "SERIES_NOT_FOUND"

	// Data source errors
	ErrCodeFetchFailure Code = "FETCH_FAILURE"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Transform edge cases
	ErrCodeDegenerateScaling Code = "DEGENERATE_SCALING"
	ErrCodeAlignmentMismatch Code = "ALIGNMENT_MISMATCH"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
