// Package errors provides structured error types for nixvault.
//
// Errors carry a machine-readable [Code] so callers can tell apart failures
// that abort a run (tree acquisition, manifest loading) from failures that
// are local to a single package (introspection, persistence) and are only
// counted by the pipeline.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - FETCH_*, MANIFEST_*: Fatal acquisition errors
//   - INTROSPECT_*, MALFORMED_*: Per-package introspection failures
//   - SAVE_*: Per-package persistence failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid package name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSaveFailed, origErr, "write %s", path)
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
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Acquisition errors (fatal to a run)
	ErrCodeFetchFailed    Code = "FETCH_FAILED"
	ErrCodeInvalidTree    Code = "INVALID_TREE"
	ErrCodeManifestFailed Code = "MANIFEST_FAILED"

	// Introspection errors (local to one package)
	ErrCodeIntrospectTimeout   Code = "INTROSPECT_TIMEOUT"
	ErrCodeIntrospectFailed    Code = "INTROSPECT_FAILED"
	ErrCodeIntrospectEmpty     Code = "INTROSPECT_EMPTY"
	ErrCodeMalformedDerivation Code = "MALFORMED_DERIVATION"

	// Persistence errors (local to one package)
	ErrCodeSaveFailed Code = "SAVE_FAILED"

	// Process errors
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// IsIntrospection reports whether err is a per-package introspection failure.
func IsIntrospection(err error) bool {
	switch GetCode(err) {
	case ErrCodeIntrospectTimeout, ErrCodeIntrospectFailed,
		ErrCodeIntrospectEmpty, ErrCodeMalformedDerivation:
		return true
	}
	return false
}

// IsSoft reports whether err is local to one package. Soft errors are
// counted by the pipeline and never abort a run.
func IsSoft(err error) bool {
	return IsIntrospection(err) || Is(err, ErrCodeSaveFailed)
}
