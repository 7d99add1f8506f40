// Package errors provides structured error types for labeltower.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, the CLI and the query API
//   - Machine-readable error codes for programmatic handling
//   - Evidence chains that explain configuration problems
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Fatal problems carry one of the following codes:
//   - CONFIGURATION: the label scheme or the pre-assigned labels contradict
//     the dependency graph; the run must be aborted and the inputs fixed
//   - INVARIANT: the engine detected an internal inconsistency (a defect)
//   - CYCLE: a partial order that must be acyclic is not
//   - INVALID_*: input validation failures
//
// Problems with individual packages (no label fits, or several fit equally
// well) are not errors; they are recorded in the classification result.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "%s requires %s with disposition 'ignore'", a, b)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Handle configuration error
//	}
//
//	// Attach evidence lines
//	err = errors.New(errors.ErrCodeConfiguration, "inconsistent label %s", l).
//	    WithEvidence("foo requires bar", "bar is labeled @Bar")
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Fatal engine errors
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeInvariant     Code = "INVARIANT"
	ErrCodeCycle         Code = "CYCLE"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidLabel   Code = "INVALID_LABEL"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeLabelNotFound Code = "LABEL_NOT_FOUND"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	ErrCodeStorage     Code = "STORAGE_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code     Code     // Machine-readable error code
	Message  string   // Human-readable message
	Evidence []string // Explanation chain, most specific last (optional)
	Cause    error    // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	for _, line := range e.Evidence {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithEvidence appends explanation lines and returns e.
func (e *Error) WithEvidence(lines ...string) *Error {
	e.Evidence = append(e.Evidence, lines...)
	return e
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

// GetEvidence returns the evidence chain of the outermost *Error, if any.
func GetEvidence(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Evidence
	}
	return nil
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

// IsFatal reports whether err aborts a classification run. Configuration,
// invariant and cycle errors are fatal.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeConfiguration, ErrCodeInvariant, ErrCodeCycle:
		return true
	}
	return false
}
