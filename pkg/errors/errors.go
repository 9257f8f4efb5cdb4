// Package errors provides structured error types for meshio.
//
// Every failure surfaced by the dispatcher carries a machine-readable
// [Code] and, where it applies, the direction of the operation ([Op]).
// The two directions correspond to the two error kinds callers usually
// care about:
//   - read errors: missing source, unsupported buffer usage, unknown read
//     format, unrecognized extension, backend parse failure
//   - write errors: the same for the write path, plus cell validation
//     failures
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: caller input or mesh content is wrong
//   - UNKNOWN_*: a name could not be resolved against the registry
//   - *_NOT_FOUND: a resource does not exist
//   - BACKEND_FAILURE / UNSUPPORTED: the format backend failed or lacks a feature
//
// # Usage
//
//	err := errors.NewRead(errors.ErrCodeFileNotFound, "file %s not found", path)
//	if errors.IsRead(err) && errors.Is(err, errors.ErrCodeFileNotFound) {
//	    // ...
//	}
//
//	// Wrap backend failures with context
//	err := errors.WrapWrite(errors.ErrCodeBackend, cause, "write %s as %s", dst, format)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidUsage  Code = "INVALID_USAGE"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidCells  Code = "INVALID_CELLS"
	ErrCodeInvalidMesh   Code = "INVALID_MESH"

	// Resolution errors
	ErrCodeUnknownFormat    Code = "UNKNOWN_FORMAT"
	ErrCodeUnknownExtension Code = "UNKNOWN_EXTENSION"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeBackend           Code = "BACKEND_FAILURE"
	ErrCodeBufferUnsupported Code = "BUFFER_UNSUPPORTED"
	ErrCodeUnsupported       Code = "UNSUPPORTED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Op is the direction of the operation that failed.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Op      Op     // Operation direction (empty when not tied to read/write)
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Op != "" {
		prefix = string(e.Op) + " " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
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

// NewRead creates a read-kind Error.
func NewRead(code Code, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Op = OpRead
	return e
}

// NewWrite creates a write-kind Error.
func NewWrite(code Code, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Op = OpWrite
	return e
}

// WrapRead creates a read-kind Error wrapping cause.
func WrapRead(code Code, cause error, format string, args ...any) *Error {
	e := Wrap(code, cause, format, args...)
	e.Op = OpRead
	return e
}

// WrapWrite creates a write-kind Error wrapping cause.
func WrapWrite(code Code, cause error, format string, args ...any) *Error {
	e := Wrap(code, cause, format, args...)
	e.Op = OpWrite
	return e
}

// WithOp returns err tagged with op. An *Error without an Op is copied
// with op set; any other error is wrapped under code.
func WithOp(op Op, code Code, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		if e.Op == op {
			return e
		}
		if e.Op == "" {
			cp := *e
			cp.Op = op
			return &cp
		}
	}
	return &Error{Op: op, Code: code, Message: UserMessage(err), Cause: err}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRead reports whether err is a read-kind error.
func IsRead(err error) bool {
	return opOf(err) == OpRead
}

// IsWrite reports whether err is a write-kind error.
func IsWrite(err error) bool {
	return opOf(err) == OpWrite
}

func opOf(err error) Op {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
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
