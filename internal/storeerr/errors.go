// Package storeerr defines the error taxonomy shared by the store packages.
//
// Argument, unsupported-operator and mapping failures are reported as *Error
// values carrying a Code. Storage failures from SQLite are never converted:
// they are wrapped with %w and stay reachable through errors.As.
package storeerr

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Code categorizes store errors.
type Code string

const (
	// CodeArgument indicates a nil or invalid input. Never retried.
	CodeArgument Code = "ARGUMENT"

	// CodeUnsupportedOperator indicates a filter expression outside the
	// compilable subset.
	CodeUnsupportedOperator Code = "UNSUPPORTED_OPERATOR"

	// CodeMapping indicates a row that cannot be turned into its event kind,
	// or a value that cannot be stored in its column.
	CodeMapping Code = "MAPPING"
)

// Error is the structured error returned by the store packages.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Subject names the offending argument, node, kind or column.
	Subject string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Argument reports an invalid or missing argument named name.
func Argument(name, message string) *Error {
	return &Error{Code: CodeArgument, Subject: name, Message: message}
}

// UnsupportedOperator reports a filter node the compiler cannot render.
func UnsupportedOperator(node string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperator,
		Subject: node,
		Message: "unsupported node in filter expression",
	}
}

// Mapping reports a row/value that cannot be mapped onto subject.
func Mapping(subject, message string, cause error) *Error {
	return &Error{Code: CodeMapping, Subject: subject, Message: message, Err: cause}
}

// Mappingf is Mapping with a formatted message and no cause.
func Mappingf(subject, format string, args ...any) *Error {
	return &Error{Code: CodeMapping, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsArgument returns true for argument errors.
func IsArgument(err error) bool {
	return Is(err, CodeArgument)
}

// IsUnsupportedOperator returns true for unsupported-operator errors.
func IsUnsupportedOperator(err error) bool {
	return Is(err, CodeUnsupportedOperator)
}

// IsMapping returns true for mapping errors.
func IsMapping(err error) bool {
	return Is(err, CodeMapping)
}

// IsStorage returns true if err wraps an error raised by the SQLite engine.
func IsStorage(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se)
}
