package ir

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error is a caller error: the request was rejected before anything was
// mutated and the image is unchanged.
//
// Internal-consistency failures are never *Error values. They are built
// with Internalf and mean the image must be treated as broken.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the rejected operation, e.g. "vocab.add".
	Op string

	// Message is a human-readable description.
	Message string

	// ID is the element the error refers to, when there is one.
	ID ID
}

// ErrorCode categorizes caller errors.
type ErrorCode string

const (
	// CodeInvalidName indicates a name failing its grammar.
	CodeInvalidName ErrorCode = "INVALID_NAME"

	// CodeDuplicateName indicates a name already taken in the shared name space.
	CodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// CodeNotFound indicates an unknown id or name.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeKindMismatch indicates a replacement of a different element kind.
	CodeKindMismatch ErrorCode = "KIND_MISMATCH"

	// CodeTypeMismatch indicates a value not legal for its formal argument.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodeNotEmpty indicates removal of a column that still has cells.
	CodeNotEmpty ErrorCode = "NOT_EMPTY"

	// CodeOutOfRange indicates an ordinal or argument index out of range.
	CodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// CodeInvalidArgument indicates a malformed request.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeSystemElement indicates a direct edit of a system-owned element.
	CodeSystemElement ErrorCode = "SYSTEM_ELEMENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID.Valid() {
		return fmt.Sprintf("%s: %s: %s (id=%d)", e.Op, e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Errorf builds a caller error.
func Errorf(code ErrorCode, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrorfID builds a caller error about a specific element.
func ErrorfID(code ErrorCode, op string, id ID, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...), ID: id}
}

// CodeOf returns the caller error code carried by err, or "" when err is
// not a caller error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCallerError reports whether err is (or wraps) a caller error.
func IsCallerError(err error) bool {
	return CodeOf(err) != ""
}

// Internalf reports a broken invariant. The result carries an assertion
// failure marker so it survives wrapping.
func Internalf(format string, args ...any) error {
	return errors.AssertionFailedf(format, args...)
}

// IsInternal reports whether err signals an internal-consistency failure.
func IsInternal(err error) bool {
	return errors.HasAssertionFailure(err)
}
