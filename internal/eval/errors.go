package eval

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeMalformedReference indicates a cell or range identifier that
	// does not parse (bad column letter, zero row, leading zero).
	ErrCodeMalformedReference ErrorCode = "MALFORMED_REFERENCE"

	// ErrCodeMalformedExpression indicates a syntax or type error in the
	// expression itself (unbalanced parens, dangling operator, a range
	// used as a bare arithmetic operand).
	ErrCodeMalformedExpression ErrorCode = "MALFORMED_EXPRESSION"

	// ErrCodeUnknownFunction indicates a call to a function name that is
	// not in the dispatch table.
	ErrCodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeNotAvailable indicates a declared capability gap (VLOOKUP).
	ErrCodeNotAvailable ErrorCode = "NOT_AVAILABLE"

	// ErrCodeDivisionByZero indicates a division whose divisor evaluated
	// to zero, including AVERAGE over an empty value set.
	ErrCodeDivisionByZero ErrorCode = "DIVISION_BY_ZERO"
)

// Error is the typed result of a failed evaluation.
//
// Errors are local and non-fatal: they degrade a single cell's display
// without affecting any other cell or the store.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pos is the byte offset into the formula body where the error was
	// detected, or -1 when no position applies.
	Pos int

	// Func names the builtin being evaluated, if any.
	Func string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Func != "" && e.Pos >= 0:
		return fmt.Sprintf("%s: %s (func=%s, pos=%d)", e.Code, e.Message, e.Func, e.Pos)
	case e.Func != "":
		return fmt.Sprintf("%s: %s (func=%s)", e.Code, e.Message, e.Func)
	case e.Pos >= 0:
		return fmt.Sprintf("%s: %s (pos=%d)", e.Code, e.Message, e.Pos)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the error code from err, or "" if err is not an
// evaluation error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNotAvailable reports whether err is a NOT_AVAILABLE error.
func IsNotAvailable(err error) bool {
	return CodeOf(err) == ErrCodeNotAvailable
}

// IsDivisionByZero reports whether err is a DIVISION_BY_ZERO error.
func IsDivisionByZero(err error) bool {
	return CodeOf(err) == ErrCodeDivisionByZero
}

// IsUnknownFunction reports whether err is an UNKNOWN_FUNCTION error.
func IsUnknownFunction(err error) bool {
	return CodeOf(err) == ErrCodeUnknownFunction
}

// DisplayToken maps an evaluation error to the single visible token the
// display layer renders in the cell. This is the only place the error
// taxonomy collapses; everything upstream keeps the distinct codes.
func DisplayToken(err error) string {
	switch CodeOf(err) {
	case ErrCodeMalformedReference:
		return "#REF!"
	case ErrCodeUnknownFunction:
		return "#NAME?"
	case ErrCodeNotAvailable:
		return "#N/A"
	case ErrCodeDivisionByZero:
		return "#DIV/0!"
	default:
		return "#ERROR!"
	}
}

func errMalformed(pos int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeMalformedExpression, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func errReference(pos int, ref string) *Error {
	return &Error{Code: ErrCodeMalformedReference, Message: fmt.Sprintf("malformed reference %q", ref), Pos: pos}
}
