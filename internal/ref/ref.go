// Package ref converts between textual cell identifiers ("B12") and
// zero-based (row, col) coordinates, and expands range identifiers
// ("A1:A5") into ordered lists of individual identifiers.
//
// Identifiers are canonical: exactly one uppercase letter (columns A-Z,
// single-letter columns only) followed by a 1-based row number with no
// leading zero. Parse and Format are inverse-consistent for all valid
// inputs: Format(Parse(s)) == s.
package ref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxColumns is the number of addressable columns (A-Z). Single-letter
// columns are a deliberate scope limit, not a bug.
const MaxColumns = 26

// Error represents a malformed cell or range reference.
type Error struct {
	// Ref is the offending reference text.
	Ref string

	// Message describes what was wrong with it.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("malformed reference %q: %s", e.Ref, e.Message)
}

// IsMalformed reports whether err is (or wraps) a reference error.
func IsMalformed(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// Parse converts a cell identifier to zero-based (row, col) coordinates.
// The identifier must match ^[A-Z][1-9][0-9]*$ exactly.
func Parse(id string) (row, col int, err error) {
	if len(id) < 2 {
		return 0, 0, &Error{Ref: id, Message: "want one column letter followed by a row number"}
	}
	letter := id[0]
	if letter < 'A' || letter > 'Z' {
		return 0, 0, &Error{Ref: id, Message: "column must be a single uppercase letter"}
	}
	digits := id[1:]
	if digits[0] == '0' {
		return 0, 0, &Error{Ref: id, Message: "row number must not have a leading zero"}
	}
	n, convErr := strconv.Atoi(digits)
	if convErr != nil || n < 1 {
		return 0, 0, &Error{Ref: id, Message: "row must be a positive integer"}
	}
	return n - 1, int(letter - 'A'), nil
}

// Format converts zero-based (row, col) coordinates to a cell identifier.
// Fails explicitly for col >= MaxColumns rather than wrapping into
// multi-letter columns, and for negative coordinates.
func Format(row, col int) (string, error) {
	if row < 0 {
		return "", &Error{Ref: fmt.Sprintf("(%d,%d)", row, col), Message: "row must be >= 0"}
	}
	if col < 0 || col >= MaxColumns {
		return "", &Error{Ref: fmt.Sprintf("(%d,%d)", row, col), Message: fmt.Sprintf("column must be in [0,%d)", MaxColumns)}
	}
	return string(rune('A'+col)) + strconv.Itoa(row+1), nil
}

// Valid reports whether id is a well-formed cell identifier.
func Valid(id string) bool {
	_, _, err := Parse(id)
	return err == nil
}

// ExpandRange expands the inclusive rectangular span between two cell
// identifiers into a row-major list of identifiers. The endpoints are
// normalized first, so ExpandRange("C3","A1") produces the same sequence
// as ExpandRange("A1","C3").
func ExpandRange(start, end string) ([]string, error) {
	r1, c1, err := Parse(start)
	if err != nil {
		return nil, err
	}
	r2, c2, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	ids := make([]string, 0, (r2-r1+1)*(c2-c1+1))
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			id, err := Format(r, c)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SplitRange splits a textual range like "A1:B5" into its endpoints.
func SplitRange(rng string) (start, end string, err error) {
	i := strings.IndexByte(rng, ':')
	if i < 0 {
		return "", "", &Error{Ref: rng, Message: "range must contain ':'"}
	}
	start, end = rng[:i], rng[i+1:]
	if !Valid(start) || !Valid(end) {
		return "", "", &Error{Ref: rng, Message: "range endpoints must be cell identifiers"}
	}
	return start, end, nil
}
