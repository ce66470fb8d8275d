package eval

import (
	"math"
	"strconv"
	"strings"
)

// Value is the scalar result of evaluating a formula: either a number
// or a piece of text.
type Value struct {
	isNum bool
	num   float64
	text  string
}

// Number wraps a numeric value.
func Number(f float64) Value {
	return Value{isNum: true, num: f}
}

// Text wraps a textual value.
func Text(s string) Value {
	return Value{text: s}
}

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool {
	return v.isNum
}

// Num returns the numeric value, or 0 for text values.
func (v Value) Num() float64 {
	return v.num
}

// Text returns the textual value, or "" for numbers.
func (v Value) Text() string {
	return v.text
}

// String renders the value the way a cell displays it: numbers in the
// shortest decimal form, text verbatim.
func (v Value) String() string {
	if v.isNum {
		return formatNumber(v.num)
	}
	return v.text
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		// Non-finite results never escape the evaluator, but the
		// renderer must still be total.
		return "#ERROR!"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumber parses a cell's stored text as a number. Leading and
// trailing whitespace is tolerated; anything else non-numeric is not.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// stripQuotes removes one pair of surrounding double quotes, if present.
func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
