package eval

import (
	"strings"
	"unicode/utf8"

	"github.com/roach88/gridsync/internal/ref"
)

// builtinFunc evaluates one call node. Each builtin receives the parsed
// argument trees plus their raw source spans via the node.
type builtinFunc func(ev *evaluator, c *callNode) (Value, error)

// builtins is the fixed function dispatch table. Names are matched
// case-insensitively (the lexer uppercases identifiers); anything not in
// this table fails with UNKNOWN_FUNCTION. The table is populated in init
// because the aggregates recurse back through call for their scalar
// arguments, which a declaration-time literal would turn into an
// initialization cycle.
var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"SUM":         evalSum,
		"AVERAGE":     evalAverage,
		"COUNT":       evalCount,
		"MAX":         evalMax,
		"MIN":         evalMin,
		"IF":          evalIf,
		"VLOOKUP":     evalVlookup,
		"CONCATENATE": evalConcatenate,
		"UPPER":       evalUpper,
		"LOWER":       evalLower,
		"LEN":         evalLen,
	}
}

func (ev *evaluator) call(c *callNode) (Value, error) {
	fn, ok := builtins[c.name]
	if !ok {
		return Value{}, &Error{
			Code:    ErrCodeUnknownFunction,
			Message: "unknown function " + c.name,
			Pos:     c.pos,
			Func:    c.name,
		}
	}
	return fn(ev, c)
}

// collectNumbers gathers the numeric operands of an aggregate call.
//
// Range and single-cell arguments contribute only the values that parse
// as numbers: absent and non-numeric cells are numerically absent, not
// zero. For SUM that is indistinguishable from a 0 contribution; for
// AVERAGE and COUNT it keeps them out of the denominator and the count.
// Any other argument expression is evaluated in numeric context and
// always contributes.
func (ev *evaluator) collectNumbers(c *callNode) ([]float64, error) {
	var vals []float64
	for _, arg := range c.args {
		switch n := arg.(type) {
		case *rangeNode:
			ids, err := ref.ExpandRange(n.start, n.end)
			if err != nil {
				return nil, &Error{Code: ErrCodeMalformedReference, Message: err.Error(), Pos: n.pos, Func: c.name}
			}
			for _, id := range ids {
				if raw, ok := ev.snap.Lookup(id); ok {
					if f, ok := parseNumber(raw); ok {
						vals = append(vals, f)
					}
				}
			}

		case *cellNode:
			if raw, ok := ev.snap.Lookup(n.id); ok {
				if f, ok := parseNumber(raw); ok {
					vals = append(vals, f)
				}
			}

		default:
			f, err := ev.number(arg)
			if err != nil {
				return nil, err
			}
			vals = append(vals, f)
		}
	}
	return vals, nil
}

func evalSum(ev *evaluator, c *callNode) (Value, error) {
	vals, err := ev.collectNumbers(c)
	if err != nil {
		return Value{}, err
	}
	var sum float64
	for _, f := range vals {
		sum += f
	}
	return Number(sum), nil
}

func evalAverage(ev *evaluator, c *callNode) (Value, error) {
	vals, err := ev.collectNumbers(c)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, &Error{Code: ErrCodeDivisionByZero, Message: "AVERAGE over no numeric values", Pos: c.pos, Func: c.name}
	}
	var sum float64
	for _, f := range vals {
		sum += f
	}
	return Number(sum / float64(len(vals))), nil
}

func evalCount(ev *evaluator, c *callNode) (Value, error) {
	vals, err := ev.collectNumbers(c)
	if err != nil {
		return Value{}, err
	}
	return Number(float64(len(vals))), nil
}

func evalMax(ev *evaluator, c *callNode) (Value, error) {
	vals, err := ev.collectNumbers(c)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Number(0), nil
	}
	max := vals[0]
	for _, f := range vals[1:] {
		if f > max {
			max = f
		}
	}
	return Number(max), nil
}

func evalMin(ev *evaluator, c *callNode) (Value, error) {
	vals, err := ev.collectNumbers(c)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Number(0), nil
	}
	min := vals[0]
	for _, f := range vals[1:] {
		if f < min {
			min = f
		}
	}
	return Number(min), nil
}

// evalIf evaluates the condition recursively and returns the selected
// branch's raw text with surrounding quotes stripped. The branch is NOT
// re-evaluated: IF(1>0,B1+B2,"x") yields the text "B1+B2".
func evalIf(ev *evaluator, c *callNode) (Value, error) {
	if len(c.args) != 3 {
		return Value{}, errMalformed(c.pos, "IF wants 3 arguments, got %d", len(c.args))
	}
	cond, err := ev.truthy(c.args[0])
	if err != nil {
		return Value{}, err
	}
	branch := c.argSrc[2]
	if cond {
		branch = c.argSrc[1]
	}
	return Text(stripQuotes(strings.TrimSpace(branch))), nil
}

// evalVlookup is a declared capability gap: it fails with NOT_AVAILABLE
// for every input.
func evalVlookup(ev *evaluator, c *callNode) (Value, error) {
	return Value{}, &Error{
		Code:    ErrCodeNotAvailable,
		Message: "VLOOKUP is not implemented",
		Pos:     c.pos,
		Func:    c.name,
	}
}

func evalConcatenate(ev *evaluator, c *callNode) (Value, error) {
	var sb strings.Builder
	for _, arg := range c.args {
		s, err := ev.text(arg)
		if err != nil {
			return Value{}, err
		}
		sb.WriteString(s)
	}
	return Text(sb.String()), nil
}

func evalUpper(ev *evaluator, c *callNode) (Value, error) {
	s, err := ev.singleText(c)
	if err != nil {
		return Value{}, err
	}
	return Text(strings.ToUpper(s)), nil
}

func evalLower(ev *evaluator, c *callNode) (Value, error) {
	s, err := ev.singleText(c)
	if err != nil {
		return Value{}, err
	}
	return Text(strings.ToLower(s)), nil
}

// evalLen returns a character count, not text.
func evalLen(ev *evaluator, c *callNode) (Value, error) {
	s, err := ev.singleText(c)
	if err != nil {
		return Value{}, err
	}
	return Number(float64(utf8.RuneCountInString(s))), nil
}

func (ev *evaluator) singleText(c *callNode) (string, error) {
	if len(c.args) != 1 {
		return "", errMalformed(c.pos, "%s wants 1 argument, got %d", c.name, len(c.args))
	}
	return ev.text(c.args[0])
}
