package eval

import (
	"strings"
)

// Marker is the prefix that turns cell text into a formula.
const Marker = "="

// Snapshot is an immutable view of a sheet's cell values at one instant.
// Lookup returns the stored textual value of a cell and whether the cell
// exists; absent cells are empty, not zero.
//
// Implementations must not change while an evaluation is in progress;
// callers pass a copy, never a live mutable mapping.
type Snapshot interface {
	Lookup(cellID string) (string, bool)
}

// MapSnapshot is a Snapshot over a plain map. Convenient for tests and
// for one-off evaluations.
type MapSnapshot map[string]string

// Lookup implements Snapshot.
func (m MapSnapshot) Lookup(cellID string) (string, bool) {
	v, ok := m[cellID]
	return v, ok
}

// IsFormula reports whether the given cell text is a formula.
func IsFormula(text string) bool {
	return strings.HasPrefix(text, Marker)
}

// Evaluate evaluates a piece of cell text against a snapshot.
//
// Text without the formula marker passes through unchanged as a literal
// value; this is not an error. Formula text is parsed and evaluated to a
// number or text. Every failure mode returns a typed *Error - nothing
// panics or escapes the evaluator boundary.
func Evaluate(formulaText string, snap Snapshot) (Value, error) {
	if !IsFormula(formulaText) {
		return Text(formulaText), nil
	}

	body := formulaText[len(Marker):]
	root, err := parse(body)
	if err != nil {
		return Value{}, err
	}

	ev := &evaluator{snap: snap}
	return ev.eval(root)
}

// evaluator walks a parsed expression tree against one snapshot. It
// holds no mutable state beyond the snapshot reference, so evaluation
// is referentially transparent.
type evaluator struct {
	snap Snapshot
}

func (ev *evaluator) eval(e expr) (Value, error) {
	switch n := e.(type) {
	case *numberLit:
		return Number(n.val), nil

	case *stringLit:
		return Text(n.val), nil

	case *cellNode:
		// A bare cell reference is a numeric operand: absent or
		// non-numeric cells read as 0.
		return Number(ev.cellNumber(n.id)), nil

	case *rangeNode:
		// A range only makes sense inside a function argument list.
		return Value{}, errMalformed(n.pos, "range %s:%s used outside a function argument", n.start, n.end)

	case *callNode:
		return ev.call(n)

	case *unaryNode:
		x, err := ev.number(n.x)
		if err != nil {
			return Value{}, err
		}
		if n.op == tokenMinus {
			return Number(-x), nil
		}
		return Number(x), nil

	case *binaryNode:
		return ev.binary(n)

	default:
		return Value{}, errMalformed(e.exprPos(), "unsupported expression")
	}
}

func (ev *evaluator) binary(n *binaryNode) (Value, error) {
	switch n.op {
	case tokenEq, tokenNe, tokenLt, tokenLe, tokenGt, tokenGe:
		return ev.compare(n)
	}

	x, err := ev.number(n.x)
	if err != nil {
		return Value{}, err
	}
	y, err := ev.number(n.y)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case tokenPlus:
		return Number(x + y), nil
	case tokenMinus:
		return Number(x - y), nil
	case tokenStar:
		return Number(x * y), nil
	case tokenSlash:
		if y == 0 {
			return Value{}, &Error{Code: ErrCodeDivisionByZero, Message: "division by zero", Pos: n.pos}
		}
		return Number(x / y), nil
	default:
		return Value{}, errMalformed(n.pos, "unsupported operator")
	}
}

// compare evaluates a comparison to 1 (true) or 0 (false). Equality and
// inequality compare texts when both sides are text; every other pairing
// is numeric.
func (ev *evaluator) compare(n *binaryNode) (Value, error) {
	xv, err := ev.eval(n.x)
	if err != nil {
		return Value{}, err
	}
	yv, err := ev.eval(n.y)
	if err != nil {
		return Value{}, err
	}

	if !xv.IsNumber() && !yv.IsNumber() {
		switch n.op {
		case tokenEq:
			return boolValue(xv.Text() == yv.Text()), nil
		case tokenNe:
			return boolValue(xv.Text() != yv.Text()), nil
		default:
			return Value{}, errMalformed(n.pos, "ordered comparison of text values")
		}
	}

	x, err := ev.coerceNumber(xv, n.pos)
	if err != nil {
		return Value{}, err
	}
	y, err := ev.coerceNumber(yv, n.pos)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case tokenEq:
		return boolValue(x == y), nil
	case tokenNe:
		return boolValue(x != y), nil
	case tokenLt:
		return boolValue(x < y), nil
	case tokenLe:
		return boolValue(x <= y), nil
	case tokenGt:
		return boolValue(x > y), nil
	default:
		return boolValue(x >= y), nil
	}
}

func boolValue(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

// number evaluates an expression in numeric context.
func (ev *evaluator) number(e expr) (float64, error) {
	if cell, ok := e.(*cellNode); ok {
		return ev.cellNumber(cell.id), nil
	}
	v, err := ev.eval(e)
	if err != nil {
		return 0, err
	}
	return ev.coerceNumber(v, e.exprPos())
}

func (ev *evaluator) coerceNumber(v Value, pos int) (float64, error) {
	if v.IsNumber() {
		return v.Num(), nil
	}
	if f, ok := parseNumber(v.Text()); ok {
		return f, nil
	}
	return 0, errMalformed(pos, "expected a number, got %q", v.Text())
}

// cellNumber reads a cell as a numeric operand: 0 when the cell is
// absent or its value does not parse as a number.
func (ev *evaluator) cellNumber(id string) float64 {
	raw, ok := ev.snap.Lookup(id)
	if !ok {
		return 0
	}
	f, _ := parseNumber(raw)
	return f
}

// text evaluates an expression in textual context. Cell references
// resolve to their raw stored text ("" when absent) rather than being
// coerced through a number.
func (ev *evaluator) text(e expr) (string, error) {
	if cell, ok := e.(*cellNode); ok {
		raw, _ := ev.snap.Lookup(cell.id)
		return raw, nil
	}
	v, err := ev.eval(e)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// truthy converts a condition result to a boolean: non-zero numbers are
// true, and text is true iff it parses to a non-zero number.
func (ev *evaluator) truthy(e expr) (bool, error) {
	v, err := ev.eval(e)
	if err != nil {
		return false, err
	}
	if v.IsNumber() {
		return v.Num() != 0, nil
	}
	f, ok := parseNumber(v.Text())
	if !ok {
		return false, errMalformed(e.exprPos(), "condition %q is not numeric", v.Text())
	}
	return f != 0, nil
}
