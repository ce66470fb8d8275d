// Package eval implements the formula evaluation engine.
//
// A formula is a piece of cell text starting with "=". Everything else
// passes through Evaluate unchanged as a literal. Formula text is lexed
// into tokens (quoted string spans are isolated first, so only function
// names and cell references are case-normalized), parsed by a small
// recursive-descent parser into an expression tree, and evaluated
// against an immutable Snapshot of the sheet's cell values.
//
// Evaluation is referentially transparent: given the same formula text
// and snapshot it always produces the same Value, it never mutates the
// snapshot, and it has no side effects. This includes the recursive
// sub-evaluation performed by IF conditions.
//
// Every failure mode resolves to a typed *Error carrying one of a small
// set of error codes. The distinct codes exist for testing and logging;
// the display layer collapses them to a single visible token per cell
// via DisplayToken.
package eval
