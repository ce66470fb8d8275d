// Package storage persists workbooks and the collaborative edit log.
//
// SQLite is the backing store, opened in WAL mode with a single writer
// connection. Workbook saves are whole-snapshot transactions keyed by
// user id; the edit log is append-only with id-level idempotency, so a
// replayed broadcast never duplicates an audit row.
//
// The autosaver flushes a detached workbook export on a fixed interval.
// A failed flush is logged and retried on the next tick; it never rolls
// back or blocks the in-memory workbook.
//
// Import and export to xlsx round-trips cell values, formulas, and the
// sheet list for interchange with desktop spreadsheet tools.
package storage
