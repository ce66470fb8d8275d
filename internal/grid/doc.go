// Package grid implements the cell store: workbooks, sheets, cell
// records, and the origin-tagged mutation API that feeds the edit
// broadcaster.
//
// A sheet's data is a sparse mapping from cell identifier to cell
// record; an absent key means an empty cell, not a zero value. A cell's
// Formula (when present) is the source of truth and its Value is the
// cached result of the last evaluation; cells without a formula hold
// their literal authored text in Value.
//
// Mutations are origin-tagged: SetCell with origin=true fires the
// registered edit hook so the collaboration session can mirror the
// change outbound, while origin=false applies remote edits silently.
// That asymmetry is what prevents broadcast echo loops.
//
// The workbook is guarded by a RWMutex because the autosaver reads
// snapshots concurrently with the editing session's writes. Within one
// actor there is a single thread of control driving mutations.
package grid
