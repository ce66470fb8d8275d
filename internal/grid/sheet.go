package grid

import (
	"time"
)

// Sheet is one grid of cells inside a workbook. Data is sparse: absent
// keys are empty cells.
type Sheet struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      map[string]Cell `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// clone deep-copies the sheet.
func (s *Sheet) clone() *Sheet {
	out := &Sheet{
		ID:        s.ID,
		Name:      s.Name,
		Data:      make(map[string]Cell, len(s.Data)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for id, cell := range s.Data {
		if cell.Style != nil {
			style := *cell.Style
			cell.Style = &style
		}
		out.Data[id] = cell
	}
	return out
}

// Snapshot is an immutable copy of a sheet's cell values at one instant.
// It satisfies the evaluator's snapshot contract: evaluation always runs
// against a copy, never against the live mutable mapping.
type Snapshot map[string]Cell

// Lookup returns a cell's stored textual value and whether the cell
// exists.
func (s Snapshot) Lookup(cellID string) (string, bool) {
	cell, ok := s[cellID]
	if !ok {
		return "", false
	}
	return cell.Value, true
}

// Cell returns the full cell record.
func (s Snapshot) Cell(cellID string) (Cell, bool) {
	cell, ok := s[cellID]
	return cell, ok
}

// snapshotLocked copies the sheet's data. Caller must hold the workbook
// lock.
func (s *Sheet) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(s.Data))
	for id, cell := range s.Data {
		snap[id] = cell
	}
	return snap
}
