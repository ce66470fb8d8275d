package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/gridsync/internal/collab"
)

// AppendEdit records one broadcast edit in the audit log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency, so replaying a
// reconnect's duplicate events leaves a single row per event id.
func (s *Store) AppendEdit(ctx context.Context, ev collab.EditEvent) error {
	patchJSON, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("append edit: marshal patch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edit_log (id, sheet_id, cell_id, actor_id, seq, patch, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.SheetID,
		ev.CellID,
		ev.ActorID,
		ev.Seq,
		string(patchJSON),
		ev.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append edit: %w", err)
	}
	return nil
}

// ReadEdits returns a sheet's audit trail ordered by append order.
func (s *Store) ReadEdits(ctx context.Context, sheetID string) ([]collab.EditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sheet_id, cell_id, actor_id, seq, patch, created_at
		FROM edit_log WHERE sheet_id = ? ORDER BY rowid
	`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}
	defer rows.Close()

	var events []collab.EditEvent
	for rows.Next() {
		var ev collab.EditEvent
		var patchJSON, created string
		if err := rows.Scan(&ev.ID, &ev.SheetID, &ev.CellID, &ev.ActorID, &ev.Seq, &patchJSON, &created); err != nil {
			return nil, fmt.Errorf("read edits: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(patchJSON), &ev.Data); err != nil {
			return nil, fmt.Errorf("read edits: unmarshal patch for %s: %w", ev.ID, err)
		}
		if ev.Timestamp, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("read edits: parse created_at: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LastSeq returns the highest sequence number an actor has logged, or 0
// if none. Used to resume a session clock past persisted history.
func (s *Store) LastSeq(ctx context.Context, actorID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM edit_log WHERE actor_id = ?
	`, actorID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
