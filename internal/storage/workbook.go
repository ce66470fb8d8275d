package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/gridsync/internal/grid"
)

// ErrNotFound is returned by LoadWorkbook when no workbook exists for
// the user.
var ErrNotFound = errors.New("workbook not found")

// timeLayout keeps full precision and sorts lexicographically.
const timeLayout = time.RFC3339Nano

// SaveWorkbook persists a full workbook snapshot, replacing whatever
// was stored for the user. Runs in one transaction so readers never see
// a half-written workbook.
func (s *Store) SaveWorkbook(ctx context.Context, f *grid.File) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save workbook: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workbooks (user_id, active_sheet_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			active_sheet_id = excluded.active_sheet_id,
			updated_at = excluded.updated_at
	`, f.UserID, f.ActiveSheetID, f.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save workbook: upsert workbook: %w", err)
	}

	// Snapshot semantics: dropped sheets and cleared cells must not
	// linger, so wipe and reinsert. Cells cascade from sheets.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheets WHERE user_id = ?`, f.UserID); err != nil {
		return fmt.Errorf("save workbook: clear sheets: %w", err)
	}

	for pos, sheet := range f.Sheets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sheets (id, user_id, name, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sheet.ID, f.UserID, sheet.Name, pos,
			sheet.CreatedAt.UTC().Format(timeLayout),
			sheet.UpdatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("save workbook: insert sheet %s: %w", sheet.ID, err)
		}

		for cellID, cell := range sheet.Data {
			styleJSON := sql.NullString{}
			if cell.Style != nil {
				raw, err := json.Marshal(cell.Style)
				if err != nil {
					return fmt.Errorf("save workbook: marshal style for %s: %w", cellID, err)
				}
				styleJSON = sql.NullString{String: string(raw), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cells (sheet_id, cell_id, value, formula, style)
				VALUES (?, ?, ?, ?, ?)
			`, sheet.ID, cellID, cell.Value, cell.Formula, styleJSON)
			if err != nil {
				return fmt.Errorf("save workbook: insert cell %s: %w", cellID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save workbook: commit: %w", err)
	}
	return nil
}

// LoadWorkbook reads the persisted snapshot for a user.
func (s *Store) LoadWorkbook(ctx context.Context, userID string) (*grid.File, error) {
	f := &grid.File{UserID: userID}

	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT active_sheet_id, updated_at FROM workbooks WHERE user_id = ?
	`, userID).Scan(&f.ActiveSheetID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load workbook %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("load workbook: parse updated_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM sheets WHERE user_id = ? ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load workbook: query sheets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sheet grid.Sheet
		var created, updated string
		if err := rows.Scan(&sheet.ID, &sheet.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("load workbook: scan sheet: %w", err)
		}
		if sheet.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("load workbook: parse created_at: %w", err)
		}
		if sheet.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("load workbook: parse updated_at: %w", err)
		}
		sheet.Data = make(map[string]grid.Cell)
		f.Sheets = append(f.Sheets, &sheet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load workbook: iterate sheets: %w", err)
	}

	for _, sheet := range f.Sheets {
		if err := s.loadCells(ctx, sheet); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (s *Store) loadCells(ctx context.Context, sheet *grid.Sheet) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, value, formula, style FROM cells WHERE sheet_id = ?
	`, sheet.ID)
	if err != nil {
		return fmt.Errorf("load workbook: query cells for %s: %w", sheet.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cellID string
		var cell grid.Cell
		var styleJSON sql.NullString
		if err := rows.Scan(&cellID, &cell.Value, &cell.Formula, &styleJSON); err != nil {
			return fmt.Errorf("load workbook: scan cell: %w", err)
		}
		if styleJSON.Valid {
			var style grid.Style
			if err := json.Unmarshal([]byte(styleJSON.String), &style); err != nil {
				return fmt.Errorf("load workbook: unmarshal style for %s: %w", cellID, err)
			}
			cell.Style = &style
		}
		sheet.Data[cellID] = cell
	}
	return rows.Err()
}
