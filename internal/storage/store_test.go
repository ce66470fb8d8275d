package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridsync/internal/collab"
	"github.com/roach88/gridsync/internal/grid"
	"github.com/roach88/gridsync/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gridsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFile() *grid.File {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &grid.File{
		UserID:        "user-1",
		ActiveSheetID: "sheet-2",
		UpdatedAt:     created.Add(time.Minute),
		Sheets: []*grid.Sheet{
			{
				ID:   "sheet-1",
				Name: "Sheet 1",
				Data: map[string]grid.Cell{
					"A1": {Value: "10"},
					"A2": {Value: "30", Formula: "=A1*3"},
					"B1": {Value: "x", Style: &grid.Style{Bold: true, NumberFormat: grid.FormatInteger}},
				},
				CreatedAt: created,
				UpdatedAt: created.Add(time.Minute),
			},
			{
				ID:        "sheet-2",
				Name:      "Totals",
				Data:      map[string]grid.Cell{},
				CreatedAt: created,
				UpdatedAt: created,
			},
		},
	}
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsync.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := testFile()
	require.NoError(t, s.SaveWorkbook(ctx, f))

	got, err := s.LoadWorkbook(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, f.UserID, got.UserID)
	assert.Equal(t, f.ActiveSheetID, got.ActiveSheetID)
	assert.True(t, f.UpdatedAt.Equal(got.UpdatedAt))
	require.Len(t, got.Sheets, 2)

	assert.Equal(t, "Sheet 1", got.Sheets[0].Name)
	assert.Equal(t, "Totals", got.Sheets[1].Name)
	assert.Equal(t, f.Sheets[0].Data, got.Sheets[0].Data)
	assert.Empty(t, got.Sheets[1].Data)
}

func TestStore_SaveReplacesSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveWorkbook(ctx, testFile()))

	// Second save drops a sheet and a cell; neither may linger.
	f := testFile()
	f.Sheets = f.Sheets[:1]
	f.ActiveSheetID = "sheet-1"
	delete(f.Sheets[0].Data, "B1")
	require.NoError(t, s.SaveWorkbook(ctx, f))

	got, err := s.LoadWorkbook(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got.Sheets, 1)
	assert.NotContains(t, got.Sheets[0].Data, "B1")
}

func TestStore_LoadMissingWorkbook(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadWorkbook(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendEditIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v := "7"
	ev := collab.EditEvent{
		ID:        "ev-1",
		SheetID:   "sheet-1",
		CellID:    "A1",
		Data:      grid.Patch{Value: &v},
		ActorID:   "alice",
		Seq:       1,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, s.AppendEdit(ctx, ev))
	require.NoError(t, s.AppendEdit(ctx, ev), "duplicate append must be silent")

	events, err := s.ReadEdits(ctx, "sheet-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)
	require.NotNil(t, events[0].Data.Value)
	assert.Equal(t, "7", *events[0].Data.Value)
	assert.True(t, ev.Timestamp.Equal(events[0].Timestamp))
}

func TestStore_ReadEditsKeepsAppendOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"ev-c", "ev-a", "ev-b"} {
		require.NoError(t, s.AppendEdit(ctx, collab.EditEvent{
			ID: id, SheetID: "sheet-1", CellID: "A1", ActorID: "alice",
			Seq: int64(i + 1), Timestamp: time.Now(),
		}))
	}

	events, err := s.ReadEdits(ctx, "sheet-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "ev-c", events[0].ID)
	assert.Equal(t, "ev-a", events[1].ID)
	assert.Equal(t, "ev-b", events[2].ID)
}

func TestStore_LastSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AppendEdit(ctx, collab.EditEvent{
			ID:      fmt.Sprintf("ev-%d", i),
			SheetID: "sheet-1", CellID: "A1", ActorID: "alice",
			Seq: int64(i), Timestamp: time.Now(),
		}))
	}

	seq, err = s.LastSeq(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestAutosaver_FlushesOnCancel(t *testing.T) {
	s := openTestStore(t)

	wb := grid.New("user-1", grid.WithIDGenerator(testutil.NewFixedIDs("sheet")))
	require.NoError(t, wb.Enter("sheet-1", "A1", "42", false))

	a := NewAutosaver(s, wb, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop")
	}

	got, err := s.LoadWorkbook(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got.Sheets, 1)
	assert.Equal(t, "42", got.Sheets[0].Data["A1"].Value)
}
