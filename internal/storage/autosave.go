package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/gridsync/internal/grid"
)

// DefaultAutosaveInterval is used when the config leaves it unset.
const DefaultAutosaveInterval = 5 * time.Second

// Autosaver flushes workbook snapshots to the store on a fixed
// interval. Failures are logged and retried on the next tick; the
// in-memory workbook is never blocked or rolled back by persistence.
type Autosaver struct {
	store    *Store
	wb       *grid.Workbook
	interval time.Duration
	log      *slog.Logger
}

// NewAutosaver creates an autosaver for one workbook.
func NewAutosaver(store *Store, wb *grid.Workbook, interval time.Duration, log *slog.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Autosaver{store: store, wb: wb, interval: interval, log: log}
}

// Run flushes until ctx is cancelled, then takes one final snapshot so
// a clean shutdown never loses the last edits.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush(context.Background())
			return
		case <-ticker.C:
			a.flush(ctx)
		}
	}
}

func (a *Autosaver) flush(ctx context.Context) {
	f := a.wb.Export()
	if err := a.store.SaveWorkbook(ctx, f); err != nil {
		a.log.Error("autosave failed", "user_id", f.UserID, "error", err)
		return
	}
	a.log.Debug("autosaved workbook", "user_id", f.UserID, "sheets", len(f.Sheets))
}
