package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/collab"
	"github.com/roach88/gridsync/internal/grid"
	"github.com/roach88/gridsync/internal/storage"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
	UserID   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collaboration server",
		Long: `Start the gridsync collaboration server.

The server loads the user's workbook from SQLite (creating an empty one
on first run), opens a websocket endpoint at /ws, and broadcasts cell
edits between connected clients per sheet. Snapshots autosave on a
fixed interval.

Example:
  gridsync serve --db ./gridsync.db --addr :8080
  gridsync serve --config ./gridsync.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "workbook owner id (overrides config)")

	return cmd
}

func runServer(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.UserID != "" {
		cfg.UserID = opts.UserID
	}

	slog.Info("opening database", "path", cfg.Database)
	st, err := storage.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	wb, err := loadOrCreateWorkbook(ctx, st, cfg.UserID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load workbook", err)
	}
	slog.Info("workbook ready", "user_id", cfg.UserID, "sheets", len(wb.SheetIDs()))

	hub := collab.NewHub(slog.Default())
	go hub.Run(ctx)

	sessions, err := startSessions(ctx, st, wb, hub, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start sessions", err)
	}

	saver := storage.NewAutosaver(st, wb, cfg.Autosave.Std(), slog.Default())
	saverDone := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(saverDone)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		collab.ServeWS(hub, slog.Default(), w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
		case <-ctx.Done():
		}
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Addr, "sheets", len(sessions))
	fmt.Fprintf(cmd.OutOrStdout(), "Serving workbook %s on %s. Press Ctrl-C to stop.\n", cfg.UserID, cfg.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return WrapExitError(ExitFailure, "server error", err)
	}

	// Wait for the final autosave before closing the store.
	<-saverDone
	slog.Info("server stopped gracefully")
	return nil
}

func loadOrCreateWorkbook(ctx context.Context, st *storage.Store, userID string) (*grid.Workbook, error) {
	f, err := st.LoadWorkbook(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("no stored workbook, creating", "user_id", userID)
		return grid.New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return grid.Load(f), nil
}

// startSessions runs one collaboration session per sheet, fanning the
// workbook's single edit hook out to the owning session. Each session
// resumes its sequence clock past the persisted edit log.
func startSessions(ctx context.Context, st *storage.Store, wb *grid.Workbook, hub *collab.Hub, cfg Config) (map[string]*collab.Session, error) {
	actor := collab.Collaborator{
		ActorID: cfg.UserID,
		Label:   cfg.Actor.Label,
		Color:   cfg.Actor.Color,
	}

	lastSeq, err := st.LastSeq(ctx, cfg.UserID)
	if err != nil {
		return nil, err
	}

	audit := func(ev collab.EditEvent) {
		if err := st.AppendEdit(context.Background(), ev); err != nil {
			slog.Error("edit log append failed", "event_id", ev.ID, "error", err)
		}
	}

	sessions := make(map[string]*collab.Session)
	for _, sheetID := range wb.SheetIDs() {
		opts := []collab.SessionOption{
			collab.WithSessionClock(collab.NewClockAt(lastSeq)),
			collab.WithEditObserver(audit),
		}
		if cfg.OutboxCapacity > 0 {
			opts = append(opts, collab.WithOutboxCapacity(cfg.OutboxCapacity))
		}
		if cfg.Heartbeat > 0 {
			opts = append(opts, collab.WithHeartbeat(cfg.Heartbeat.Std()))
		}
		s := collab.NewSession(wb, sheetID, actor, hub, opts...)
		sessions[sheetID] = s
		go s.Run(ctx)
	}

	wb.OnEdit(func(sheetID, cellID string, patch grid.Patch) {
		if s, ok := sessions[sheetID]; ok {
			s.LocalEdit(sheetID, cellID, patch)
		}
	})

	return sessions, nil
}
