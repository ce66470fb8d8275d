package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/collab"
	"github.com/roach88/gridsync/internal/storage"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <sheet-id>",
		Short: "Show a sheet's edit audit trail",
		Long: `Print the append-order edit log for a sheet.

Example:
  gridsync log --db ./gridsync.db 0190a5e2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "gridsync.db", "path to SQLite database")

	return cmd
}

func runLog(cmd *cobra.Command, opts *LogOptions, sheetID string) error {
	st, err := storage.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadEdits(cmd.Context(), sheetID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read edit log", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(events)
	}

	if len(events) == 0 {
		return out.Success("no edits recorded")
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "%s  %-6s %-8s seq=%-5d %s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.CellID, ev.ActorID, ev.Seq, describePatch(ev))
	}
	return out.Success(strings.TrimRight(b.String(), "\n"))
}

func describePatch(ev collab.EditEvent) string {
	switch {
	case ev.Data.Formula != nil && *ev.Data.Formula != "":
		return "formula " + *ev.Data.Formula
	case ev.Data.Value != nil:
		return "value " + *ev.Data.Value
	case ev.Data.Style != nil:
		return "style change"
	default:
		return "cleared"
	}
}
