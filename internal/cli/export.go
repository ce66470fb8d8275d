package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/storage"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	UserID   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <output.xlsx>",
		Short: "Export a stored workbook to xlsx",
		Long: `Export a user's persisted workbook to an xlsx file.

Formula cells keep their formulas, so desktop tools recalculate them.

Example:
  gridsync export --db ./gridsync.db --user alice ./alice.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "gridsync.db", "path to SQLite database")
	cmd.Flags().StringVar(&opts.UserID, "user", "default", "workbook owner id")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions, outPath string) error {
	st, err := storage.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	f, err := st.LoadWorkbook(cmd.Context(), opts.UserID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load workbook", err)
	}

	if err := storage.ExportXLSX(f, outPath); err != nil {
		return WrapExitError(ExitFailure, "failed to write xlsx", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(fmt.Sprintf("exported %d sheet(s) to %s", len(f.Sheets), outPath))
}
