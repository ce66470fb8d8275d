package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/grid"
	"github.com/roach88/gridsync/internal/storage"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	UserID   string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <input.xlsx>",
		Short: "Import an xlsx file as a stored workbook",
		Long: `Import an xlsx file, replacing the user's persisted workbook.

Each xlsx sheet becomes a workbook sheet with a fresh identifier.

Example:
  gridsync import --db ./gridsync.db --user alice ./budget.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "gridsync.db", "path to SQLite database")
	cmd.Flags().StringVar(&opts.UserID, "user", "default", "workbook owner id")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, inPath string) error {
	f, err := storage.ImportXLSX(inPath, opts.UserID, grid.UUIDv7Generator{}, time.Now)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read xlsx", err)
	}

	st, err := storage.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.SaveWorkbook(cmd.Context(), f); err != nil {
		return WrapExitError(ExitFailure, "failed to save workbook", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(fmt.Sprintf("imported %d sheet(s) for %s", len(f.Sheets), opts.UserID))
}
