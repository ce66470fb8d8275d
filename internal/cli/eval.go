package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/eval"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <formula> [cell=value ...]",
		Short: "Evaluate a formula against ad-hoc cell bindings",
		Long: `Evaluate a single formula without a server or database.

Cell bindings are given as extra arguments. The printed result is the
display value, so evaluation errors come out as their error tokens.

Example:
  gridsync eval "=SUM(A1:A3)" A1=10 A2=20 A3=5
  gridsync eval "=IF(A1>5,big,small)" A1=7`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args[0], args[1:])
		},
	}

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions, formula string, bindings []string) error {
	snap := eval.MapSnapshot{}
	for _, b := range bindings {
		cellID, value, ok := strings.Cut(b, "=")
		if !ok {
			return WrapExitError(ExitCommandError, "bindings must look like A1=10",
				fmt.Errorf("bad binding %q", b))
		}
		snap[cellID] = value
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	result, err := eval.Evaluate(formula, snap)
	if err != nil {
		// Error tokens are a result, not a command failure.
		return out.Success(eval.DisplayToken(err))
	}
	return out.Success(result.String())
}
