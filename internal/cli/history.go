package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List the runs recorded in the ledger, newest first.

Examples:
  slicec-cs history
  slicec-cs history --limit 0 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of runs, 0 for all")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	l, err := e.openLedger(true)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.Runs(cmd.Context(), opts.Limit)
	if err != nil {
		_ = e.out.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read ledger", err)
	}

	if e.out.IsJSON() {
		return e.out.Success(runs)
	}
	if len(runs) == 0 {
		e.out.Printf("No runs recorded.\n")
		return nil
	}
	for _, r := range runs {
		e.out.Printf("%4d  %s  %-6s  %s  %s  %s\n",
			r.Seq, r.ID, r.Status, r.RecordedAt.Format(time.RFC3339), shortHash(r.SourceHash), r.OutputDir)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
