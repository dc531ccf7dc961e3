package cli

import (
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <slice-dir>",
		Short: "Validate Slice definitions without generating code",
		Long: `Load every CUE file under <slice-dir> and run the front-end checks:
duplicate definitions, unresolved references, inheritance cycles, tags,
enumerators, dictionary keys and operation conflicts across bases.

No files are written. Faster than generate for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, sliceDir string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}

	set, problems, err := e.loadSlice(sliceDir)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return e.reportProblems(problems)
	}

	entities := 0
	for _, f := range set.Files {
		entities += len(f.Entities)
	}
	if e.out.IsJSON() {
		return e.out.Success(ValidationReport{Valid: true, Files: len(set.Files)})
	}
	e.out.Printf("✓ All definitions valid (%d file(s), %d definition(s))\n", len(set.Files), entities)
	return nil
}
