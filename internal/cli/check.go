package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IvanVnn/icerpc-csharp/internal/harness"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Filter string
}

// ScenarioResult is the outcome of one scenario as reported by check.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Cases  int      `json:"cases"`
	Errors []string `json:"errors,omitempty"`
}

// CheckResult is the output of the check command.
type CheckResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenario-dir>",
		Short: "Run conformance scenarios against the encoding runtime",
		Long: `Load every YAML scenario in <scenario-dir> and run its cases: encode and
decode round trips, slicing of unknown classes, enum decoding and operation
dispatch through a proxy.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid scenario files, invalid filter, etc.)

Examples:
  slicec-cs check ./scenarios
  slicec-cs check ./scenarios --filter 'zoo*' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			_ = e.out.Error(ErrCodeScenarioFailed, fmt.Sprintf("invalid filter %q", opts.Filter), nil)
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}

	scenarios, err := harness.LoadScenarios(dir)
	if err != nil {
		_ = e.out.Error(ErrCodeScenarioFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load scenarios", err)
	}

	result := CheckResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, s.Name); !ok {
				continue
			}
		}
		e.out.VerboseLog("Running scenario %s", s.Name)

		sr := ScenarioResult{Name: s.Name, Cases: len(s.Cases)}
		r, err := harness.Run(cmd.Context(), s, harness.WithLogger(e.log))
		if err != nil {
			sr.Errors = []string{err.Error()}
		} else {
			sr.Pass = r.Pass
			sr.Errors = r.Errors()
		}

		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return outputCheck(e, result)
}

func outputCheck(e *env, result CheckResult) error {
	var exitErr error
	if result.Failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if e.out.IsJSON() {
		if exitErr != nil {
			if err := e.out.Report(ErrCodeScenarioFailed, exitErr.Error(), result); err != nil {
				return err
			}
			return exitErr
		}
		return e.out.Success(result)
	}

	for _, s := range result.Scenarios {
		if s.Pass {
			e.out.Printf("✓ %s (%d cases)\n", s.Name, s.Cases)
			continue
		}
		e.out.Printf("✗ %s\n", s.Name)
		for _, msg := range s.Errors {
			e.out.Printf("    %s\n", msg)
		}
	}
	e.out.Printf("\n%d passed, %d failed\n", result.Passed, result.Failed)
	return exitErr
}
