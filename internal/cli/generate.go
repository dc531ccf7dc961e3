package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IvanVnn/icerpc-csharp/internal/generators"
	"github.com/IvanVnn/icerpc-csharp/internal/ledger"
	"github.com/IvanVnn/icerpc-csharp/internal/logging"
	"github.com/IvanVnn/icerpc-csharp/internal/pipeline"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	OutputDir string
	Workers   int
	DryRun    bool
	NoLedger  bool
}

// FileFailure is a Slice file that produced no output.
type FileFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// GenerateResult is the output of the generate command.
type GenerateResult struct {
	RunID     string                `json:"run_id,omitempty"`
	OutputDir string                `json:"output_dir"`
	DryRun    bool                  `json:"dry_run,omitempty"`
	Units     []pipeline.UnitResult `json:"units"`
	Failures  []FileFailure         `json:"failures,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <slice-dir>",
		Short: "Generate C# from Slice definitions",
		Long: `Load and validate every CUE file under <slice-dir>, then generate the
C# units of each Slice file in parallel.

A file whose generation fails produces no output; the other files are still
written. Each unit is written atomically. Unless --dry-run or --no-ledger is
given, the run and the hash of every unit are recorded in the ledger.

Exit codes:
  0 - All files generated
  1 - Invalid definitions or one or more files failed
  2 - Command error (invalid paths, unwritable output, etc.)

Examples:
  slicec-cs generate ./slice
  slicec-cs generate ./slice -o ./src/Generated --workers 4
  slicec-cs generate ./slice --dry-run --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "output directory (default from config: generated)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel workers, 0 = one per CPU (default from config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "generate and hash units without writing them")
	cmd.Flags().BoolVar(&opts.NoLedger, "no-ledger", false, "do not record the run in the ledger")

	return cmd
}

func runGenerate(opts *GenerateOptions, sliceDir string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output-dir") {
		e.cfg.OutputDir = opts.OutputDir
	}
	if cmd.Flags().Changed("workers") {
		if opts.Workers < 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("--workers must be >= 0, got %d", opts.Workers))
		}
		e.cfg.Workers = opts.Workers
	}

	set, problems, err := e.loadSlice(sliceDir)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return e.reportProblems(problems)
	}

	genOpts := generators.DefaultOptions()
	if e.cfg.Generate.ToolVersion != "" {
		genOpts.ToolVersion = e.cfg.Generate.ToolVersion
	}

	res, err := pipeline.Run(cmd.Context(), e.log, pipeline.Request{
		Files:     set.Files,
		Defs:      set.Defs,
		Options:   genOpts,
		OutputDir: e.cfg.OutputDir,
		Workers:   e.cfg.Workers,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		_ = e.out.Error(ErrCodeGenerationAborted, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generation aborted", err)
	}

	result := GenerateResult{OutputDir: e.cfg.OutputDir, DryRun: opts.DryRun, Units: res.Units}
	for _, f := range res.Failures {
		result.Failures = append(result.Failures, FileFailure{Source: f.Source, Message: f.Err.Error()})
	}

	if e.cfg.Ledger.Enabled && !opts.DryRun && !opts.NoLedger {
		runID, err := e.record(cmd, set, res, genOpts.ToolVersion)
		if err != nil {
			return err
		}
		result.RunID = runID
	}

	return outputGenerate(e, result, len(set.Files))
}

func (e *env) record(cmd *cobra.Command, set *sliceSet, res *pipeline.Result, toolVersion string) (string, error) {
	sourceHash, err := ledger.SourceHash(set.Files)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "hash sources", err)
	}
	l, err := e.openLedger(false)
	if err != nil {
		return "", err
	}
	defer l.Close()

	run, err := l.Record(cmd.Context(), ledger.Run{
		ToolVersion: toolVersion,
		SourceHash:  sourceHash,
		OutputDir:   e.cfg.OutputDir,
		Outputs:     res.Outputs(),
		Failures:    res.LedgerFailures(),
	})
	if err != nil {
		_ = e.out.Error(ErrCodeLedger, err.Error(), nil)
		return "", WrapExitError(ExitCommandError, "record run", err)
	}
	e.log.Info("run recorded",
		zap.String(logging.FieldRunID, run.ID),
		zap.Int(logging.FieldCount, len(run.Outputs)))
	return run.ID, nil
}

func outputGenerate(e *env, result GenerateResult, files int) error {
	var exitErr error
	if len(result.Failures) > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("generation failed for %d file(s)", len(result.Failures)))
	}

	if e.out.IsJSON() {
		if exitErr != nil {
			if err := e.out.Report(ErrCodeGenerationFailed, exitErr.Error(), result); err != nil {
				return err
			}
			return exitErr
		}
		return e.out.Success(result)
	}

	verb := "Generated"
	if result.DryRun {
		verb = "Would generate"
	}
	e.out.Printf("✓ %s %d unit(s) from %d file(s) into %s\n", verb, len(result.Units), files-len(result.Failures), result.OutputDir)
	for _, u := range result.Units {
		e.out.Printf("  %s\n", u.Path)
	}
	for _, f := range result.Failures {
		e.out.Printf("✗ %s.slice: %s\n", f.Source, f.Message)
	}
	if result.RunID != "" {
		e.out.Printf("Recorded run %s\n", result.RunID)
	}
	return exitErr
}
