package cli

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/IvanVnn/icerpc-csharp/internal/generators"
	"github.com/IvanVnn/icerpc-csharp/internal/ledger"
	"github.com/IvanVnn/icerpc-csharp/internal/pipeline"
)

// DiskIssue is a recorded unit whose file no longer matches the ledger.
type DiskIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"` // "missing" or "modified"
}

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	RunID         string            `json:"run_id"`
	Reproducible  bool              `json:"reproducible"`
	SourceChanged bool              `json:"source_changed"`
	Mismatches    []ledger.Mismatch `json:"mismatches,omitempty"`
	Disk          []DiskIssue       `json:"disk,omitempty"`
	Failures      []FileFailure     `json:"failures,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <slice-dir>",
		Short: "Check that generated code is reproducible",
		Long: `Regenerate every unit in memory with the tool version of the latest
successful run in the ledger and compare the hashes with the recorded ones.
The recorded files are also checked on disk.

Exit codes:
  0 - Output reproduced exactly and files on disk are unchanged
  1 - Hash mismatch, modified or missing files, or invalid definitions
  2 - Command error (no ledger, no recorded run, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, sliceDir string, cmd *cobra.Command) error {
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

	l, err := e.openLedger(true)
	if err != nil {
		return err
	}
	defer l.Close()

	latest, err := l.Latest(cmd.Context())
	if errors.Is(err, ledger.ErrNoRuns) {
		_ = e.out.Error(ErrCodeLedger, "no successful run recorded", nil)
		return NewExitError(ExitCommandError, "no successful run recorded; run `slicec-cs generate` first")
	}
	if err != nil {
		_ = e.out.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read ledger", err)
	}

	res, err := pipeline.Run(cmd.Context(), e.log, pipeline.Request{
		Files:     set.Files,
		Defs:      set.Defs,
		Options:   generators.Options{ToolVersion: latest.ToolVersion},
		OutputDir: latest.OutputDir,
		Workers:   e.cfg.Workers,
		DryRun:    true,
	})
	if err != nil {
		_ = e.out.Error(ErrCodeGenerationAborted, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generation aborted", err)
	}

	sourceHash, err := ledger.SourceHash(set.Files)
	if err != nil {
		return WrapExitError(ExitCommandError, "hash sources", err)
	}

	result := VerifyResult{
		RunID:         latest.ID,
		SourceChanged: sourceHash != latest.SourceHash,
		Mismatches:    ledger.Compare(latest.Outputs, res.Outputs()),
		Disk:          checkDisk(latest.Outputs),
	}
	for _, f := range res.Failures {
		result.Failures = append(result.Failures, FileFailure{Source: f.Source, Message: f.Err.Error()})
	}
	result.Reproducible = len(result.Mismatches) == 0 && len(result.Disk) == 0 && len(result.Failures) == 0

	return outputVerify(e, result)
}

// checkDisk re-hashes every recorded unit file.
func checkDisk(outputs []ledger.Output) []DiskIssue {
	var issues []DiskIssue
	for _, o := range outputs {
		data, err := os.ReadFile(o.Path)
		switch {
		case err != nil:
			issues = append(issues, DiskIssue{Path: o.Path, Reason: "missing"})
		case ledger.UnitHash(string(data)) != o.Hash:
			issues = append(issues, DiskIssue{Path: o.Path, Reason: "modified"})
		}
	}
	return issues
}

func outputVerify(e *env, result VerifyResult) error {
	var exitErr error
	if !result.Reproducible {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("output of run %s is not reproducible", result.RunID))
	}

	if e.out.IsJSON() {
		if exitErr != nil {
			if err := e.out.Report(ErrCodeNotReproducible, exitErr.Error(), result); err != nil {
				return err
			}
			return exitErr
		}
		return e.out.Success(result)
	}

	if result.SourceChanged {
		e.out.Printf("! Slice definitions changed since run %s\n", result.RunID)
	}
	if result.Reproducible {
		e.out.Printf("✓ Output of run %s reproduced exactly\n", result.RunID)
		return nil
	}

	e.out.Printf("✗ Output of run %s is not reproducible\n", result.RunID)
	for _, m := range result.Mismatches {
		switch {
		case m.Recorded == "":
			e.out.Printf("  %s (%s): not in the ledger\n", m.Source, m.Kind)
		case m.Current == "":
			e.out.Printf("  %s (%s): no longer generated\n", m.Source, m.Kind)
		default:
			e.out.Printf("  %s (%s): hash changed\n", m.Source, m.Kind)
		}
	}
	for _, d := range result.Disk {
		e.out.Printf("  %s: %s\n", d.Path, d.Reason)
	}
	for _, f := range result.Failures {
		e.out.Printf("  %s.slice: %s\n", f.Source, f.Message)
	}
	return exitErr
}
