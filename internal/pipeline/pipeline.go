// Package pipeline generates the C# units for a set of Slice files in
// parallel and writes them to disk.
//
// Each file is generated independently from the shared, read-only
// definitions arena. A file whose generation fails produces no output and is
// reported as a failure; the other files are unaffected. I/O errors abort
// the run.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanVnn/icerpc-csharp/internal/generators"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/ledger"
	"github.com/IvanVnn/icerpc-csharp/internal/logging"
)

// Request describes one batch generation.
type Request struct {
	Files   []*grammar.File
	Defs    *grammar.Definitions
	Options generators.Options
	// OutputDir receives the generated units. Ignored when DryRun is set.
	OutputDir string
	// Workers bounds parallelism; 0 means one worker per CPU.
	Workers int
	// DryRun generates and hashes units without writing them.
	DryRun bool
}

// UnitResult is one generated unit.
type UnitResult struct {
	Source  string              `json:"source"`
	Kind    generators.UnitKind `json:"kind"`
	Path    string              `json:"path"`
	Hash    string              `json:"hash"`
	Content string              `json:"-"`
}

// FileFailure is a Slice file that produced no output.
type FileFailure struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Result is the outcome of a run. Units and Failures follow the order of
// Request.Files.
type Result struct {
	Units    []UnitResult  `json:"units"`
	Failures []FileFailure `json:"failures,omitempty"`
}

type fileResult struct {
	units []UnitResult
	err   error
}

// Run generates every file of req. The returned error is non-nil only for
// failures that stop the whole run (cancellation, I/O); per-file generation
// errors are reported in Result.Failures.
func Run(ctx context.Context, log *zap.Logger, req Request) (*Result, error) {
	if log == nil {
		log = logging.Nop()
	}
	opts := req.Options
	if opts.Namespaces == nil {
		opts.Namespaces = generators.NamespacesOf(req.Files)
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]fileResult, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range req.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			units, err := generators.GenerateUnits(file, req.Defs, opts)
			if err != nil {
				fields := []zap.Field{
					zap.String(logging.FieldFile, file.Filename),
					zap.NamedError(logging.FieldError, err),
				}
				var ge *generators.GenerateError
				if errors.As(err, &ge) && ge.Entity != "" {
					fields = append(fields, zap.String(logging.FieldEntity, ge.Entity))
				}
				log.Warn("generation failed", fields...)
				results[i].err = err
				return nil
			}

			for _, u := range units {
				path := filepath.Join(req.OutputDir, u.Filename)
				if !req.DryRun {
					if err := writeAtomic(path, u.Content); err != nil {
						return errors.Wrapf(err, "write %s", path)
					}
					log.Debug("unit written",
						zap.String(logging.FieldUnit, u.Filename),
						zap.String(logging.FieldPath, path))
				}
				results[i].units = append(results[i].units, UnitResult{
					Source:  file.Filename,
					Kind:    u.Kind,
					Path:    path,
					Hash:    ledger.UnitHash(u.Content),
					Content: u.Content,
				})
			}
			log.Debug("generated",
				zap.String(logging.FieldFile, file.Filename),
				zap.Int(logging.FieldCount, len(units)),
				zap.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Units: []UnitResult{}}
	for i, r := range results {
		if r.err != nil {
			res.Failures = append(res.Failures, FileFailure{Source: req.Files[i].Filename, Err: r.err})
			continue
		}
		res.Units = append(res.Units, r.units...)
	}
	log.Info("generation finished",
		zap.Int("units", len(res.Units)),
		zap.Int("failures", len(res.Failures)))
	return res, nil
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place, so readers never observe a partial unit.
func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Outputs converts the units to ledger rows.
func (r *Result) Outputs() []ledger.Output {
	out := make([]ledger.Output, len(r.Units))
	for i, u := range r.Units {
		out[i] = ledger.Output{Source: u.Source, Kind: string(u.Kind), Path: u.Path, Hash: u.Hash}
	}
	return out
}

// LedgerFailures converts the failures to ledger rows.
func (r *Result) LedgerFailures() []ledger.Failure {
	var out []ledger.Failure
	for _, f := range r.Failures {
		out = append(out, ledger.Failure{Source: f.Source, Message: f.Err.Error()})
	}
	return out
}
