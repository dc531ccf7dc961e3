package ledger

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNoRuns is returned when the ledger holds no run.
var ErrNoRuns = errors.New("ledger has no recorded runs")

// Run status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Output is one generated unit as written to disk.
type Output struct {
	Source string `json:"source"` // Slice file name without extension
	Kind   string `json:"kind"`   // "types" or "interfaces"
	Path   string `json:"path"`
	Hash   string `json:"hash"`
}

// Failure is a source that produced no output.
type Failure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Run is one recorded generate invocation.
type Run struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	ToolVersion string    `json:"tool_version"`
	SourceHash  string    `json:"source_hash"`
	OutputDir   string    `json:"output_dir"`
	Status      string    `json:"status"`
	RecordedAt  time.Time `json:"recorded_at"`
	Outputs     []Output  `json:"outputs,omitempty"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Record stores a run with its outputs and failures in one transaction.
// ID, Seq, Status and RecordedAt are assigned by the ledger; the stored
// run is returned.
func (l *Ledger) Record(ctx context.Context, run Run) (Run, error) {
	run.ID = l.ids.Generate()
	run.RecordedAt = l.clock.Now().UTC()
	run.Status = StatusOK
	if len(run.Failures) > 0 {
		run.Status = StatusFailed
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, "record run")
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, errors.Wrap(err, "record run: next seq")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, tool_version, source_hash, output_dir, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seq, run.ToolVersion, run.SourceHash, run.OutputDir, run.Status, run.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Run{}, errors.Wrap(err, "record run")
	}

	for _, o := range run.Outputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outputs (run_id, source, kind, path, hash) VALUES (?, ?, ?, ?, ?)
		`, run.ID, o.Source, o.Kind, o.Path, o.Hash); err != nil {
			return Run{}, errors.Wrapf(err, "record output %s/%s", o.Source, o.Kind)
		}
	}
	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, source, message) VALUES (?, ?, ?)
		`, run.ID, f.Source, f.Message); err != nil {
			return Run{}, errors.Wrapf(err, "record failure %s", f.Source)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "record run: commit")
	}
	return run, nil
}

// Runs returns up to limit runs, newest first, without outputs.
// A limit of zero or less returns every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, seq, tool_version, source_hash, output_dir, status, recorded_at
		FROM runs
		ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return runs, nil
}

// Latest returns the most recent successful run with its outputs, or
// ErrNoRuns.
func (l *Ledger) Latest(ctx context.Context) (Run, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, seq, tool_version, source_hash, output_dir, status, recorded_at
		FROM runs
		WHERE status = ?
		ORDER BY seq DESC
		LIMIT 1
	`, StatusOK)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, err
	}

	run.Outputs, err = l.Outputs(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Outputs returns the units recorded for a run, ordered by source then kind.
func (l *Ledger) Outputs(ctx context.Context, runID string) ([]Output, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT source, kind, path, hash
		FROM outputs
		WHERE run_id = ?
		ORDER BY source COLLATE BINARY ASC, kind COLLATE BINARY DESC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query outputs")
	}
	defer rows.Close()

	outputs := []Output{}
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.Source, &o.Kind, &o.Path, &o.Hash); err != nil {
			return nil, errors.Wrap(err, "scan output")
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate outputs")
	}
	return outputs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var recordedAt string
	err := s.Scan(&run.ID, &run.Seq, &run.ToolVersion, &run.SourceHash, &run.OutputDir, &run.Status, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, "scan run")
	}
	run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, errors.Wrapf(err, "run %s: recorded_at", run.ID)
	}
	return run, nil
}

// Mismatch describes a unit whose current hash differs from the recorded one.
// An empty Recorded or Current hash means the unit is missing on that side.
type Mismatch struct {
	Source   string `json:"source"`
	Kind     string `json:"kind"`
	Recorded string `json:"recorded,omitempty"`
	Current  string `json:"current,omitempty"`
}

// Compare reports every unit that differs between a recorded run and a
// fresh in-memory generation, ordered by source then kind.
func Compare(recorded, current []Output) []Mismatch {
	type key struct{ source, kind string }
	byKey := make(map[key]*Mismatch)
	for _, o := range recorded {
		byKey[key{o.Source, o.Kind}] = &Mismatch{Source: o.Source, Kind: o.Kind, Recorded: o.Hash}
	}
	for _, o := range current {
		k := key{o.Source, o.Kind}
		if m, ok := byKey[k]; ok {
			m.Current = o.Hash
			continue
		}
		byKey[k] = &Mismatch{Source: o.Source, Kind: o.Kind, Current: o.Hash}
	}

	var out []Mismatch
	for _, m := range byKey {
		if m.Recorded != m.Current {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Kind > out[j].Kind
	})
	return out
}
