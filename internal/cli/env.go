package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IvanVnn/icerpc-csharp/internal/config"
	"github.com/IvanVnn/icerpc-csharp/internal/frontend"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/ledger"
	"github.com/IvanVnn/icerpc-csharp/internal/logging"
)

// env is the per-invocation state shared by the commands.
type env struct {
	cfg *config.Config
	log *zap.Logger
	out *OutputFormatter
}

func newEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		_ = out.Error(frontend.ErrCodeGeneric, err.Error(), errors.FlattenHints(err))
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	log, err := logging.New(out.GetErrWriter(), logging.Options{
		JSON:    cfg.Log.JSON,
		Level:   cfg.Log.Level,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "create logger", err)
	}
	return &env{cfg: cfg, log: log, out: out}, nil
}

// Problem is one load or validation error in command output.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Field   string `json:"field,omitempty"`
	Line    int    `json:"line,omitempty"`
}

func (p Problem) String() string {
	loc := p.File
	if loc != "" && p.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, p.Line)
	}
	if p.Field != "" {
		if loc != "" {
			loc += ": "
		}
		loc += p.Field
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", p.Code, p.Message)
	}
	return fmt.Sprintf("%s: %s: %s", p.Code, loc, p.Message)
}

func loadProblem(err error) Problem {
	var loadErr *frontend.LoadError
	if errors.As(err, &loadErr) {
		p := Problem{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			p.File = loadErr.Pos.Filename()
			p.Line = loadErr.Pos.Line()
		}
		return p
	}
	return Problem{Code: frontend.ErrCodeGeneric, Message: err.Error()}
}

func validationProblem(e frontend.ValidationError) Problem {
	file := ""
	if e.File != "" {
		file = e.File + ".slice"
	}
	return Problem{Code: e.Code, Message: e.Message, File: file, Field: e.Field}
}

// sliceSet is a loaded and validated slice directory.
type sliceSet struct {
	Files []*grammar.File
	Defs  *grammar.Definitions
}

// loadSlice loads and validates every CUE file under dir. Directory errors
// are command errors; malformed or invalid definitions are failures, reported
// together.
func (e *env) loadSlice(dir string) (*sliceSet, []Problem, error) {
	loaded, errs := frontend.Load(dir, frontend.LoadModeCollectAll)
	if loaded == nil {
		p := loadProblem(errs[0])
		_ = e.out.Error(p.Code, p.Message, nil)
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", p.Code, p.Message))
	}
	e.out.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	var problems []Problem
	for _, err := range errs {
		problems = append(problems, loadProblem(err))
	}
	if len(problems) > 0 {
		return nil, problems, nil
	}

	defs, verrs := frontend.Validate(loaded.Files)
	for _, v := range verrs {
		problems = append(problems, validationProblem(v))
	}
	if len(problems) > 0 {
		return nil, problems, nil
	}
	return &sliceSet{Files: loaded.Files, Defs: defs}, nil, nil
}

// ValidationReport is the payload of a failed load or validation.
type ValidationReport struct {
	Valid  bool      `json:"valid"`
	Files  int       `json:"files,omitempty"`
	Errors []Problem `json:"errors,omitempty"`
}

// reportProblems prints problems and returns the failure exit error.
func (e *env) reportProblems(problems []Problem) error {
	for _, p := range problems {
		e.log.Debug("invalid definitions",
			zap.String(logging.FieldErrorCode, p.Code),
			zap.String(logging.FieldFile, p.File))
	}

	msg := fmt.Sprintf("validation failed with %d error(s)", len(problems))
	if e.out.IsJSON() {
		if err := e.out.Report(problems[0].Code, msg, ValidationReport{Valid: false, Errors: problems}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	e.out.Printf("✗ Validation failed\n\n")
	for _, p := range problems {
		e.out.Printf("  %s\n", p)
	}
	return NewExitError(ExitFailure, msg)
}

// openLedger opens the configured ledger, creating its directory. With
// mustExist, a missing database is a command error.
func (e *env) openLedger(mustExist bool) (*ledger.Ledger, error) {
	path := e.cfg.Ledger.Path
	if mustExist {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			_ = e.out.Error(ErrCodeLedger, fmt.Sprintf("no ledger at %s", path), nil)
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("no ledger at %s; run `slicec-cs generate` first", path))
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "create ledger directory", err)
	}

	l, err := ledger.Open(path)
	if err != nil {
		_ = e.out.Error(ErrCodeLedger, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	return l, nil
}
