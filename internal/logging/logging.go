// Package logging builds the zap loggers used by the CLI and the pipeline.
package logging

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for consistent structured logging.
const (
	FieldFile       = "file"
	FieldUnit       = "unit"
	FieldPath       = "path"
	FieldEntity     = "entity"
	FieldRunID      = "run_id"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldErrorCode  = "error_code"
)

// Options selects the logger's encoding and level.
type Options struct {
	JSON    bool
	Level   string // debug, info, warn or error
	Verbose bool   // forces debug level
}

// New returns a logger writing to w. JSON output uses the production encoder;
// console output omits timestamps so that logs stay readable next to command
// output.
func New(w io.Writer, opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
