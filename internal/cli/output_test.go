package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"result": "success"}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E005", "slice directory not found", map[string]string{"dir": "x"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "slice directory not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Report("E202", "validation failed", map[string]bool{"valid": false}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]any{"valid": false}, resp.Data)
	assert.Equal(t, "E202", resp.Error.Code)

	text := &bytes.Buffer{}
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: text}).Report("E202", "x", nil))
	assert.Empty(t, text.String(), "text reports are written by the command")
}

func TestOutputFormatter_TextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("All definitions valid"))
	require.NoError(t, formatter.Error("E003", "no CUE files found", map[string]string{"dir": "x"}))
	formatter.Printf("%d unit(s)\n", 2)

	out := buf.String()
	assert.Contains(t, out, "All definitions valid")
	assert.Contains(t, out, "Error [E003]: no CUE files found")
	assert.NotContains(t, out, "Details:", "details need --verbose")
	assert.Contains(t, out, "2 unit(s)")
}

func TestOutputFormatter_PrintfSilentInJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	(&OutputFormatter{Format: "json", Writer: buf}).Printf("hello")
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("Processing %s", "greeter.cue")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Contains(t, diag.String(), "Processing greeter.cue")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := errors.Wrap(WrapExitError(ExitFailure, "validation failed", errors.New("cause")), "outer")
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "validation failed: cause", WrapExitError(ExitFailure, "validation failed", errors.New("cause")).Error())
}
