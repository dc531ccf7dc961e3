package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanVnn/icerpc-csharp/internal/ledger"
)

// generated runs generate in a fresh workspace and returns the slice
// directory.
func generated(t *testing.T) string {
	t.Helper()
	dir := workspace(t)
	_, err := execute(t, "generate", dir)
	require.NoError(t, err)
	return dir
}

func TestVerify_Reproducible(t *testing.T) {
	dir := generated(t)

	out, err := execute(t, "verify", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "reproduced exactly")
	assert.NotContains(t, out, "definitions changed")
}

func TestVerify_ModifiedFile(t *testing.T) {
	dir := generated(t)
	path := filepath.Join("generated", "geometry.cs")
	writeFile(t, path, "// edited by hand\n")

	out, err := execute(t, "verify", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "is not reproducible")
	assert.Contains(t, out, path+": modified")
}

func TestVerify_MissingFile(t *testing.T) {
	dir := generated(t)
	path := filepath.Join("generated", "hello.IceRpc.cs")
	require.NoError(t, os.Remove(path))

	out, err := execute(t, "verify", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, path+": missing")
}

func TestVerify_SourceChanged(t *testing.T) {
	dir := generated(t)
	changed := strings.Replace(geometryCUE, `{name: "y", type: "int32"},`, `{name: "y", type: "int32"},
		{name: "z", type: "int32"},`, 1)
	writeFile(t, filepath.Join(dir, "geometry.cue"), changed)

	out, err := execute(t, "verify", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "! Slice definitions changed")
	assert.Contains(t, out, "geometry (types): hash changed")
	assert.NotContains(t, out, "hello (types)")
}

func TestVerify_NewFileNotInLedger(t *testing.T) {
	dir := generated(t)
	writeFile(t, filepath.Join(dir, "more.cue"), `module: "More"
definitions: [{struct: "Extra", fields: [{name: "n", type: "bool"}]}]
`)

	out, err := execute(t, "verify", dir)
	require.Error(t, err)
	assert.Contains(t, out, "more (types): not in the ledger")
}

func TestVerify_JSON(t *testing.T) {
	dir := generated(t)
	writeFile(t, filepath.Join("generated", "geometry.cs"), "")

	out, err := execute(t, "verify", "--format", "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotReproducible, resp.Error.Code)
	assert.False(t, resp.Data.Reproducible)
	assert.False(t, resp.Data.SourceChanged)
	assert.Empty(t, resp.Data.Mismatches)
	assert.Equal(t, []DiskIssue{{Path: filepath.Join("generated", "geometry.cs"), Reason: "modified"}}, resp.Data.Disk)
}

func TestVerify_NoLedger(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, "verify", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no ledger at")
}

func TestVerify_NoSuccessfulRun(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.MkdirAll(".slicec-cs", 0o755))
	l, err := ledger.Open(filepath.Join(".slicec-cs", "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = execute(t, "verify", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no successful run recorded")
}

func TestCheckDisk(t *testing.T) {
	dir := t.TempDir()
	same := filepath.Join(dir, "same.cs")
	writeFile(t, same, "class A {}")

	issues := checkDisk([]ledger.Output{
		{Path: same, Hash: ledger.UnitHash("class A {}")},
		{Path: filepath.Join(dir, "gone.cs"), Hash: ledger.UnitHash("x")},
	})
	assert.Equal(t, []DiskIssue{{Path: filepath.Join(dir, "gone.cs"), Reason: "missing"}}, issues)
}
