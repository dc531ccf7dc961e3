package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanVnn/icerpc-csharp/internal/testutil"
)

// createTestLedger opens a ledger in a temp dir with deterministic IDs and clock.
func createTestLedger(t *testing.T, ids ...string) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"),
		WithIDGenerator(testutil.NewFixedIDGenerator(ids...)),
		WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		l, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, l.Close())
	}
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	l := createTestLedger(t)

	assert.NoError(t, l.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, l.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, l.verifyPragma("user_version", "1"))
	assert.Error(t, l.verifyPragma("foreign_keys", "0"))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "ledger.db"))
	assert.Error(t, err)
}

func TestRecordAssignsIdentity(t *testing.T) {
	l := createTestLedger(t, "run-a", "run-b")
	ctx := context.Background()

	first, err := l.Record(ctx, Run{
		ToolVersion: "0.3.0",
		SourceHash:  "src",
		OutputDir:   "out",
		Outputs: []Output{
			{Source: "greeter", Kind: "types", Path: "out/greeter.cs", Hash: "h1"},
			{Source: "greeter", Kind: "interfaces", Path: "out/greeter.IceRpc.cs", Hash: "h2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-a", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, StatusOK, first.Status)
	assert.Equal(t, testutil.Epoch, first.RecordedAt)

	second, err := l.Record(ctx, Run{
		ToolVersion: "0.3.0",
		SourceHash:  "src",
		OutputDir:   "out",
		Failures:    []Failure{{Source: "broken", Message: "unresolved reference"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-b", second.ID)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, StatusFailed, second.Status)
}

func TestRunsNewestFirst(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := l.Record(ctx, Run{ToolVersion: "0.3.0", SourceHash: "s", OutputDir: "out"})
		require.NoError(t, err)
	}

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{runs[0].Seq, runs[1].Seq, runs[2].Seq})
	assert.Equal(t, "run-3", runs[0].ID)

	limited, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunsEmpty(t *testing.T) {
	l := createTestLedger(t)
	runs, err := l.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestLatestSkipsFailedRuns(t *testing.T) {
	l := createTestLedger(t, "good", "bad")
	ctx := context.Background()

	_, err := l.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	_, err = l.Record(ctx, Run{ToolVersion: "0.3.0", SourceHash: "s", OutputDir: "out", Outputs: []Output{
		{Source: "b", Kind: "types", Path: "out/b.cs", Hash: "hb"},
		{Source: "a", Kind: "interfaces", Path: "out/a.IceRpc.cs", Hash: "ha2"},
		{Source: "a", Kind: "types", Path: "out/a.cs", Hash: "ha1"},
	}})
	require.NoError(t, err)
	_, err = l.Record(ctx, Run{ToolVersion: "0.3.0", SourceHash: "s", OutputDir: "out",
		Failures: []Failure{{Source: "c", Message: "boom"}}})
	require.NoError(t, err)

	latest, err := l.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", latest.ID)
	require.Len(t, latest.Outputs, 3)
	assert.Equal(t, "a", latest.Outputs[0].Source)
	assert.Equal(t, "types", latest.Outputs[0].Kind)
	assert.Equal(t, "interfaces", latest.Outputs[1].Kind)
	assert.Equal(t, "b", latest.Outputs[2].Source)
}

func TestRecordRejectsDuplicateUnits(t *testing.T) {
	l := createTestLedger(t)
	_, err := l.Record(context.Background(), Run{ToolVersion: "0.3.0", SourceHash: "s", OutputDir: "out", Outputs: []Output{
		{Source: "a", Kind: "types", Path: "a.cs", Hash: "1"},
		{Source: "a", Kind: "types", Path: "a.cs", Hash: "2"},
	}})
	require.Error(t, err)

	runs, err := l.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "a failed record leaves nothing behind")
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
