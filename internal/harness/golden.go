package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// goldenName is the fixture name of a generated unit: the scenario name and
// the unit file name, e.g. "geometry_point.cs".
func goldenName(scenario, unitFile string) string {
	return scenario + "_" + unitFile
}

// RunWithGolden executes a scenario, requires every case to pass and
// compares each generated C# unit against testdata/golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	h, err := New(scenario)
	require.NoError(t, err)

	result := h.Run(context.Background(), scenario)
	require.True(t, result.Pass, "scenario %s failed: %v", scenario.Name, result.Errors())

	units, err := h.Units()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, u := range units {
		g.Assert(t, goldenName(scenario.Name, u.Filename), []byte(u.Content))
	}
	return result
}

// Snapshot renders a result as indented JSON with sorted keys.
func Snapshot(result *Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
