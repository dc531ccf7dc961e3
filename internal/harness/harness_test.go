package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func runTestScenario(t *testing.T, name string) *Result {
	t.Helper()
	result, err := Run(context.Background(), loadTestScenario(t, name))
	require.NoError(t, err)
	return result
}

func caseByName(t *testing.T, r *Result, name string) CaseResult {
	t.Helper()
	for _, c := range r.Cases {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("case %q not found", name)
	return CaseResult{}
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"geometry", "zoo", "paint", "hello"} {
		t.Run(name, func(t *testing.T) {
			result := runTestScenario(t, name)
			assert.True(t, result.Pass, "errors: %v", result.Errors())
			assert.Equal(t, name, result.Scenario)
		})
	}
}

func TestRun_RoundtripObservations(t *testing.T) {
	result := runTestScenario(t, "geometry")

	point := caseByName(t, result, "point is two little-endian int32")
	assert.Equal(t, "01000000feffffff", point.Observed["encoded"])
	assert.Equal(t, map[string]any{"x": int64(1), "y": int64(-2)}, point.Observed["value"])

	optional := caseByName(t, result, "optional point")
	assert.Equal(t, "010700000008000000", optional.Observed["encoded"])
}

func TestRun_SlicingObservations(t *testing.T) {
	result := runTestScenario(t, "zoo")

	dog := caseByName(t, result, "dog relayed by a peer that only knows animals")
	assert.Equal(t, "::Zoo::Animal", dog.Observed["type_id"])
	assert.Equal(t, int64(1), dog.Observed["unknown_slices"])
	assert.Equal(t, map[string]any{"name": "Rex"}, dog.Observed["fields"])
}

func TestRun_EnumObservations(t *testing.T) {
	result := runTestScenario(t, "paint")

	assert.Equal(t, "invalid_enum_value", caseByName(t, result, "unknown color is rejected").Observed["error"])
	shade := caseByName(t, result, "unchecked shade keeps unknown values")
	assert.Equal(t, "", shade.Observed["enumerator"])
	assert.Equal(t, int64(5), shade.Observed["value"])
}

func TestRun_DispatchObservations(t *testing.T) {
	result := runTestScenario(t, "hello")

	raised := caseByName(t, result, "declared exception")
	assert.Equal(t, "ApplicationError", raised.Observed["status"])
	assert.Equal(t, "::Hello::GreetingError", raised.Observed["exception"])

	unknown := caseByName(t, result, "unknown operation")
	assert.Equal(t, "UnknownOperation", unknown.Observed["status"])
	assert.Contains(t, unknown.Observed["message"], `operation "wave"`)

	shout := caseByName(t, result, "out parameter")
	assert.Equal(t, map[string]any{"returnValue": int64(3), "echo": "HI"}, shout.Observed["results"])
}

func TestRun_FailedExpectations(t *testing.T) {
	s := loadTestScenario(t, "paint")
	s.Cases = []Case{
		{Name: "wrong enumerator", Kind: KindEnum, Type: "Paint::Color", Raw: ptr(int64(0)), Expect: &ExpectClause{Enumerator: "Blue"}},
		{Name: "missing error", Kind: KindEnum, Type: "Paint::Color", Raw: ptr(int64(1)), Expect: &ExpectClause{Error: ErrorInvalidEnumValue}},
		{Name: "unexpected error", Kind: KindEnum, Type: "Paint::Color", Raw: ptr(int64(9))},
		{Name: "unknown type", Kind: KindEnum, Type: "Paint::Nope", Raw: ptr(int64(1))},
		{Name: "ok", Kind: KindEnum, Type: "Paint::Color", Raw: ptr(int64(2))},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Cases, 5)

	assert.Equal(t, []string{"enumerator: expected Blue, got Red"}, result.Cases[0].Errors)
	assert.Equal(t, []string{"error: expected invalid_enum_value, got <none>"}, result.Cases[1].Errors)
	require.Len(t, result.Cases[2].Errors, 1)
	assert.Contains(t, result.Cases[2].Errors[0], "unexpected error")
	assert.Equal(t, []string{`type "Paint::Nope" is not defined`}, result.Cases[3].Errors)
	assert.True(t, result.Cases[4].Pass)

	assert.Len(t, result.Errors(), 4)
	assert.Equal(t, "wrong enumerator: enumerator: expected Blue, got Red", result.Errors()[0])
}

func TestRun_DispatchStatusMismatch(t *testing.T) {
	s := loadTestScenario(t, "hello")
	s.Cases = []Case{{
		Name:      "expects ok",
		Kind:      KindDispatch,
		Interface: "Hello::Greeter",
		Operation: "greet",
		Args:      map[string]any{"name": "x"},
		Handler:   &HandlerClause{Fail: "boom"},
	}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Cases, 1)
	assert.Equal(t, []string{"status: expected Ok, got UnhandledException"}, result.Cases[0].Errors)
}

func TestRun_RoundtripEncodedMismatch(t *testing.T) {
	s := loadTestScenario(t, "geometry")
	s.Cases = []Case{{
		Name:   "wrong bytes",
		Kind:   KindRoundtrip,
		Type:   "Geometry::Point",
		Value:  map[string]any{"x": 1, "y": 1},
		Expect: &ExpectClause{Encoded: "00"},
	}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"encoded: expected 00, got 0100000001000000"}, result.Cases[0].Errors)
}

func TestNew_InvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(spec, []byte(`
module: "M"
definitions: [{struct: "S", fields: [{name: "x", type: "Missing"}]}]
`), 0o644))

	_, err := New(&Scenario{Name: "bad", Specs: []string{spec}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario bad: invalid definitions")
	assert.Contains(t, err.Error(), "Missing")
}

func TestNew_LoadError(t *testing.T) {
	_, err := New(&Scenario{Name: "gone", Specs: []string{filepath.Join(t.TempDir(), "gone.cue")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario gone: loading specs")
}

func TestRun_LogsCases(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Run(context.Background(), loadTestScenario(t, "paint"), WithLogger(zap.New(core)))
	require.NoError(t, err)

	entries := logs.FilterMessage("case finished").All()
	require.Len(t, entries, 5)
	assert.Equal(t, "paint", entries[0].ContextMap()["scenario"])
	assert.Equal(t, "green", entries[0].ContextMap()["case"])
}

func TestSnapshot(t *testing.T) {
	result := NewResult("s")
	result.Add(CaseResult{Name: "c", Kind: KindEnum, Pass: true, Observed: map[string]any{"b": 1, "a": 2}})

	data, err := Snapshot(result)
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario": "s",
  "pass": true,
  "cases": [
    {
      "name": "c",
      "kind": "enum",
      "pass": true,
      "observed": {
        "a": 2,
        "b": 1
      }
    }
  ]
}`, string(data))
}

func TestResultAdd_ErrorsFailCase(t *testing.T) {
	result := NewResult("s")
	result.Add(CaseResult{Name: "c", Pass: true, Errors: []string{"x"}})
	assert.False(t, result.Pass)
	assert.False(t, result.Cases[0].Pass)
}

func ptr[T any](v T) *T { return &v }
