package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/testutil"
)

func plain(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, yaml.Unmarshal([]byte(src), &v))
	return v
}

func TestCoerceStruct(t *testing.T) {
	c := New(testutil.Definitions())

	v, err := c.Coerce(grammar.Named("Config::Settings"), plain(t, `
name: primary
retries: 3
labels: [a, b]
limits: {disk: null, cpu: 4}
timeout: 30
`))
	require.NoError(t, err)
	assert.Equal(t, NewStruct("::Config::Settings", map[string]any{
		"name":    "primary",
		"retries": int32(3),
		"labels":  []any{"a", "b"},
		"limits": &Dictionary{Entries: []DictEntry{
			{Key: "cpu", Value: int64(4)},
			{Key: "disk", Value: nil},
		}},
		"timeout": uint64(30),
	}), v)
}

func TestCoerceRejectsUnknownAndMissingFields(t *testing.T) {
	c := New(testutil.Definitions())

	_, err := c.Coerce(grammar.Named("Geometry::Point"), plain(t, `{x: 1, y: 2, z: 3}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"z"`)

	_, err = c.Coerce(grammar.Named("Geometry::Point"), plain(t, `{x: 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}

func TestCoerceRangeChecksIntegers(t *testing.T) {
	c := New(testutil.Definitions())

	_, err := c.Coerce(grammar.PrimitiveOf(grammar.UInt8), 256)
	require.Error(t, err)

	v, err := c.Coerce(grammar.PrimitiveOf(grammar.Int16), -5)
	require.NoError(t, err)
	assert.Equal(t, int16(-5), v)
}

func TestCoerceDerivedClass(t *testing.T) {
	c := New(testutil.Definitions())

	v, err := c.Coerce(grammar.Named("Zoo::Animal"), plain(t, `
$type: "::Zoo::Dog"
name: Rex
breed: Beagle
goodBoy: true
`))
	require.NoError(t, err)
	assert.Equal(t, NewClass("::Zoo::Dog", map[string]any{
		"name": "Rex", "breed": "Beagle", "goodBoy": true,
	}), v)

	_, err = c.Coerce(grammar.Named("Zoo::Dog"), plain(t, `{$type: "::Zoo::ZooClosed", reason: x}`))
	require.Error(t, err)
}

func TestCoerceEnum(t *testing.T) {
	c := New(testutil.Definitions())

	v, err := c.Coerce(grammar.Named("Paint::Color"), "Green")
	require.NoError(t, err)
	assert.Equal(t, EnumValue{TypeID: "::Paint::Color", Name: "Green", Value: 1}, v)

	v, err = c.Coerce(grammar.Named("Paint::Color"), 9)
	require.NoError(t, err)
	assert.Equal(t, EnumValue{TypeID: "::Paint::Color", Value: 9}, v)

	_, err = c.Coerce(grammar.Named("Paint::Color"), "Purple")
	require.Error(t, err)
}
