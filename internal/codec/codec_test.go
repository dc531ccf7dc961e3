package codec

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/testutil"
	"github.com/IvanVnn/icerpc-csharp/internal/wire"
)

func TestCompactStructIsEightBytes(t *testing.T) {
	c := New(testutil.Definitions())
	point := NewStruct("::Geometry::Point", map[string]any{"x": int32(1), "y": int32(2)})

	b, err := c.Encode(grammar.Named("Geometry::Point"), point)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, b)

	decoded, err := c.Decode(grammar.Named("Geometry::Point"), b)
	require.NoError(t, err)
	assert.Equal(t, point, decoded)
}

func TestStructMissingRequiredField(t *testing.T) {
	c := New(testutil.Definitions())
	point := NewStruct("::Geometry::Point", map[string]any{"x": int32(1)})

	_, err := c.Encode(grammar.Named("Geometry::Point"), point)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}

func TestStructWrongFieldType(t *testing.T) {
	c := New(testutil.Definitions())
	point := NewStruct("::Geometry::Point", map[string]any{"x": int64(1), "y": int32(2)})

	_, err := c.Encode(grammar.Named("Geometry::Point"), point)
	require.Error(t, err)
}

func TestStructRoundTripWithOptionalsAndTags(t *testing.T) {
	c := New(testutil.Definitions())
	settings := NewStruct("::Config::Settings", map[string]any{
		"name":    "primary",
		"retries": int32(3),
		"labels":  []any{"a", "b"},
		"limits": &Dictionary{Entries: []DictEntry{
			{Key: "cpu", Value: int64(4)},
			{Key: "disk", Value: nil},
		}},
		"timeout": uint64(30),
		"verbose": true,
	})

	b, err := c.Encode(grammar.Named("Config::Settings"), settings)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFC), b[len(b)-1], "non-compact struct ends with the tag-end marker")

	decoded, err := c.Decode(grammar.Named("Config::Settings"), b)
	require.NoError(t, err)
	assert.Equal(t, settings, decoded)
}

func TestAbsentOptionalsAreOmitted(t *testing.T) {
	c := New(testutil.Definitions())
	settings := NewStruct("::Config::Settings", map[string]any{
		"name":   "bare",
		"labels": []any{},
		"limits": &Dictionary{Entries: []DictEntry{}},
	})

	b, err := c.Encode(grammar.Named("Config::Settings"), settings)
	require.NoError(t, err)
	// bit sequence (retries absent), "bare", empty labels, empty limits, marker
	assert.Equal(t, []byte{0x00, 0x10, 'b', 'a', 'r', 'e', 0x00, 0x00, 0xFC}, b)

	decoded, err := c.Decode(grammar.Named("Config::Settings"), b)
	require.NoError(t, err)
	fields := decoded.(*StructValue).Fields
	assert.NotContains(t, fields, "retries")
	assert.NotContains(t, fields, "timeout")
	assert.NotContains(t, fields, "verbose")
	assert.Equal(t, "bare", fields["name"])
}

func TestTaggedMembersAreWrittenInTagOrder(t *testing.T) {
	c := New(testutil.Definitions())
	settings := NewStruct("::Config::Settings", map[string]any{
		"name":    "",
		"labels":  []any{},
		"limits":  &Dictionary{},
		"timeout": uint64(1),
		"verbose": false,
	})

	b, err := c.Encode(grammar.Named("Config::Settings"), settings)
	require.NoError(t, err)
	// bitseq, "", labels, limits, tag 1 (size 1, false), tag 2 (size 1, 1), marker
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x04, 0x04, 0x00, 0x08, 0x04, 0x04, 0xFC}, b)
}

func TestUnknownTaggedMembersAreSkipped(t *testing.T) {
	full := testutil.Definitions()
	settings := NewStruct("::Config::Settings", map[string]any{
		"name":    "x",
		"labels":  []any{},
		"limits":  &Dictionary{},
		"verbose": true,
	})
	b, err := New(full).Encode(grammar.Named("Config::Settings"), settings)
	require.NoError(t, err)

	// An older peer whose Settings has no tagged members still decodes it.
	older := testutil.SettingsFile()
	s := older.Entities[0].(*grammar.Struct)
	s.Fields = s.Fields[:4]
	decoded, err := New(grammar.MustDefinitions(older)).Decode(grammar.Named("Config::Settings"), b)
	require.NoError(t, err)
	assert.NotContains(t, decoded.(*StructValue).Fields, "verbose")
}

func TestClassSlicingPreservesUnknownSlices(t *testing.T) {
	full := testutil.Definitions()
	dog := NewClass("::Zoo::Dog", map[string]any{
		"name":    "Rex",
		"breed":   "Beagle",
		"goodBoy": true,
	})

	original, err := New(full).Encode(grammar.Named("Zoo::Animal"), dog)
	require.NoError(t, err)

	// A peer that only knows Animal keeps the Dog slice as opaque bytes.
	peer := New(full.Without("Zoo::Dog"))
	decoded, err := peer.Decode(grammar.Named("Zoo::Animal"), original)
	require.NoError(t, err)

	animal := decoded.(*ClassValue)
	assert.Equal(t, "::Zoo::Animal", animal.TypeID)
	assert.Equal(t, map[string]any{"name": "Rex"}, animal.Fields)
	require.Len(t, animal.UnknownSlices, 1)
	assert.Equal(t, "::Zoo::Dog", animal.UnknownSlices[0].TypeID)

	reencoded, err := peer.Encode(grammar.Named("Zoo::Animal"), animal)
	require.NoError(t, err)
	assert.Equal(t, original, reencoded)

	// The full definitions recover the derived instance from the relayed bytes.
	back, err := New(full).Decode(grammar.Named("Zoo::Animal"), reencoded)
	require.NoError(t, err)
	assert.Equal(t, dog, back)
}

func TestClassDecodeRejectsUnrelatedType(t *testing.T) {
	c := New(testutil.Definitions())
	animal := NewClass("::Zoo::Animal", map[string]any{"name": "Generic"})

	b, err := c.Encode(grammar.Named("Zoo::Animal"), animal)
	require.NoError(t, err)

	_, err = c.Decode(grammar.Named("Zoo::Dog"), b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidData))
}

func TestAnyClass(t *testing.T) {
	c := New(testutil.Definitions())
	dog := NewClass("::Zoo::Dog", map[string]any{"name": "Rex", "breed": "Pug"})

	b, err := c.Encode(grammar.PrimitiveOf(grammar.AnyClass), dog)
	require.NoError(t, err)

	decoded, err := c.Decode(grammar.PrimitiveOf(grammar.AnyClass), b)
	require.NoError(t, err)
	assert.Equal(t, dog, decoded)
}

func TestEnumEncoding(t *testing.T) {
	c := New(testutil.Definitions())
	blue := EnumValue{TypeID: "::Paint::Color", Name: "Blue", Value: 2}

	b, err := c.Encode(grammar.Named("Paint::Color"), blue)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, b)

	decoded, err := c.Decode(grammar.Named("Paint::Color"), b)
	require.NoError(t, err)
	assert.Equal(t, blue, decoded)
}

func TestCheckedEnumRejectsUnknownValue(t *testing.T) {
	c := New(testutil.Definitions())

	_, err := c.Decode(grammar.Named("Paint::Color"), []byte{0x07})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidEnumValue))

	_, err = c.Encode(grammar.Named("Paint::Color"), EnumValue{TypeID: "::Paint::Color", Value: 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidEnumValue))
}

func TestUncheckedEnumAcceptsAnyValue(t *testing.T) {
	c := New(testutil.Definitions())
	shade := EnumValue{TypeID: "::Paint::Shade", Value: 5}

	b, err := c.Encode(grammar.Named("Paint::Shade"), shade)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x14}, b)

	decoded, err := c.Decode(grammar.Named("Paint::Shade"), b)
	require.NoError(t, err)
	assert.Equal(t, shade, decoded)
}

func TestOptionalTopLevelValue(t *testing.T) {
	c := New(testutil.Definitions())
	optString := grammar.PrimitiveOf(grammar.String).AsOptional()

	b, err := c.Encode(optString, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, b)

	v, err := c.Decode(optString, b)
	require.NoError(t, err)
	assert.Nil(t, v)

	b, err = c.Encode(optString, "hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x08, 'h', 'i'}, b)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	c := New(testutil.Definitions())

	_, err := c.Decode(grammar.Named("Geometry::Point"), make([]byte, 9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidData))
}

func TestProxyValue(t *testing.T) {
	c := New(testutil.Definitions())

	b, err := c.Encode(grammar.Named("Hello::Greeter"), ServiceAddress("icerpc://host/greeter"))
	require.NoError(t, err)

	v, err := c.Decode(grammar.Named("Hello::Greeter"), b)
	require.NoError(t, err)
	assert.Equal(t, ServiceAddress("icerpc://host/greeter"), v)
}

func TestCollectionSizeIsBoundedByPayload(t *testing.T) {
	file := &grammar.File{
		Filename: "p",
		Module:   &grammar.Module{Name: "P"},
		Entities: []grammar.Entity{
			&grammar.Struct{Definition: grammar.Definition{Name: "Empty", Module: "P"}, Compact: true},
		},
	}
	c := New(grammar.MustDefinitions(file))
	sizeOnly := func(n int) []byte {
		enc := wire.NewEncoder()
		require.NoError(t, enc.EncodeSize(n))
		return enc.Bytes()
	}

	// Empty structs take no bytes, so the count alone is bounded.
	empties := grammar.SequenceOf(grammar.Named("P::Empty"))
	v, err := c.Decode(empties, sizeOnly(3))
	require.NoError(t, err)
	assert.Len(t, v, 3)

	_, err = c.Decode(empties, sizeOnly(1<<24))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidData))

	ints := grammar.SequenceOf(grammar.PrimitiveOf(grammar.Int32))
	_, err = c.Decode(ints, append(sizeOnly(2), 1, 0, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidData))

	dict := grammar.DictionaryOf(grammar.PrimitiveOf(grammar.String), grammar.PrimitiveOf(grammar.Bool))
	_, err = c.Decode(dict, append(sizeOnly(1000), 0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrInvalidData))
}
