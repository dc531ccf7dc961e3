package wire

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUInt62Boundaries(t *testing.T) {
	tests := []struct {
		value uint64
		size  int
	}{
		{0, 1},
		{63, 1},
		{64, 2},
		{1<<14 - 1, 2},
		{1 << 14, 4},
		{1<<30 - 1, 4},
		{1 << 30, 8},
		{VarUInt62Max, 8},
	}
	for _, tt := range tests {
		enc := NewEncoder()
		require.NoError(t, enc.EncodeVarUInt62(tt.value))
		assert.Len(t, enc.Bytes(), tt.size, "value %d", tt.value)

		got, err := NewDecoder(enc.Bytes()).DecodeVarUInt62()
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
	}
}

func TestVarInt62Boundaries(t *testing.T) {
	for _, v := range []int64{0, -1, 31, -32, 32, -33, 1<<13 - 1, -(1 << 13), 1 << 29, VarInt62Min, VarInt62Max} {
		enc := NewEncoder()
		require.NoError(t, enc.EncodeVarInt62(v))
		got, err := NewDecoder(enc.Bytes()).DecodeVarInt62()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarInt62OutOfRange(t *testing.T) {
	enc := NewEncoder()
	err := enc.EncodeVarInt62(VarInt62Max + 1)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	err = enc.EncodeVarUInt62(VarUInt62Max + 1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Zero(t, enc.Len())
}

func TestTagEndMarkerIsOneByte(t *testing.T) {
	enc := NewEncoder()
	enc.EncodeTagEndMarker()
	assert.Equal(t, []byte{0xFC}, enc.Bytes())
}

func TestFixedSizeLittleEndian(t *testing.T) {
	enc := NewEncoder()
	enc.EncodeInt32(1)
	enc.EncodeInt16(-2)
	enc.EncodeBool(true)
	assert.Equal(t, []byte{1, 0, 0, 0, 0xFE, 0xFF, 1}, enc.Bytes())

	dec := NewDecoder(enc.Bytes())
	i32, err := dec.DecodeInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(1), i32)
	i16, err := dec.DecodeInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)
	b, err := dec.DecodeBool()
	require.NoError(t, err)
	assert.True(t, b)
	assert.True(t, dec.End())
}

func TestInvalidBool(t *testing.T) {
	_, err := NewDecoder([]byte{2}).DecodeBool()
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestStrings(t *testing.T) {
	enc := NewEncoder()
	enc.EncodeString("héllo")
	dec := NewDecoder(enc.Bytes())
	s, err := dec.DecodeString()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	_, err = NewDecoder([]byte{0x08, 0xFF, 0xFE}).DecodeString()
	assert.True(t, errors.Is(err, ErrInvalidData))

	_, err = NewDecoder([]byte{0x10, 'a'}).DecodeString()
	assert.True(t, errors.Is(err, ErrEndOfBuffer))
}

func TestBitSequence(t *testing.T) {
	enc := NewEncoder()
	w := enc.GetBitSequenceWriter(10)
	for i := 0; i < 10; i++ {
		w.Write(i%3 == 0)
	}
	assert.Equal(t, []byte{0b01001001, 0b00000010}, enc.Bytes())

	r, err := NewDecoder(enc.Bytes()).GetBitSequenceReader(10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, i%3 == 0, r.Read(), "bit %d", i)
	}
}

func TestTaggedMembersSkipUnknownTags(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.EncodeTagged(1, func(e *Encoder) error { e.EncodeInt32(7); return nil }))
	require.NoError(t, enc.EncodeTagged(2, func(e *Encoder) error { e.EncodeString("unknown"); return nil }))
	require.NoError(t, enc.EncodeTagged(5, func(e *Encoder) error { e.EncodeBool(true); return nil }))
	require.NoError(t, enc.EncodeTagged(9, func(e *Encoder) error { e.EncodeInt64(1); return nil }))
	enc.EncodeTagEndMarker()

	dec := NewDecoder(enc.Bytes())

	payload, ok, err := dec.DecodeTagged(1)
	require.NoError(t, err)
	require.True(t, ok)
	v, err := payload.DecodeInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	// Tag 3 is absent; the lookup must not consume tag 5.
	_, ok, err = dec.DecodeTagged(3)
	require.NoError(t, err)
	assert.False(t, ok)

	payload, ok, err = dec.DecodeTagged(5)
	require.NoError(t, err)
	require.True(t, ok)
	flag, err := payload.DecodeBool()
	require.NoError(t, err)
	assert.True(t, flag)

	// Tag 9 was written by a newer peer: skipped, not rejected.
	require.NoError(t, dec.SkipTagged())
	assert.True(t, dec.End())
}

func TestSkipTaggedRequiresMarker(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.EncodeTagged(1, func(e *Encoder) error { e.EncodeInt32(7); return nil }))

	err := NewDecoder(enc.Bytes()).SkipTagged()
	assert.True(t, errors.Is(err, ErrEndOfBuffer))
}

func TestCheckEnd(t *testing.T) {
	dec := NewDecoder([]byte{1, 2})
	_, err := dec.DecodeUInt8()
	require.NoError(t, err)
	assert.True(t, errors.Is(dec.CheckEnd(), ErrInvalidData))
}

func TestDecodeCollectionSize(t *testing.T) {
	encodeSize := func(n int) *Decoder {
		enc := NewEncoder()
		require.NoError(t, enc.EncodeSize(n))
		enc.EncodeRaw([]byte{0, 0, 0, 0})
		return NewDecoder(enc.Bytes())
	}

	n, err := encodeSize(4).DecodeCollectionSize(1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = encodeSize(2).DecodeCollectionSize(4)
	assert.True(t, errors.Is(err, ErrInvalidData))

	// Zero-size elements are limited by the element budget only.
	n, err = encodeSize(40).DecodeCollectionSize(0)
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	_, err = encodeSize(1 << 24).DecodeCollectionSize(0)
	assert.True(t, errors.Is(err, ErrInvalidData))

	dec := encodeSize(30)
	_, err = dec.DecodeCollectionSize(0)
	require.NoError(t, err)
	dec.pos = 0
	_, err = dec.DecodeCollectionSize(0)
	assert.True(t, errors.Is(err, ErrInvalidData), "the budget spans every collection of the payload")
}
