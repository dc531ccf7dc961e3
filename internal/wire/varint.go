package wire

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Bounds of the 62-bit variable-length integer encodings.
const (
	VarInt62Min  int64  = -(1 << 61)
	VarInt62Max  int64  = 1<<61 - 1
	VarUInt62Max uint64 = 1<<62 - 1
)

// TagEndMarker terminates the tagged members of a struct, class slice,
// exception slice or parameter list.
const TagEndMarker int32 = -1

// varUInt62EncodedSize returns the number of bytes used to encode v.
func varUInt62EncodedSize(v uint64) int {
	switch {
	case v < 1<<6:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<30:
		return 4
	default:
		return 8
	}
}

func varInt62EncodedSize(v int64) int {
	switch {
	case v >= -(1<<5) && v < 1<<5:
		return 1
	case v >= -(1<<13) && v < 1<<13:
		return 2
	case v >= -(1<<29) && v < 1<<29:
		return 4
	default:
		return 8
	}
}

func sizeCode(n int) uint64 {
	switch n {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}

func putVar(buf []byte, raw uint64, n int) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], raw<<2|sizeCode(n))
	return append(buf, tmp[:n]...)
}

func appendVarUInt62(buf []byte, v uint64) ([]byte, error) {
	if v > VarUInt62Max {
		return buf, errors.Wrapf(ErrOutOfRange, "varuint62 %d", v)
	}
	return putVar(buf, v, varUInt62EncodedSize(v)), nil
}

func appendVarInt62(buf []byte, v int64) ([]byte, error) {
	if v < VarInt62Min || v > VarInt62Max {
		return buf, errors.Wrapf(ErrOutOfRange, "varint62 %d", v)
	}
	return putVar(buf, uint64(v), varInt62EncodedSize(v)), nil
}

// readVar reads one variable-length value and returns its raw bits (not yet
// shifted) and encoded size.
func readVar(buf []byte) (uint64, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrEndOfBuffer
	}
	n := 1 << (buf[0] & 0x03)
	if len(buf) < n {
		return 0, 0, ErrEndOfBuffer
	}
	var tmp [8]byte
	copy(tmp[:], buf[:n])
	return binary.LittleEndian.Uint64(tmp[:]), n, nil
}

func readVarUInt62(buf []byte) (uint64, int, error) {
	raw, n, err := readVar(buf)
	if err != nil {
		return 0, 0, err
	}
	return raw >> 2, n, nil
}

func readVarInt62(buf []byte) (int64, int, error) {
	raw, n, err := readVar(buf)
	if err != nil {
		return 0, 0, err
	}
	// Sign-extend from the encoded width before dropping the size bits.
	shift := uint(64 - 8*n)
	return int64(raw<<shift) >> shift >> 2, n, nil
}
