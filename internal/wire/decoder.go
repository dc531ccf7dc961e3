package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Decoder reads Slice2-encoded values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
	// elements counts the collection elements announced so far.
	elements int
}

// collectionBudget bounds the collection elements a decoder accepts per
// input byte, so that elements encoded on zero bytes cannot announce
// unbounded counts.
const collectionBudget = 8

// NewDecoder returns a decoder over b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Consumed returns the number of bytes read so far.
func (d *Decoder) Consumed() int { return d.pos }

// End reports whether every byte has been read.
func (d *Decoder) End() bool { return d.pos >= len(d.buf) }

// CheckEnd fails if unread bytes remain.
func (d *Decoder) CheckEnd() error {
	if !d.End() {
		return errors.Wrapf(ErrInvalidData, "%d trailing bytes", d.Remaining())
	}
	return nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, errors.Wrapf(ErrEndOfBuffer, "need %d bytes, have %d", n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// DecodeRaw returns the next n bytes.
func (d *Decoder) DecodeRaw(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (d *Decoder) DecodeBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidData, "bool byte %#x", b[0])
	}
}

func (d *Decoder) DecodeUInt8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) DecodeInt8() (int8, error) {
	v, err := d.DecodeUInt8()
	return int8(v), err
}

func (d *Decoder) DecodeUInt16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) DecodeInt16() (int16, error) {
	v, err := d.DecodeUInt16()
	return int16(v), err
}

func (d *Decoder) DecodeUInt32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) DecodeInt32() (int32, error) {
	v, err := d.DecodeUInt32()
	return int32(v), err
}

func (d *Decoder) DecodeUInt64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) DecodeInt64() (int64, error) {
	v, err := d.DecodeUInt64()
	return int64(v), err
}

func (d *Decoder) DecodeFloat32() (float32, error) {
	v, err := d.DecodeUInt32()
	return math.Float32frombits(v), err
}

func (d *Decoder) DecodeFloat64() (float64, error) {
	v, err := d.DecodeUInt64()
	return math.Float64frombits(v), err
}

func (d *Decoder) DecodeVarInt62() (int64, error) {
	v, n, err := readVarInt62(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) DecodeVarUInt62() (uint64, error) {
	v, n, err := readVarUInt62(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) DecodeVarInt32() (int32, error) {
	v, err := d.DecodeVarInt62()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Wrapf(ErrOutOfRange, "varint32 %d", v)
	}
	return int32(v), nil
}

func (d *Decoder) DecodeVarUInt32() (uint32, error) {
	v, err := d.DecodeVarUInt62()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errors.Wrapf(ErrOutOfRange, "varuint32 %d", v)
	}
	return uint32(v), nil
}

// DecodeSize decodes a size and checks that it is plausible for the
// remaining input.
func (d *Decoder) DecodeSize() (int, error) {
	v, err := d.DecodeVarUInt62()
	if err != nil {
		return 0, err
	}
	if v > uint64(math.MaxInt32) {
		return 0, errors.Wrapf(ErrInvalidData, "size %d", v)
	}
	return int(v), nil
}

// DecodeCollectionSize reads the element count of a sequence or dictionary
// whose elements each take at least minSize bytes. A count the remaining
// bytes cannot hold, or one exceeding the decoder's element budget, is
// invalid data.
func (d *Decoder) DecodeCollectionSize(minSize int) (int, error) {
	n, err := d.DecodeSize()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && n > d.Remaining()/minSize {
		return 0, errors.Wrapf(ErrInvalidData, "%d elements of at least %d bytes, %d bytes left", n, minSize, d.Remaining())
	}
	if d.elements+n > collectionBudget*len(d.buf) {
		return 0, errors.Wrapf(ErrInvalidData, "%d elements exceed the budget of a %d-byte payload", d.elements+n, len(d.buf))
	}
	d.elements += n
	return n, nil
}

func (d *Decoder) DecodeString() (string, error) {
	n, err := d.DecodeSize()
	if err != nil {
		return "", err
	}
	b, err := d.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.Wrap(ErrInvalidData, "string is not valid UTF-8")
	}
	return string(b), nil
}

// DecodeSized reads a size-prefixed payload and returns a decoder over it.
func (d *Decoder) DecodeSized() (*Decoder, error) {
	n, err := d.DecodeSize()
	if err != nil {
		return nil, err
	}
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	return NewDecoder(b), nil
}

// GetBitSequenceReader consumes a bit sequence of n bits.
func (d *Decoder) GetBitSequenceReader(n int) (*BitSequenceReader, error) {
	b, err := d.take((n + 7) / 8)
	if err != nil {
		return nil, err
	}
	return &BitSequenceReader{bits: b, n: n}, nil
}

// BitSequenceReader reads presence bits in order.
type BitSequenceReader struct {
	bits []byte
	n    int
	next int
}

// Read returns the presence bit of the next optional member.
func (r *BitSequenceReader) Read() bool {
	if r.next >= r.n {
		panic("wire: bit sequence underflow")
	}
	set := r.bits[r.next/8]&(1<<(r.next%8)) != 0
	r.next++
	return set
}

func (d *Decoder) peekTag() (int32, error) {
	v, _, err := readVarInt62(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Wrapf(ErrInvalidData, "tag %d", v)
	}
	return int32(v), nil
}

// DecodeTagged looks for the tagged member with the given tag. Tagged members
// are sorted by tag; lower unknown tags are skipped on the way. It returns a
// decoder over the member's payload and true when the member is present. The
// tag-end marker is never consumed here.
func (d *Decoder) DecodeTagged(tag int32) (*Decoder, bool, error) {
	for {
		current, err := d.peekTag()
		if err != nil {
			return nil, false, err
		}
		if current == TagEndMarker || current > tag {
			return nil, false, nil
		}
		if current < 0 {
			return nil, false, errors.Wrapf(ErrInvalidData, "tag %d", current)
		}
		if _, err := d.DecodeVarInt32(); err != nil {
			return nil, false, err
		}
		payload, err := d.DecodeSized()
		if err != nil {
			return nil, false, err
		}
		if current == tag {
			return payload, true, nil
		}
		// current < tag: a member this decoder does not know; skip it.
	}
}

// SkipTagged skips every remaining tagged member and consumes the tag-end marker.
func (d *Decoder) SkipTagged() error {
	for {
		tag, err := d.DecodeVarInt32()
		if err != nil {
			return err
		}
		if tag == TagEndMarker {
			return nil
		}
		if tag < 0 {
			return errors.Wrapf(ErrInvalidData, "tag %d", tag)
		}
		if _, err := d.DecodeSized(); err != nil {
			return err
		}
	}
}
