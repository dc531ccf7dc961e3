package wire

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Encoder appends Slice2-encoded values to an in-memory buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded bytes. The slice aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// EncodeRaw appends bytes verbatim.
func (e *Encoder) EncodeRaw(b []byte) { e.buf = append(e.buf, b...) }

func (e *Encoder) EncodeBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) EncodeUInt8(v uint8) { e.buf = append(e.buf, v) }
func (e *Encoder) EncodeInt8(v int8)   { e.buf = append(e.buf, byte(v)) }

func (e *Encoder) EncodeUInt16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *Encoder) EncodeInt16(v int16)   { e.EncodeUInt16(uint16(v)) }
func (e *Encoder) EncodeUInt32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *Encoder) EncodeInt32(v int32)   { e.EncodeUInt32(uint32(v)) }
func (e *Encoder) EncodeUInt64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *Encoder) EncodeInt64(v int64)   { e.EncodeUInt64(uint64(v)) }

func (e *Encoder) EncodeFloat32(v float32) { e.EncodeUInt32(math.Float32bits(v)) }
func (e *Encoder) EncodeFloat64(v float64) { e.EncodeUInt64(math.Float64bits(v)) }

// EncodeVarInt32 encodes v in the varint62 form.
func (e *Encoder) EncodeVarInt32(v int32) {
	e.buf, _ = appendVarInt62(e.buf, int64(v))
}

// EncodeVarUInt32 encodes v in the varuint62 form.
func (e *Encoder) EncodeVarUInt32(v uint32) {
	e.buf, _ = appendVarUInt62(e.buf, uint64(v))
}

func (e *Encoder) EncodeVarInt62(v int64) error {
	var err error
	e.buf, err = appendVarInt62(e.buf, v)
	return err
}

func (e *Encoder) EncodeVarUInt62(v uint64) error {
	var err error
	e.buf, err = appendVarUInt62(e.buf, v)
	return err
}

// EncodeSize encodes a collection or byte size.
func (e *Encoder) EncodeSize(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrOutOfRange, "negative size %d", n)
	}
	return e.EncodeVarUInt62(uint64(n))
}

// EncodeString encodes a UTF-8 string prefixed by its byte length.
func (e *Encoder) EncodeString(s string) {
	e.buf, _ = appendVarUInt62(e.buf, uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// EncodeTagEndMarker terminates a run of tagged members.
func (e *Encoder) EncodeTagEndMarker() {
	e.EncodeVarInt32(TagEndMarker)
}

// EncodeTagged writes a tagged member: tag, payload size and the payload
// produced by encode.
func (e *Encoder) EncodeTagged(tag int32, encode func(*Encoder) error) error {
	if tag < 0 {
		return errors.Wrapf(ErrOutOfRange, "negative tag %d", tag)
	}
	payload := NewEncoder()
	if err := encode(payload); err != nil {
		return errors.Wrapf(err, "tag %d", tag)
	}
	e.EncodeVarInt32(tag)
	if err := e.EncodeSize(payload.Len()); err != nil {
		return err
	}
	e.EncodeRaw(payload.Bytes())
	return nil
}

// EncodeSized writes the size of the payload produced by encode, then the payload.
func (e *Encoder) EncodeSized(encode func(*Encoder) error) error {
	body := NewEncoder()
	if err := encode(body); err != nil {
		return err
	}
	if err := e.EncodeSize(body.Len()); err != nil {
		return err
	}
	e.EncodeRaw(body.Bytes())
	return nil
}

// GetBitSequenceWriter reserves space for n bits at the current position.
func (e *Encoder) GetBitSequenceWriter(n int) *BitSequenceWriter {
	start := len(e.buf)
	size := (n + 7) / 8
	e.buf = append(e.buf, make([]byte, size)...)
	return &BitSequenceWriter{enc: e, start: start, n: n}
}

// BitSequenceWriter sets the bits of a reserved bit sequence, in order.
type BitSequenceWriter struct {
	enc   *Encoder
	start int
	n     int
	next  int
}

// Write records the presence bit of the next optional member.
func (w *BitSequenceWriter) Write(present bool) {
	if w.next >= w.n {
		panic("wire: bit sequence overflow")
	}
	if present {
		w.enc.buf[w.start+w.next/8] |= 1 << (w.next % 8)
	}
	w.next++
}
