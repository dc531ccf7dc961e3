package codec

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/wire"
)

// Codec encodes and decodes values of the types known to a definitions arena.
// A peer that only knows part of a hierarchy is modeled with a Codec over a
// smaller arena (see grammar.Definitions.Without).
type Codec struct {
	defs *grammar.Definitions
}

// New returns a codec over defs.
func New(defs *grammar.Definitions) *Codec {
	return &Codec{defs: defs}
}

// Definitions returns the arena the codec resolves types against.
func (c *Codec) Definitions() *grammar.Definitions { return c.defs }

// Encode encodes a single value of type t. An optional type is encoded
// behind a one-bit sequence.
func (c *Codec) Encode(t grammar.TypeRef, v any) ([]byte, error) {
	enc := wire.NewEncoder()
	if t.Optional {
		w := enc.GetBitSequenceWriter(1)
		w.Write(v != nil)
		if v == nil {
			return enc.Bytes(), nil
		}
	}
	if err := c.encodeValue(enc, t.AsRequired(), v); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// Decode decodes a single value of type t and requires the input to be fully
// consumed.
func (c *Codec) Decode(t grammar.TypeRef, b []byte) (any, error) {
	dec := wire.NewDecoder(b)
	if t.Optional {
		r, err := dec.GetBitSequenceReader(1)
		if err != nil {
			return nil, err
		}
		if !r.Read() {
			return nil, dec.CheckEnd()
		}
	}
	v, err := c.decodeValue(dec, t.AsRequired())
	if err != nil {
		return nil, err
	}
	if err := dec.CheckEnd(); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeMembers encodes a member list with the struct/parameter layout.
func (c *Codec) EncodeMembers(members []grammar.Member, values map[string]any, terminated bool) ([]byte, error) {
	enc := wire.NewEncoder()
	if err := c.encodeMembers(enc, members, values, terminated); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// DecodeMembers decodes a member list encoded by EncodeMembers.
func (c *Codec) DecodeMembers(members []grammar.Member, b []byte, terminated bool) (map[string]any, error) {
	dec := wire.NewDecoder(b)
	values := make(map[string]any)
	if err := c.decodeMembers(dec, members, values, terminated); err != nil {
		return nil, err
	}
	if err := dec.CheckEnd(); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Codec) lookup(id string) (grammar.Entity, error) {
	e, ok := c.defs.Lookup(id)
	if !ok {
		return nil, errors.Newf("type %q is not defined", id)
	}
	return e, nil
}

func typeMismatch(t grammar.TypeRef, v any) error {
	return errors.Newf("value of type %T does not match %s", v, t)
}

// splitMembers partitions members into the non-tagged ones (declaration
// order) and the tagged ones (tag order), and counts the non-tagged optionals.
func splitMembers(members []grammar.Member) (plain, tagged []grammar.Member, optionals int) {
	for _, m := range members {
		if m.IsTagged() {
			tagged = append(tagged, m)
			continue
		}
		plain = append(plain, m)
		if m.Type.Optional {
			optionals++
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool { return *tagged[i].Tag < *tagged[j].Tag })
	return plain, tagged, optionals
}

func (c *Codec) encodeMembers(enc *wire.Encoder, members []grammar.Member, values map[string]any, terminated bool) error {
	plain, tagged, optionals := splitMembers(members)

	var bits *wire.BitSequenceWriter
	if optionals > 0 {
		bits = enc.GetBitSequenceWriter(optionals)
	}
	for _, m := range plain {
		v, present := values[m.Name]
		present = present && v != nil
		if m.Type.Optional {
			bits.Write(present)
			if !present {
				continue
			}
		} else if !present {
			return errors.Newf("required member %q is missing", m.Name)
		}
		if err := c.encodeValue(enc, m.Type.AsRequired(), v); err != nil {
			return errors.Wrapf(err, "member %q", m.Name)
		}
	}
	for _, m := range tagged {
		v, present := values[m.Name]
		if !present || v == nil {
			continue
		}
		t := m.Type.AsRequired()
		err := enc.EncodeTagged(*m.Tag, func(e *wire.Encoder) error {
			return c.encodeValue(e, t, v)
		})
		if err != nil {
			return errors.Wrapf(err, "member %q", m.Name)
		}
	}
	if terminated {
		enc.EncodeTagEndMarker()
	}
	return nil
}

func (c *Codec) decodeMembers(dec *wire.Decoder, members []grammar.Member, values map[string]any, terminated bool) error {
	plain, tagged, optionals := splitMembers(members)

	var bits *wire.BitSequenceReader
	if optionals > 0 {
		var err error
		if bits, err = dec.GetBitSequenceReader(optionals); err != nil {
			return err
		}
	}
	for _, m := range plain {
		if m.Type.Optional && !bits.Read() {
			continue
		}
		v, err := c.decodeValue(dec, m.Type.AsRequired())
		if err != nil {
			return errors.Wrapf(err, "member %q", m.Name)
		}
		values[m.Name] = v
	}
	for _, m := range tagged {
		payload, ok, err := dec.DecodeTagged(*m.Tag)
		if err != nil {
			return errors.Wrapf(err, "member %q", m.Name)
		}
		if !ok {
			continue
		}
		v, err := c.decodeValue(payload, m.Type.AsRequired())
		if err != nil {
			return errors.Wrapf(err, "member %q", m.Name)
		}
		values[m.Name] = v
	}
	if terminated {
		return dec.SkipTagged()
	}
	return nil
}

func (c *Codec) encodeValue(enc *wire.Encoder, t grammar.TypeRef, v any) error {
	switch t.Kind {
	case grammar.TypePrimitive:
		return c.encodePrimitive(enc, t, v)
	case grammar.TypeSequence:
		seq, ok := v.([]any)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := enc.EncodeSize(len(seq)); err != nil {
			return err
		}
		return c.encodeElements(enc, nil, *t.Element, len(seq), func(i int) (any, any) { return nil, seq[i] })
	case grammar.TypeDictionary:
		dict, ok := v.(*Dictionary)
		if !ok {
			return typeMismatch(t, v)
		}
		if err := enc.EncodeSize(len(dict.Entries)); err != nil {
			return err
		}
		return c.encodeElements(enc, t.Key, *t.Element, len(dict.Entries), func(i int) (any, any) {
			return dict.Entries[i].Key, dict.Entries[i].Value
		})
	case grammar.TypeNamed:
		e, err := c.lookup(t.Name)
		if err != nil {
			return err
		}
		return c.encodeEntity(enc, e, t, v)
	default:
		return errors.Newf("unknown type kind %d", t.Kind)
	}
}

// encodeElements writes sequence elements or dictionary entries; optional
// values are announced by one bit sequence covering all of them. key is nil
// for sequences.
func (c *Codec) encodeElements(enc *wire.Encoder, key *grammar.TypeRef, elem grammar.TypeRef, n int, at func(int) (any, any)) error {
	var bits *wire.BitSequenceWriter
	if elem.Optional {
		bits = enc.GetBitSequenceWriter(n)
	}
	for i := 0; i < n; i++ {
		k, v := at(i)
		if key != nil {
			if err := c.encodeValue(enc, *key, k); err != nil {
				return errors.Wrapf(err, "key %d", i)
			}
		}
		if elem.Optional {
			bits.Write(v != nil)
			if v == nil {
				continue
			}
		}
		if err := c.encodeValue(enc, elem.AsRequired(), v); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	return nil
}

func (c *Codec) encodePrimitive(enc *wire.Encoder, t grammar.TypeRef, v any) error {
	ok := true
	switch t.Primitive {
	case grammar.Bool:
		var b bool
		if b, ok = v.(bool); ok {
			enc.EncodeBool(b)
		}
	case grammar.Int8:
		var n int8
		if n, ok = v.(int8); ok {
			enc.EncodeInt8(n)
		}
	case grammar.UInt8:
		var n uint8
		if n, ok = v.(uint8); ok {
			enc.EncodeUInt8(n)
		}
	case grammar.Int16:
		var n int16
		if n, ok = v.(int16); ok {
			enc.EncodeInt16(n)
		}
	case grammar.UInt16:
		var n uint16
		if n, ok = v.(uint16); ok {
			enc.EncodeUInt16(n)
		}
	case grammar.Int32:
		var n int32
		if n, ok = v.(int32); ok {
			enc.EncodeInt32(n)
		}
	case grammar.UInt32:
		var n uint32
		if n, ok = v.(uint32); ok {
			enc.EncodeUInt32(n)
		}
	case grammar.VarInt32:
		var n int32
		if n, ok = v.(int32); ok {
			enc.EncodeVarInt32(n)
		}
	case grammar.VarUInt32:
		var n uint32
		if n, ok = v.(uint32); ok {
			enc.EncodeVarUInt32(n)
		}
	case grammar.Int64:
		var n int64
		if n, ok = v.(int64); ok {
			enc.EncodeInt64(n)
		}
	case grammar.UInt64:
		var n uint64
		if n, ok = v.(uint64); ok {
			enc.EncodeUInt64(n)
		}
	case grammar.VarInt62:
		if n, isInt := v.(int64); isInt {
			return enc.EncodeVarInt62(n)
		}
		ok = false
	case grammar.VarUInt62:
		if n, isUint := v.(uint64); isUint {
			return enc.EncodeVarUInt62(n)
		}
		ok = false
	case grammar.Float32:
		var f float32
		if f, ok = v.(float32); ok {
			enc.EncodeFloat32(f)
		}
	case grammar.Float64:
		var f float64
		if f, ok = v.(float64); ok {
			enc.EncodeFloat64(f)
		}
	case grammar.String:
		var s string
		if s, ok = v.(string); ok {
			enc.EncodeString(s)
		}
	case grammar.AnyClass:
		cv, isClass := v.(*ClassValue)
		if !isClass {
			return typeMismatch(t, v)
		}
		e, err := c.lookup(cv.TypeID)
		if err != nil {
			return err
		}
		return c.encodeSliced(enc, e, cv.Fields, cv.UnknownSlices)
	default:
		return errors.Newf("unknown primitive %q", t.Primitive)
	}
	if !ok {
		return typeMismatch(t, v)
	}
	return nil
}

func (c *Codec) encodeEntity(enc *wire.Encoder, e grammar.Entity, t grammar.TypeRef, v any) error {
	switch def := e.(type) {
	case *grammar.Struct:
		sv, ok := v.(*StructValue)
		if !ok || sv.TypeID != grammar.TypeID(def) {
			return typeMismatch(t, v)
		}
		return c.encodeMembers(enc, def.Fields, sv.Fields, !def.Compact)
	case *grammar.Class:
		cv, ok := v.(*ClassValue)
		if !ok {
			return typeMismatch(t, v)
		}
		actual, err := c.checkDerived(cv.TypeID, def)
		if err != nil {
			return err
		}
		return c.encodeSliced(enc, actual, cv.Fields, cv.UnknownSlices)
	case *grammar.Exception:
		ev, ok := v.(*ExceptionValue)
		if !ok {
			return typeMismatch(t, v)
		}
		actual, err := c.checkDerived(ev.TypeID, def)
		if err != nil {
			return err
		}
		return c.encodeSliced(enc, actual, ev.Fields, ev.UnknownSlices)
	case *grammar.Enum:
		ev, ok := v.(EnumValue)
		if !ok || ev.TypeID != grammar.TypeID(def) {
			return typeMismatch(t, v)
		}
		if _, err := checkEnumerator(def, ev.Value); err != nil {
			return err
		}
		return c.encodeEnumValue(enc, def, ev.Value)
	case *grammar.Interface:
		addr, ok := v.(ServiceAddress)
		if !ok {
			return typeMismatch(t, v)
		}
		enc.EncodeString(string(addr))
		return nil
	default:
		panic(fmt.Sprintf("codec: unhandled entity %T", e))
	}
}

// checkDerived verifies that typeID names base or a type derived from it.
func (c *Codec) checkDerived(typeID string, base grammar.Entity) (grammar.Entity, error) {
	actual, err := c.lookup(typeID)
	if err != nil {
		return nil, err
	}
	chain, err := c.defs.BaseChain(actual)
	if err != nil {
		return nil, err
	}
	for _, level := range chain {
		if level == base {
			return actual, nil
		}
	}
	return nil, errors.Newf("%s is not derived from %s", typeID, grammar.TypeID(base))
}

// encodeSliced writes a class or exception: the slice count, then one slice
// per inheritance level from the root to the most derived known type, then
// the preserved unknown slices.
func (c *Codec) encodeSliced(enc *wire.Encoder, actual grammar.Entity, fields map[string]any, unknown []UnknownSlice) error {
	chain, err := c.defs.BaseChain(actual)
	if err != nil {
		return err
	}
	if err := enc.EncodeSize(len(chain) + len(unknown)); err != nil {
		return err
	}
	for _, level := range chain {
		enc.EncodeString(grammar.TypeID(level))
		err := enc.EncodeSized(func(body *wire.Encoder) error {
			return c.encodeMembers(body, grammar.FieldsOf(level), fields, true)
		})
		if err != nil {
			return errors.Wrapf(err, "slice %s", grammar.TypeID(level))
		}
	}
	for _, s := range unknown {
		enc.EncodeString(s.TypeID)
		if err := enc.EncodeSize(len(s.Body)); err != nil {
			return err
		}
		enc.EncodeRaw(s.Body)
	}
	return nil
}

func checkEnumerator(def *grammar.Enum, value int64) (string, error) {
	for _, e := range def.Enumerators {
		if e.Value == value {
			return e.Name, nil
		}
	}
	if def.Unchecked {
		return "", nil
	}
	return "", errors.Wrapf(wire.ErrInvalidEnumValue, "%d for %s", value, grammar.TypeID(def))
}

func (c *Codec) encodeEnumValue(enc *wire.Encoder, def *grammar.Enum, value int64) error {
	p := enumPrimitive(def)
	v, err := intOf(p, value)
	if err != nil {
		return err
	}
	return c.encodePrimitive(enc, grammar.PrimitiveOf(p), v)
}

// enumPrimitive is the wire type of an enum: its underlying type, or varint32.
func enumPrimitive(def *grammar.Enum) grammar.Primitive {
	if def.Underlying == nil {
		return grammar.VarInt32
	}
	return *def.Underlying
}

// intOf converts an enumerator value to the Go type of an integral primitive.
func intOf(p grammar.Primitive, value int64) (any, error) {
	lo, hi := p.Range()
	if value < lo || (value > 0 && uint64(value) > hi) {
		return nil, errors.Wrapf(wire.ErrOutOfRange, "%d does not fit %s", value, p)
	}
	switch p {
	case grammar.Int8:
		return int8(value), nil
	case grammar.UInt8:
		return uint8(value), nil
	case grammar.Int16:
		return int16(value), nil
	case grammar.UInt16:
		return uint16(value), nil
	case grammar.Int32, grammar.VarInt32:
		return int32(value), nil
	case grammar.UInt32, grammar.VarUInt32:
		return uint32(value), nil
	case grammar.Int64, grammar.VarInt62:
		return value, nil
	case grammar.UInt64, grammar.VarUInt62:
		return uint64(value), nil
	}
	return nil, errors.Newf("%s is not an integral type", p)
}
