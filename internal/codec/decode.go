package codec

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/wire"
)

func (c *Codec) decodeValue(dec *wire.Decoder, t grammar.TypeRef) (any, error) {
	switch t.Kind {
	case grammar.TypePrimitive:
		return c.decodePrimitive(dec, t.Primitive)
	case grammar.TypeSequence:
		n, err := dec.DecodeCollectionSize(c.minElementSize(nil, *t.Element))
		if err != nil {
			return nil, err
		}
		seq := make([]any, 0, min(n, dec.Remaining()))
		err = c.decodeElements(dec, nil, *t.Element, n, func(_, v any) { seq = append(seq, v) })
		if err != nil {
			return nil, err
		}
		return seq, nil
	case grammar.TypeDictionary:
		n, err := dec.DecodeCollectionSize(c.minElementSize(t.Key, *t.Element))
		if err != nil {
			return nil, err
		}
		dict := &Dictionary{}
		err = c.decodeElements(dec, t.Key, *t.Element, n, func(k, v any) {
			dict.Entries = append(dict.Entries, DictEntry{Key: k, Value: v})
		})
		if err != nil {
			return nil, err
		}
		return dict, nil
	case grammar.TypeNamed:
		e, err := c.lookup(t.Name)
		if err != nil {
			return nil, err
		}
		return c.decodeEntity(dec, e)
	default:
		return nil, errors.Newf("unknown type kind %d", t.Kind)
	}
}

func (c *Codec) decodeElements(dec *wire.Decoder, key *grammar.TypeRef, elem grammar.TypeRef, n int, add func(k, v any)) error {
	var bits *wire.BitSequenceReader
	if elem.Optional {
		var err error
		if bits, err = dec.GetBitSequenceReader(n); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		var k any
		if key != nil {
			var err error
			if k, err = c.decodeValue(dec, *key); err != nil {
				return errors.Wrapf(err, "key %d", i)
			}
		}
		if elem.Optional && !bits.Read() {
			add(k, nil)
			continue
		}
		v, err := c.decodeValue(dec, elem.AsRequired())
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
		add(k, v)
	}
	return nil
}

// minElementSize is the fewest bytes one collection element occupies. An
// optional value occupies none, its presence bit being encoded up front.
func (c *Codec) minElementSize(key *grammar.TypeRef, elem grammar.TypeRef) int {
	size := c.minEncodedSize(elem, nil)
	if key != nil {
		size += c.minEncodedSize(*key, nil)
	}
	return size
}

func (c *Codec) minEncodedSize(t grammar.TypeRef, visiting map[string]bool) int {
	if t.Optional {
		return 0
	}
	switch t.Kind {
	case grammar.TypePrimitive:
		return max(t.Primitive.FixedSize(), 1)
	case grammar.TypeSequence, grammar.TypeDictionary:
		return 1
	}
	e, ok := c.defs.Lookup(t.Name)
	if !ok {
		return 0
	}
	switch def := e.(type) {
	case *grammar.Struct:
		if visiting[t.Name] {
			return 0
		}
		if visiting == nil {
			visiting = make(map[string]bool)
		}
		visiting[t.Name] = true
		defer delete(visiting, t.Name)

		size, optionals := 0, 0
		for _, f := range def.Fields {
			switch {
			case f.IsTagged():
			case f.Type.Optional:
				optionals++
			default:
				size += c.minEncodedSize(f.Type, visiting)
			}
		}
		size += (optionals + 7) / 8
		if !def.Compact {
			size++
		}
		return size
	case *grammar.Enum:
		return max(enumPrimitive(def).FixedSize(), 1)
	default:
		return 1
	}
}

func (c *Codec) decodePrimitive(dec *wire.Decoder, p grammar.Primitive) (any, error) {
	switch p {
	case grammar.Bool:
		return dec.DecodeBool()
	case grammar.Int8:
		return dec.DecodeInt8()
	case grammar.UInt8:
		return dec.DecodeUInt8()
	case grammar.Int16:
		return dec.DecodeInt16()
	case grammar.UInt16:
		return dec.DecodeUInt16()
	case grammar.Int32:
		return dec.DecodeInt32()
	case grammar.UInt32:
		return dec.DecodeUInt32()
	case grammar.VarInt32:
		return dec.DecodeVarInt32()
	case grammar.VarUInt32:
		return dec.DecodeVarUInt32()
	case grammar.Int64:
		return dec.DecodeInt64()
	case grammar.UInt64:
		return dec.DecodeUInt64()
	case grammar.VarInt62:
		return dec.DecodeVarInt62()
	case grammar.VarUInt62:
		return dec.DecodeVarUInt62()
	case grammar.Float32:
		return dec.DecodeFloat32()
	case grammar.Float64:
		return dec.DecodeFloat64()
	case grammar.String:
		return dec.DecodeString()
	case grammar.AnyClass:
		typeID, fields, unknown, err := c.decodeSliced(dec, grammar.KindClass)
		if err != nil {
			return nil, err
		}
		return &ClassValue{TypeID: typeID, Fields: fields, UnknownSlices: unknown}, nil
	default:
		return nil, errors.Newf("unknown primitive %q", p)
	}
}

func (c *Codec) decodeEntity(dec *wire.Decoder, e grammar.Entity) (any, error) {
	switch def := e.(type) {
	case *grammar.Struct:
		fields := make(map[string]any)
		if err := c.decodeMembers(dec, def.Fields, fields, !def.Compact); err != nil {
			return nil, errors.Wrapf(err, "struct %s", grammar.TypeID(def))
		}
		return &StructValue{TypeID: grammar.TypeID(def), Fields: fields}, nil
	case *grammar.Class:
		typeID, fields, unknown, err := c.decodeSliced(dec, grammar.KindClass)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkDerived(typeID, def); err != nil {
			return nil, errors.Wrap(wire.ErrInvalidData, err.Error())
		}
		return &ClassValue{TypeID: typeID, Fields: fields, UnknownSlices: unknown}, nil
	case *grammar.Exception:
		typeID, fields, unknown, err := c.decodeSliced(dec, grammar.KindException)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkDerived(typeID, def); err != nil {
			return nil, errors.Wrap(wire.ErrInvalidData, err.Error())
		}
		return &ExceptionValue{TypeID: typeID, Fields: fields, UnknownSlices: unknown}, nil
	case *grammar.Enum:
		return c.decodeEnum(dec, def)
	case *grammar.Interface:
		s, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		return ServiceAddress(s), nil
	default:
		panic(fmt.Sprintf("codec: unhandled entity %T", e))
	}
}

func (c *Codec) decodeEnum(dec *wire.Decoder, def *grammar.Enum) (EnumValue, error) {
	raw, err := c.decodePrimitive(dec, enumPrimitive(def))
	if err != nil {
		return EnumValue{}, err
	}
	var value int64
	switch n := raw.(type) {
	case int8:
		value = int64(n)
	case uint8:
		value = int64(n)
	case int16:
		value = int64(n)
	case uint16:
		value = int64(n)
	case int32:
		value = int64(n)
	case uint32:
		value = int64(n)
	case int64:
		value = n
	case uint64:
		value = int64(n)
	}
	name, err := checkEnumerator(def, value)
	if err != nil {
		return EnumValue{}, err
	}
	return EnumValue{TypeID: grammar.TypeID(def), Name: name, Value: value}, nil
}

// decodeSliced reads a class or exception. Slices arrive root first; the
// known prefix of the chain is decoded into fields and everything after the
// first unknown slice is preserved verbatim. The known slices must form the
// inheritance chain of the last known type.
func (c *Codec) decodeSliced(dec *wire.Decoder, kind grammar.Kind) (string, map[string]any, []UnknownSlice, error) {
	count, err := dec.DecodeSize()
	if err != nil {
		return "", nil, nil, err
	}
	if count == 0 {
		return "", nil, nil, errors.Wrap(wire.ErrInvalidData, "instance without slices")
	}

	fields := make(map[string]any)
	var known []grammar.Entity
	var unknown []UnknownSlice
	for i := 0; i < count; i++ {
		typeID, err := dec.DecodeString()
		if err != nil {
			return "", nil, nil, err
		}
		body, err := dec.DecodeSized()
		if err != nil {
			return "", nil, nil, err
		}
		e, ok := c.defs.LookupTypeID(typeID)
		if !ok || len(unknown) > 0 {
			raw, _ := body.DecodeRaw(body.Remaining())
			unknown = append(unknown, UnknownSlice{TypeID: typeID, Body: raw})
			continue
		}
		if e.Kind() != kind {
			return "", nil, nil, errors.Wrapf(wire.ErrInvalidData, "slice %s is a %s, not a %s", typeID, e.Kind(), kind)
		}
		if err := c.decodeMembers(body, grammar.FieldsOf(e), fields, true); err != nil {
			return "", nil, nil, errors.Wrapf(err, "slice %s", typeID)
		}
		if err := body.CheckEnd(); err != nil {
			return "", nil, nil, errors.Wrapf(err, "slice %s", typeID)
		}
		known = append(known, e)
	}
	if len(known) == 0 {
		return "", nil, nil, errors.Wrap(wire.ErrInvalidData, "no slice of a known type")
	}

	last := known[len(known)-1]
	chain, err := c.defs.BaseChain(last)
	if err != nil {
		return "", nil, nil, err
	}
	if len(chain) != len(known) {
		return "", nil, nil, errors.Wrapf(wire.ErrInvalidData, "slices do not form the chain of %s", grammar.TypeID(last))
	}
	for i := range chain {
		if chain[i] != known[i] {
			return "", nil, nil, errors.Wrapf(wire.ErrInvalidData, "slices do not form the chain of %s", grammar.TypeID(last))
		}
	}
	return grammar.TypeID(last), fields, unknown, nil
}
