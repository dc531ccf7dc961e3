package grammar

import "strings"

// Primitive is a built-in Slice type.
type Primitive string

const (
	Bool      Primitive = "bool"
	Int8      Primitive = "int8"
	UInt8     Primitive = "uint8"
	Int16     Primitive = "int16"
	UInt16    Primitive = "uint16"
	Int32     Primitive = "int32"
	UInt32    Primitive = "uint32"
	VarInt32  Primitive = "varint32"
	VarUInt32 Primitive = "varuint32"
	Int64     Primitive = "int64"
	UInt64    Primitive = "uint64"
	VarInt62  Primitive = "varint62"
	VarUInt62 Primitive = "varuint62"
	Float32   Primitive = "float32"
	Float64   Primitive = "float64"
	String    Primitive = "string"
	AnyClass  Primitive = "AnyClass"
)

// Primitives lists every built-in type in a fixed order.
var Primitives = []Primitive{
	Bool, Int8, UInt8, Int16, UInt16, Int32, UInt32, VarInt32, VarUInt32,
	Int64, UInt64, VarInt62, VarUInt62, Float32, Float64, String, AnyClass,
}

// LookupPrimitive returns the primitive named name.
func LookupPrimitive(name string) (Primitive, bool) {
	for _, p := range Primitives {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// IsIntegral reports whether p is an integer type usable as an enum underlying type.
func (p Primitive) IsIntegral() bool {
	switch p {
	case Int8, UInt8, Int16, UInt16, Int32, UInt32, VarInt32, VarUInt32, Int64, UInt64, VarInt62, VarUInt62:
		return true
	}
	return false
}

// FixedSize returns the encoded size in bytes for fixed-size primitives, or 0.
func (p Primitive) FixedSize() int {
	switch p {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	}
	return 0
}

// Range returns the inclusive value range of an integral primitive.
func (p Primitive) Range() (lo int64, hi uint64) {
	switch p {
	case Int8:
		return -1 << 7, 1<<7 - 1
	case UInt8:
		return 0, 1<<8 - 1
	case Int16:
		return -1 << 15, 1<<15 - 1
	case UInt16:
		return 0, 1<<16 - 1
	case Int32, VarInt32:
		return -1 << 31, 1<<31 - 1
	case UInt32, VarUInt32:
		return 0, 1<<32 - 1
	case VarInt62:
		return -1 << 61, 1<<61 - 1
	case VarUInt62:
		return 0, 1<<62 - 1
	case Int64:
		return -1 << 63, 1<<63 - 1
	case UInt64:
		return 0, 1<<64 - 1
	}
	return 0, 0
}

// TypeKind identifies the shape of a TypeRef.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeSequence
	TypeDictionary
	TypeNamed
)

// TypeRef is a resolved reference to a type.
type TypeRef struct {
	Kind      TypeKind  `json:"kind"`
	Primitive Primitive `json:"primitive,omitempty"`
	// Element is the element type of a sequence or the value type of a dictionary.
	Element *TypeRef `json:"element,omitempty"`
	// Key is the key type of a dictionary.
	Key *TypeRef `json:"key,omitempty"`
	// Name is the scoped identifier of a named entity.
	Name     string `json:"name,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// PrimitiveOf returns a TypeRef for a built-in type.
func PrimitiveOf(p Primitive) TypeRef {
	return TypeRef{Kind: TypePrimitive, Primitive: p}
}

// SequenceOf returns a TypeRef for sequence<elem>.
func SequenceOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: TypeSequence, Element: &elem}
}

// DictionaryOf returns a TypeRef for dictionary<key, value>.
func DictionaryOf(key, value TypeRef) TypeRef {
	return TypeRef{Kind: TypeDictionary, Key: &key, Element: &value}
}

// Named returns a TypeRef referencing the entity with the given scoped identifier.
func Named(id string) TypeRef {
	return TypeRef{Kind: TypeNamed, Name: id}
}

// AsOptional returns a copy of t marked optional.
func (t TypeRef) AsOptional() TypeRef {
	t.Optional = true
	return t
}

// AsRequired returns a copy of t with the optional marker removed.
func (t TypeRef) AsRequired() TypeRef {
	t.Optional = false
	return t
}

// String renders the type in Slice syntax.
func (t TypeRef) String() string {
	var sb strings.Builder
	switch t.Kind {
	case TypePrimitive:
		sb.WriteString(string(t.Primitive))
	case TypeSequence:
		sb.WriteString("sequence<")
		sb.WriteString(t.Element.String())
		sb.WriteString(">")
	case TypeDictionary:
		sb.WriteString("dictionary<")
		sb.WriteString(t.Key.String())
		sb.WriteString(", ")
		sb.WriteString(t.Element.String())
		sb.WriteString(">")
	case TypeNamed:
		sb.WriteString(t.Name)
	}
	if t.Optional {
		sb.WriteString("?")
	}
	return sb.String()
}

// Equal reports whether two type references denote the same type.
func (t TypeRef) Equal(other TypeRef) bool {
	return t.String() == other.String()
}
