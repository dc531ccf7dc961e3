package codec

// StructValue is a decoded or to-be-encoded struct instance.
type StructValue struct {
	TypeID string
	Fields map[string]any
}

// ClassValue is a class instance. TypeID is the most derived type known to
// the codec that produced it; slices of types it does not know are kept in
// UnknownSlices and re-encoded verbatim.
type ClassValue struct {
	TypeID        string
	Fields        map[string]any
	UnknownSlices []UnknownSlice
}

// ExceptionValue is an exception instance, sliced like a class.
type ExceptionValue struct {
	TypeID        string
	Fields        map[string]any
	UnknownSlices []UnknownSlice
}

// UnknownSlice is a derived slice preserved by a receiver that does not know
// its type.
type UnknownSlice struct {
	TypeID string
	Body   []byte
}

// EnumValue is an enumerator of an enum. Name is empty for values of an
// unchecked enum that match no enumerator.
type EnumValue struct {
	TypeID string
	Name   string
	Value  int64
}

// Dictionary is an ordered list of key/value pairs.
type Dictionary struct {
	Entries []DictEntry
}

// DictEntry is one dictionary pair.
type DictEntry struct {
	Key   any
	Value any
}

// ServiceAddress is the encoded form of an interface reference.
type ServiceAddress string

// NewStruct returns a StructValue with the given fields.
func NewStruct(typeID string, fields map[string]any) *StructValue {
	if fields == nil {
		fields = map[string]any{}
	}
	return &StructValue{TypeID: typeID, Fields: fields}
}

// NewClass returns a ClassValue with the given fields.
func NewClass(typeID string, fields map[string]any) *ClassValue {
	if fields == nil {
		fields = map[string]any{}
	}
	return &ClassValue{TypeID: typeID, Fields: fields}
}

// NewException returns an ExceptionValue with the given fields.
func NewException(typeID string, fields map[string]any) *ExceptionValue {
	if fields == nil {
		fields = map[string]any{}
	}
	return &ExceptionValue{TypeID: typeID, Fields: fields}
}
