// Package codec executes the Slice encoding layout of grammar definitions over
// dynamic Go values.
//
// It is the reference oracle for the code the generators emit: the member
// ordering (bit sequence, declaration order, tagged members by tag, tag-end
// marker), base-to-derived class slices, enum validation and operation
// dispatch follow the same rules as the generated C#. Tests use it to check
// the round-trip, slicing, enum and dispatch properties of a definition set.
//
// Value mapping:
//
//	bool, int8, uint8, int16, uint16, int32, uint32, int64, uint64,
//	float32, float64, string            primitives (varint32 → int32,
//	                                    varuint32 → uint32, varint62 → int64,
//	                                    varuint62 → uint64)
//	[]any                               sequence
//	*Dictionary                         dictionary (ordered entries)
//	nil                                 absent optional
//	*StructValue, *ClassValue,
//	*ExceptionValue, EnumValue          named entities
//	ServiceAddress                      interface (proxy) reference
//
// Absent optional members are omitted from Fields maps on decode.
package codec
