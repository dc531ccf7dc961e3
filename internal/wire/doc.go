// Package wire implements the Slice2 encoding primitives that generated C#
// code reaches through the ZeroC.Slice runtime.
//
// The generators never import this package; it is the executable reference
// for the layouts they emit, used by internal/codec to check round-trips,
// slicing and dispatch behavior against the same rules.
//
// Encoding rules:
//   - Fixed-size numbers are little-endian
//   - Sizes and var-integers use the 62-bit variable-length form: the two low
//     bits of the first byte select a 1, 2, 4 or 8 byte encoding
//   - Optional non-tagged members are announced by a bit sequence
//   - Tagged members are written as tag (varint32), size (varuint62), payload
//     and terminated by the tag-end marker (varint32 -1)
package wire
