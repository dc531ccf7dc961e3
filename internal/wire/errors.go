package wire

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for wire-format conditions. They are reportable faults of
// the peer's payload, never local defects.
var (
	// ErrEndOfBuffer is returned when a decoder runs past its input.
	ErrEndOfBuffer = errors.New("unexpected end of buffer")
	// ErrOutOfRange is returned when a value does not fit its encoding.
	ErrOutOfRange = errors.New("value out of range")
	// ErrInvalidData is returned for malformed payloads.
	ErrInvalidData = errors.New("invalid data")
	// ErrInvalidEnumValue is returned when a decoded integer matches no enumerator.
	ErrInvalidEnumValue = errors.New("invalid enumerator value")
)
