package common

import (
	"encoding/binary"
	"fmt"
	"math"
)

type Type int8

const (
	// For uninitialized Values
	DefaultType Type = iota
	IntType
	StringType
)

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// MaxStringLength bounds the serialized length of a string Value so that the
// length always fits in the uint16 prefix of the wire format.
const MaxStringLength = math.MaxUint16

// Value represents a single data item in a tuple. Values are variable-length
// on the wire: a one-byte type tag followed by the payload (8-byte
// little-endian integer, or a uint16 length prefix and the string bytes).
type Value struct {
	t                Type
	underlyingInt    int64
	underlyingString string
}

// NewIntValue creates a new integer Value.
func NewIntValue(v int64) Value {
	return Value{t: IntType, underlyingInt: v}
}

// NewStringValue creates a new string Value.
func NewStringValue(v string) Value {
	Assert(len(v) <= MaxStringLength, "string too long")
	return Value{t: StringType, underlyingString: v}
}

// IsNil returns true if the Value is uninitialized.
func (v Value) IsNil() bool {
	return v.t == DefaultType
}

// Type returns the type of the Value.
func (v Value) Type() Type {
	return v.t
}

// IntValue returns the underlying integer.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType, "type mismatch in IntValue")
	return v.underlyingInt
}

// StringValue returns the underlying string.
func (v Value) StringValue() string {
	Assert(v.t == StringType, "type mismatch in StringValue")
	return v.underlyingString
}

func (v Value) String() string {
	switch v.t {
	case IntType:
		return fmt.Sprintf("%d", v.underlyingInt)
	case StringType:
		return v.underlyingString
	}
	return "<nil>"
}

// SizeInBytes returns the serialized size of the Value, including the type tag.
func (v Value) SizeInBytes() int {
	switch v.t {
	case IntType:
		return 1 + 8
	case StringType:
		return 1 + 2 + len(v.underlyingString)
	}
	panic("size of uninitialized Value")
}

// WriteTo serializes the Value into the buffer and returns the number of bytes
// written. The buffer must be at least SizeInBytes() long.
func (v Value) WriteTo(data []byte) int {
	Assert(len(data) >= v.SizeInBytes(), "buffer too small for Value")
	data[0] = byte(v.t)
	switch v.t {
	case IntType:
		binary.LittleEndian.PutUint64(data[1:], uint64(v.underlyingInt))
		return 9
	case StringType:
		binary.LittleEndian.PutUint16(data[1:], uint16(len(v.underlyingString)))
		n := copy(data[3:], v.underlyingString)
		return 3 + n
	}
	panic("serializing uninitialized Value")
}

// ReadValue deserializes a Value from the front of the buffer and returns it
// together with the number of bytes consumed.
func ReadValue(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, fmt.Errorf("value truncated: empty buffer")
	}
	switch Type(data[0]) {
	case IntType:
		if len(data) < 9 {
			return Value{}, 0, fmt.Errorf("int value truncated: %d bytes", len(data))
		}
		return NewIntValue(int64(binary.LittleEndian.Uint64(data[1:]))), 9, nil
	case StringType:
		if len(data) < 3 {
			return Value{}, 0, fmt.Errorf("string value truncated: %d bytes", len(data))
		}
		strLen := int(binary.LittleEndian.Uint16(data[1:]))
		if len(data) < 3+strLen {
			return Value{}, 0, fmt.Errorf("string value truncated: want %d bytes, have %d", 3+strLen, len(data))
		}
		return NewStringValue(string(data[3 : 3+strLen])), 3 + strLen, nil
	}
	return Value{}, 0, fmt.Errorf("unknown value type tag %d", data[0])
}

// Compare compares two Values of the same type.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Value) Compare(other Value) int {
	Assert(v.t == other.t, "type mismatch in comparison: %v vs %v", v.t, other.t)
	switch v.t {
	case IntType:
		if v.underlyingInt < other.underlyingInt {
			return -1
		}
		if v.underlyingInt > other.underlyingInt {
			return 1
		}
		return 0
	case StringType:
		if v.underlyingString < other.underlyingString {
			return -1
		}
		if v.underlyingString > other.underlyingString {
			return 1
		}
		return 0
	}
	panic("comparing uninitialized Values")
}
