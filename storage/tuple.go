package storage

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dbsys/heapdb/common"
)

// Tuple is a deserialized record: an ordered list of values. Tuples read from
// a container carry the record's address; tuples produced by operators (joins,
// aggregates) have a zero RID.
//
// Wire format: field count (u16) followed by each value in the Value wire
// format. Tuples are variable length, which is exactly what the slotted pages
// are for.
type Tuple struct {
	Values []common.Value
	RID    common.RecordID
}

// NewTuple creates a tuple from the given values.
func NewTuple(values ...common.Value) Tuple {
	return Tuple{Values: values}
}

// NumColumns returns the number of values in the tuple.
func (t Tuple) NumColumns() int {
	return len(t.Values)
}

// GetValue returns the value at the given column index.
func (t Tuple) GetValue(i int) common.Value {
	common.Assert(i >= 0 && i < len(t.Values), "column %d out of range (tuple has %d)", i, len(t.Values))
	return t.Values[i]
}

// SizeInBytes returns the serialized size of the tuple.
func (t Tuple) SizeInBytes() int {
	size := 2
	for _, v := range t.Values {
		size += v.SizeInBytes()
	}
	return size
}

// ToBytes serializes the tuple into record form.
func (t Tuple) ToBytes() []byte {
	buf := make([]byte, t.SizeInBytes())
	binary.LittleEndian.PutUint16(buf, uint16(len(t.Values)))
	pos := 2
	for _, v := range t.Values {
		pos += v.WriteTo(buf[pos:])
	}
	return buf
}

// TupleFromBytes deserializes a record into a tuple.
func TupleFromBytes(data []byte) (Tuple, error) {
	if len(data) < 2 {
		return Tuple{}, fmt.Errorf("tuple truncated: %d bytes", len(data))
	}
	numValues := int(binary.LittleEndian.Uint16(data))
	values := make([]common.Value, numValues)
	pos := 2
	for i := 0; i < numValues; i++ {
		v, n, err := common.ReadValue(data[pos:])
		if err != nil {
			return Tuple{}, fmt.Errorf("tuple field %d: %w", i, err)
		}
		values[i] = v
		pos += n
	}
	if pos != len(data) {
		return Tuple{}, fmt.Errorf("tuple has %d trailing bytes", len(data)-pos)
	}
	return Tuple{Values: values}, nil
}

// KeyBytes serializes the projection of the tuple onto the given column
// indices. Used as the identity of a grouping or join key: two keys are equal
// iff their KeyBytes are equal.
func (t Tuple) KeyBytes(indices []int) []byte {
	size := 0
	for _, i := range indices {
		size += t.GetValue(i).SizeInBytes()
	}
	buf := make([]byte, size)
	pos := 0
	for _, i := range indices {
		pos += t.GetValue(i).WriteTo(buf[pos:])
	}
	return buf
}

// ConcatTuples joins two tuples side by side, left columns first.
func ConcatTuples(left, right Tuple) Tuple {
	values := make([]common.Value, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return Tuple{Values: values}
}

func (t Tuple) String() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
