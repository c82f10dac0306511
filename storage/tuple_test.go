package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsys/heapdb/common"
)

func TestTupleRoundTrip(t *testing.T) {
	orig := NewTuple(
		common.NewIntValue(-42),
		common.NewStringValue("variable length"),
		common.NewStringValue(""),
		common.NewIntValue(1<<40),
	)
	data := orig.ToBytes()
	assert.Len(t, data, orig.SizeInBytes())

	got, err := TupleFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, orig.Values, got.Values)
}

func TestTupleFromBytesRejectsGarbage(t *testing.T) {
	_, err := TupleFromBytes(nil)
	assert.Error(t, err)

	data := NewTuple(common.NewIntValue(1)).ToBytes()
	_, err = TupleFromBytes(data[:len(data)-2])
	assert.Error(t, err, "truncated field")
	_, err = TupleFromBytes(append(data, 0x00))
	assert.Error(t, err, "trailing bytes")
}

func TestTupleKeyBytes(t *testing.T) {
	a := NewTuple(common.NewIntValue(1), common.NewStringValue("x"), common.NewIntValue(9))
	b := NewTuple(common.NewIntValue(1), common.NewStringValue("y"), common.NewIntValue(9))

	assert.Equal(t, a.KeyBytes([]int{0, 2}), b.KeyBytes([]int{0, 2}),
		"same key columns must serialize identically")
	assert.NotEqual(t, a.KeyBytes([]int{1}), b.KeyBytes([]int{1}))
	assert.Empty(t, a.KeyBytes(nil), "empty projection is the global group key")
}

func TestConcatTuples(t *testing.T) {
	left := NewTuple(common.NewIntValue(1), common.NewStringValue("l"))
	right := NewTuple(common.NewIntValue(2))
	joined := ConcatTuples(left, right)
	require.Equal(t, 3, joined.NumColumns())
	assert.Equal(t, int64(1), joined.GetValue(0).IntValue())
	assert.Equal(t, "l", joined.GetValue(1).StringValue())
	assert.Equal(t, int64(2), joined.GetValue(2).IntValue())
}
