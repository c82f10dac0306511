package execution

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

func TestAggregateSumAvgPerGroup(t *testing.T) {
	// (dept, salary)
	rows := []storage.Tuple{
		intTuple(10, 100),
		intTuple(10, 200),
		intTuple(20, 300),
		intTuple(10, 3),
	}
	ctx := setupTestContext(t)

	agg := NewAggregateExecutor(
		[]int{0},
		[]AggregateSpec{{Op: AggSum, Column: 1}, {Op: AggAvg, Column: 1}},
		NewTupleListExecutor(rows),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	sortByBytes(got)

	want := [][]common.Value{
		intTuple(10, 303, 101).Values,
		intTuple(20, 300, 300).Values,
	}
	assert.Equal(t, want, tupleValues(got))
}

func TestAggregateCountMinMax(t *testing.T) {
	rows := []storage.Tuple{
		storage.NewTuple(common.NewIntValue(1), common.NewStringValue("pear")),
		storage.NewTuple(common.NewIntValue(1), common.NewStringValue("apple")),
		storage.NewTuple(common.NewIntValue(2), common.NewStringValue("fig")),
	}
	ctx := setupTestContext(t)

	agg := NewAggregateExecutor(
		[]int{0},
		[]AggregateSpec{{Op: AggCount, Column: 1}, {Op: AggMin, Column: 1}, {Op: AggMax, Column: 1}},
		NewTupleListExecutor(rows),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	sortByBytes(got)

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].GetValue(1).IntValue())
	assert.Equal(t, "apple", got[0].GetValue(2).StringValue())
	assert.Equal(t, "pear", got[0].GetValue(3).StringValue())
	assert.Equal(t, int64(1), got[1].GetValue(1).IntValue())
	assert.Equal(t, "fig", got[1].GetValue(2).StringValue())
	assert.Equal(t, "fig", got[1].GetValue(3).StringValue())
}

func TestAggregateGlobal(t *testing.T) {
	rows := []storage.Tuple{intTuple(5), intTuple(9), intTuple(2)}
	ctx := setupTestContext(t)

	// No group-by columns: every row falls into the single global group.
	agg := NewAggregateExecutor(
		nil,
		[]AggregateSpec{
			{Op: AggCount, Column: 0},
			{Op: AggSum, Column: 0},
			{Op: AggMin, Column: 0},
			{Op: AggMax, Column: 0},
			{Op: AggAvg, Column: 0},
		},
		NewTupleListExecutor(rows),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	require.Len(t, got, 1)
	assert.Equal(t, intTuple(3, 16, 2, 9, 5).Values, got[0].Values)
}

func TestAggregateEmptyInput(t *testing.T) {
	ctx := setupTestContext(t)
	agg := NewAggregateExecutor(
		nil,
		[]AggregateSpec{{Op: AggCount, Column: 0}},
		NewTupleListExecutor(nil),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	assert.Empty(t, got, "no input rows means no groups, even without group-by")
}

func TestAggregateAvgIsDeferred(t *testing.T) {
	// A running average rounded at each step would drift; sum and count kept
	// separately give exactly floor(9/3) here.
	rows := []storage.Tuple{intTuple(1), intTuple(2), intTuple(6)}
	ctx := setupTestContext(t)

	agg := NewAggregateExecutor(
		nil,
		[]AggregateSpec{{Op: AggAvg, Column: 0}},
		NewTupleListExecutor(rows),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].GetValue(0).IntValue())

	// Re-Init recomputes from scratch and agrees with itself.
	again := collect(t, agg, ctx)
	require.Len(t, again, 1)
	assert.Equal(t, got[0].Values, again[0].Values)
	require.NoError(t, agg.Close())
}

func TestAggregateCloseMidStream(t *testing.T) {
	rows := []storage.Tuple{intTuple(1, 10), intTuple(1, 20), intTuple(2, 30)}
	ctx := setupTestContext(t)

	child := &closeCounter{Executor: NewTupleListExecutor(rows)}
	agg := NewAggregateExecutor([]int{0}, []AggregateSpec{{Op: AggSum, Column: 1}}, child)

	// Close after consuming only part of the output.
	require.NoError(t, agg.Init(ctx))
	require.True(t, agg.Next())
	require.NoError(t, agg.Close())
	assert.Equal(t, 1, child.closes)
	assert.Nil(t, agg.tuples, "closing releases the materialized groups")

	// A closed aggregation can be re-initialized and run to completion.
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	assert.Equal(t, 2, child.closes)
	sortByBytes(got)
	assert.Equal(t, [][]common.Value{intTuple(1, 30).Values, intTuple(2, 30).Values}, tupleValues(got))
}

func TestAggregateAvgMatchesExactReference(t *testing.T) {
	// Random groups with negative values; the emitted average must equal the
	// arbitrary-precision sum divided by the count, truncated toward zero.
	r := rand.New(rand.NewSource(11))
	ctx := setupTestContext(t)

	type groupRef struct {
		sum   *big.Int
		count int64
	}
	refs := make(map[int64]*groupRef)
	var rows []storage.Tuple
	for i := 0; i < 500; i++ {
		group := int64(r.Intn(12))
		val := r.Int63n(2_000_001) - 1_000_000
		rows = append(rows, intTuple(group, val))
		ref, ok := refs[group]
		if !ok {
			ref = &groupRef{sum: new(big.Int)}
			refs[group] = ref
		}
		ref.sum.Add(ref.sum, big.NewInt(val))
		ref.count++
	}

	agg := NewAggregateExecutor(
		[]int{0},
		[]AggregateSpec{{Op: AggSum, Column: 1}, {Op: AggAvg, Column: 1}},
		NewTupleListExecutor(rows),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	require.Len(t, got, len(refs))

	for _, row := range got {
		group := row.GetValue(0).IntValue()
		ref := refs[group]
		require.NotNil(t, ref, "unexpected group %d", group)
		assert.Equal(t, ref.sum.Int64(), row.GetValue(1).IntValue(), "sum of group %d", group)

		want := new(big.Int).Quo(ref.sum, big.NewInt(ref.count))
		avg := row.GetValue(2).IntValue()
		assert.Equal(t, want.Int64(), avg, "avg of group %d", group)

		// The truncated average stays within one of the exact rational mean.
		exact := new(big.Rat).SetFrac(ref.sum, big.NewInt(ref.count))
		diff := new(big.Rat).Sub(exact, new(big.Rat).SetInt64(avg))
		assert.True(t, diff.Abs(diff).Cmp(big.NewRat(1, 1)) < 0,
			"avg %d of group %d too far from exact mean %s", avg, group, exact.RatString())
	}
}

func TestAggregateOverScanAndFilter(t *testing.T) {
	// End to end: container -> scan -> filter -> aggregate.
	rows := []storage.Tuple{
		intTuple(10, 5),
		intTuple(10, 15),
		intTuple(20, 25),
		intTuple(20, 2),
	}
	ctx := setupTestContext(t, rows)

	agg := NewAggregateExecutor(
		[]int{0},
		[]AggregateSpec{{Op: AggCount, Column: 1}, {Op: AggSum, Column: 1}},
		NewFilterExecutor(
			FieldPredicate{Op: GreaterThanOrEqual, Column: 1, Operand: common.NewIntValue(5)},
			NewSeqScanExecutor(0),
		),
	)
	got := collect(t, agg, ctx)
	require.NoError(t, agg.Close())
	sortByBytes(got)

	want := [][]common.Value{
		intTuple(10, 2, 20).Values,
		intTuple(20, 1, 25).Values,
	}
	assert.Equal(t, want, tupleValues(got))
}
