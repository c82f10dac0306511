package heapdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/execution"
	"github.com/dbsys/heapdb/storage"
)

func TestHeapDBEndToEnd(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, 0)
	require.NoError(t, err)

	require.NoError(t, db.Storage.CreateContainer(1))
	rows := []storage.Tuple{
		storage.NewTuple(common.NewIntValue(10), common.NewIntValue(100)),
		storage.NewTuple(common.NewIntValue(10), common.NewIntValue(200)),
		storage.NewTuple(common.NewIntValue(20), common.NewIntValue(300)),
	}
	for _, row := range rows {
		_, err := db.Storage.Insert(1, row.ToBytes())
		require.NoError(t, err)
	}

	agg := execution.NewAggregateExecutor(
		[]int{0},
		[]execution.AggregateSpec{{Op: execution.AggSum, Column: 1}},
		execution.NewSeqScanExecutor(1),
	)
	require.NoError(t, agg.Init(db.ExecutorContext()))
	sums := make(map[int64]int64)
	for agg.Next() {
		sums[agg.Current().GetValue(0).IntValue()] = agg.Current().GetValue(1).IntValue()
	}
	require.NoError(t, agg.Error())
	require.NoError(t, agg.Close())
	assert.Equal(t, map[int64]int64{10: 300, 20: 300}, sums)

	require.NoError(t, db.Close())

	// Reopening finds the container again.
	db2, err := Open(dir, 0)
	require.NoError(t, err)
	defer func() { require.NoError(t, db2.Close()) }()
	it, err := db2.Storage.Iterator(1)
	require.NoError(t, err)
	count := 0
	for it.Next() {
		count++
	}
	require.NoError(t, it.Error())
	assert.Equal(t, len(rows), count)
}
