package execution

import (
	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

// AggregateOp enumerates the supported aggregate functions.
type AggregateOp int

const (
	AggCount AggregateOp = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (op AggregateOp) String() string {
	switch op {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	}
	return "?"
}

// AggregateSpec is one aggregate function applied to one input column.
// Sum and Avg require an integer column; Count, Min and Max work on any type.
type AggregateSpec struct {
	Op     AggregateOp
	Column int
}

// aggState accumulates one aggregate for one group. Avg keeps the running sum
// and count separately and divides only when the group is emitted, so
// intermediate states never hold a rounded value.
type aggState struct {
	count    int64
	sum      int64
	min, max common.Value
}

func (s *aggState) update(op AggregateOp, val common.Value) {
	switch op {
	case AggCount:
		s.count++
	case AggSum:
		s.sum += val.IntValue()
	case AggMin:
		if s.min.IsNil() || val.Compare(s.min) < 0 {
			s.min = val
		}
	case AggMax:
		if s.max.IsNil() || val.Compare(s.max) > 0 {
			s.max = val
		}
	case AggAvg:
		s.sum += val.IntValue()
		s.count++
	}
}

func (s *aggState) finalize(op AggregateOp) common.Value {
	switch op {
	case AggCount:
		return common.NewIntValue(s.count)
	case AggSum:
		return common.NewIntValue(s.sum)
	case AggMin:
		return s.min
	case AggMax:
		return s.max
	case AggAvg:
		// Deferred integer division; count is at least 1 for any emitted group.
		return common.NewIntValue(s.sum / s.count)
	}
	panic("unknown aggregate op")
}

// groupState is the accumulated state of one group: the group key values plus
// one aggState per requested aggregate.
type groupState struct {
	groupValues []common.Value
	aggs        []aggState
}

// AggregateExecutor implements hash-based grouping and aggregation. It is a
// blocking operator: the first Next() drains the child completely and
// materializes one output tuple per group, laid out as the group-by columns
// followed by the aggregate results in the order the AggregateSpecs were
// given. With no group-by columns
// every input row falls into a single group, and an empty input produces no
// output.
type AggregateExecutor struct {
	groupColumns []int
	aggs         []AggregateSpec
	child        Executor

	// Runtime state
	tuples       []storage.Tuple
	currentIndex int
	err          error
}

// NewAggregateExecutor creates an aggregation over the child's output.
func NewAggregateExecutor(groupColumns []int, aggs []AggregateSpec, child Executor) *AggregateExecutor {
	common.Assert(len(aggs) > 0, "aggregation requires at least one aggregate")
	return &AggregateExecutor{
		groupColumns: groupColumns,
		aggs:         aggs,
		child:        child,
		currentIndex: -1,
	}
}

func (e *AggregateExecutor) Init(ctx *ExecutorContext) error {
	e.tuples = nil
	e.currentIndex = -1
	e.err = nil
	return e.child.Init(ctx)
}

func (e *AggregateExecutor) buildGroups() bool {
	hashTable := NewExecutionHashTable[*groupState]()
	for e.child.Next() {
		tuple := e.child.Current()
		key := tuple.KeyBytes(e.groupColumns)
		state, found := hashTable.Get(key)
		if !found {
			groupValues := make([]common.Value, len(e.groupColumns))
			for i, col := range e.groupColumns {
				groupValues[i] = tuple.GetValue(col)
			}
			state = &groupState{
				groupValues: groupValues,
				aggs:        make([]aggState, len(e.aggs)),
			}
			hashTable.Insert(key, state)
		}
		for i, spec := range e.aggs {
			state.aggs[i].update(spec.Op, tuple.GetValue(spec.Column))
		}
	}
	if err := e.child.Error(); err != nil {
		e.err = err
		return false
	}

	e.tuples = make([]storage.Tuple, 0, hashTable.Len())
	hashTable.Iterate(func(state *groupState) {
		values := make([]common.Value, 0, len(state.groupValues)+len(e.aggs))
		values = append(values, state.groupValues...)
		for i, spec := range e.aggs {
			values = append(values, state.aggs[i].finalize(spec.Op))
		}
		e.tuples = append(e.tuples, storage.NewTuple(values...))
	})
	return true
}

func (e *AggregateExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	if e.tuples == nil {
		if !e.buildGroups() {
			return false
		}
	}
	e.currentIndex++
	return e.currentIndex < len(e.tuples)
}

func (e *AggregateExecutor) Current() storage.Tuple {
	return e.tuples[e.currentIndex]
}

func (e *AggregateExecutor) Error() error {
	return e.err
}

func (e *AggregateExecutor) Close() error {
	e.tuples = nil
	return e.child.Close()
}
