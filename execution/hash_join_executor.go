package execution

import (
	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

// HashJoinExecutor implements the hash join algorithm for equality
// predicates. On the first Next() it drains the inner (right) child into a
// hash table keyed by the join columns, then streams the outer child, probing
// the table and emitting one joined tuple per match.
type HashJoinExecutor struct {
	leftColumns, rightColumns []int
	outer, inner              Executor

	// Runtime state
	innerTable     *ExecutionHashTable[[]storage.Tuple]
	outerTuple     storage.Tuple
	currentMatches []storage.Tuple // inner tuples matching the current outer tuple
	matchIndex     int             // index of the next match to emit
	current        storage.Tuple
	err            error
}

// NewHashJoinExecutor creates an equi-join of outer and inner on
// outer[leftColumns[i]] == inner[rightColumns[i]] for all i.
func NewHashJoinExecutor(leftColumns, rightColumns []int, outer, inner Executor) *HashJoinExecutor {
	common.Assert(len(leftColumns) == len(rightColumns) && len(leftColumns) > 0,
		"hash join requires matching, non-empty key column lists")
	return &HashJoinExecutor{
		leftColumns:  leftColumns,
		rightColumns: rightColumns,
		outer:        outer,
		inner:        inner,
	}
}

func (e *HashJoinExecutor) Init(ctx *ExecutorContext) error {
	e.innerTable = nil
	e.currentMatches = nil
	e.matchIndex = 0
	e.current = storage.Tuple{}
	e.err = nil
	if err := e.outer.Init(ctx); err != nil {
		return err
	}
	return e.inner.Init(ctx)
}

// buildPhase consumes the entire inner child into the hash table, appending
// duplicates of a key to its bucket slice.
func (e *HashJoinExecutor) buildPhase() error {
	e.innerTable = NewExecutionHashTable[[]storage.Tuple]()
	for e.inner.Next() {
		tuple := e.inner.Current()
		key := tuple.KeyBytes(e.rightColumns)
		existing, _ := e.innerTable.Get(key)
		e.innerTable.Insert(key, append(existing, tuple))
	}
	return e.inner.Error()
}

func (e *HashJoinExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	if e.innerTable == nil {
		if err := e.buildPhase(); err != nil {
			e.err = err
			return false
		}
	}

	for {
		if e.matchIndex == len(e.currentMatches) {
			// No matches left for the previous outer tuple; fetch the next one.
			if !e.outer.Next() {
				e.err = e.outer.Error()
				return false
			}
			e.outerTuple = e.outer.Current()
			matches, found := e.innerTable.Get(e.outerTuple.KeyBytes(e.leftColumns))
			if !found {
				continue
			}
			e.currentMatches = matches
			e.matchIndex = 0
		}
		match := e.currentMatches[e.matchIndex]
		e.matchIndex++
		e.current = storage.ConcatTuples(e.outerTuple, match)
		return true
	}
}

func (e *HashJoinExecutor) Current() storage.Tuple {
	return e.current
}

func (e *HashJoinExecutor) Error() error {
	return e.err
}

func (e *HashJoinExecutor) Close() error {
	e.innerTable = nil
	err1 := e.inner.Close()
	err2 := e.outer.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
