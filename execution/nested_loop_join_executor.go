package execution

import "github.com/dbsys/heapdb/storage"

// NestedLoopJoinExecutor joins two children tuple at a time: for each outer
// tuple it scans the entire inner child, emitting the concatenation of every
// pair the predicate accepts. The inner child is rewound (re-initialized) once
// per outer tuple, so output order is outer order, then inner order within one
// outer tuple.
//
// Works with any comparison predicate, not just equality, at the cost of a
// full inner scan per outer tuple.
type NestedLoopJoinExecutor struct {
	predicate    JoinPredicate
	outer, inner Executor

	// Runtime state. The current outer tuple is retained across Next() calls
	// while the inner child is still being scanned for it.
	outerTuple storage.Tuple
	haveOuter  bool
	current    storage.Tuple
	ctx        *ExecutorContext
	err        error
}

// NewNestedLoopJoinExecutor creates a nested loop join of outer and inner.
func NewNestedLoopJoinExecutor(predicate JoinPredicate, outer, inner Executor) *NestedLoopJoinExecutor {
	return &NestedLoopJoinExecutor{
		predicate: predicate,
		outer:     outer,
		inner:     inner,
	}
}

func (e *NestedLoopJoinExecutor) Init(ctx *ExecutorContext) error {
	e.haveOuter = false
	e.current = storage.Tuple{}
	e.ctx = ctx
	e.err = nil
	if err := e.outer.Init(ctx); err != nil {
		return err
	}
	return e.inner.Init(ctx)
}

func (e *NestedLoopJoinExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	for {
		if !e.haveOuter {
			if !e.outer.Next() {
				e.err = e.outer.Error()
				return false
			}
			e.outerTuple = e.outer.Current()
			e.haveOuter = true
		}

		for e.inner.Next() {
			if e.predicate.Eval(e.outerTuple, e.inner.Current()) {
				e.current = storage.ConcatTuples(e.outerTuple, e.inner.Current())
				return true
			}
		}
		if e.inner.Error() != nil {
			e.err = e.inner.Error()
			return false
		}

		// Inner exhausted for this outer tuple: rewind it and move on.
		e.haveOuter = false
		if err := e.inner.Init(e.ctx); err != nil {
			e.err = err
			return false
		}
	}
}

func (e *NestedLoopJoinExecutor) Current() storage.Tuple {
	return e.current
}

func (e *NestedLoopJoinExecutor) Error() error {
	return e.err
}

func (e *NestedLoopJoinExecutor) Close() error {
	err1 := e.inner.Close()
	err2 := e.outer.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
