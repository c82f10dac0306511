package execution

import "github.com/dbsys/heapdb/storage"

// TupleListExecutor serves tuples from an in-memory slice. Used as a leaf for
// operator tests and wherever a materialized input is convenient.
type TupleListExecutor struct {
	tuples       []storage.Tuple
	currentIndex int
}

// NewTupleListExecutor creates an executor over the given tuples.
func NewTupleListExecutor(tuples []storage.Tuple) *TupleListExecutor {
	return &TupleListExecutor{tuples: tuples, currentIndex: -1}
}

func (e *TupleListExecutor) Init(ctx *ExecutorContext) error {
	e.currentIndex = -1
	return nil
}

func (e *TupleListExecutor) Next() bool {
	if e.currentIndex+1 >= len(e.tuples) {
		return false
	}
	e.currentIndex++
	return true
}

func (e *TupleListExecutor) Current() storage.Tuple {
	return e.tuples[e.currentIndex]
}

func (e *TupleListExecutor) Error() error {
	return nil
}

func (e *TupleListExecutor) Close() error {
	return nil
}
