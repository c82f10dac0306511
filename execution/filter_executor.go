package execution

import "github.com/dbsys/heapdb/storage"

// FilterExecutor passes through the child's tuples that satisfy a predicate.
type FilterExecutor struct {
	predicate FieldPredicate
	child     Executor
}

// NewFilterExecutor creates a filter over the child's output.
func NewFilterExecutor(predicate FieldPredicate, child Executor) *FilterExecutor {
	return &FilterExecutor{predicate: predicate, child: child}
}

func (e *FilterExecutor) Init(ctx *ExecutorContext) error {
	return e.child.Init(ctx)
}

func (e *FilterExecutor) Next() bool {
	for e.child.Next() {
		if e.predicate.Eval(e.child.Current()) {
			return true
		}
	}
	return false
}

func (e *FilterExecutor) Current() storage.Tuple {
	return e.child.Current()
}

func (e *FilterExecutor) Error() error {
	return e.child.Error()
}

func (e *FilterExecutor) Close() error {
	return e.child.Close()
}
