package execution

import (
	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

// ProjectionExecutor narrows the child's tuples to the given column indices,
// in the given order. Columns may be repeated or reordered.
type ProjectionExecutor struct {
	columns []int
	child   Executor

	current storage.Tuple
}

// NewProjectionExecutor creates a projection of the child's output.
func NewProjectionExecutor(columns []int, child Executor) *ProjectionExecutor {
	return &ProjectionExecutor{columns: columns, child: child}
}

func (e *ProjectionExecutor) Init(ctx *ExecutorContext) error {
	e.current = storage.Tuple{}
	return e.child.Init(ctx)
}

func (e *ProjectionExecutor) Next() bool {
	if !e.child.Next() {
		return false
	}
	in := e.child.Current()
	values := make([]common.Value, len(e.columns))
	for i, col := range e.columns {
		values[i] = in.GetValue(col)
	}
	e.current = storage.Tuple{Values: values, RID: in.RID}
	return true
}

func (e *ProjectionExecutor) Current() storage.Tuple {
	return e.current
}

func (e *ProjectionExecutor) Error() error {
	return e.child.Error()
}

func (e *ProjectionExecutor) Close() error {
	return e.child.Close()
}
