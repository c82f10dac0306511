package execution

import (
	"github.com/dbsys/heapdb/storage"
)

// Executor is the interface all physical operators implement. Operators form
// a tree and pull tuples from their children one at a time.
//
// The protocol is Init, then Next/Current pairs until Next returns false,
// then Error to distinguish exhaustion from failure, then Close. Calling Init
// again resets the operator (and its children) to the start of its output.
type Executor interface {
	// Init prepares the executor for iteration, resetting any prior state.
	Init(ctx *ExecutorContext) error

	// Next advances to the next output tuple. Returns false on exhaustion or
	// error.
	Next() bool

	// Current returns the tuple most recently produced by Next().
	Current() storage.Tuple

	// Error returns the first error encountered by the executor, if any.
	Error() error

	// Close releases any resources held by the executor and its children.
	Close() error
}

// ExecutorContext carries the shared state an operator tree runs against.
type ExecutorContext struct {
	Storage *storage.StorageManager
}

// NewExecutorContext creates a context over the given storage manager.
func NewExecutorContext(sm *storage.StorageManager) *ExecutorContext {
	return &ExecutorContext{Storage: sm}
}
