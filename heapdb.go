// Package heapdb is a single-node storage and query execution engine:
// variable-length records stored in slotted pages, pages grouped into
// per-container heap files, and a pull-based operator tree (scans, joins,
// aggregation) running on top.
package heapdb

import (
	"github.com/dbsys/heapdb/execution"
	"github.com/dbsys/heapdb/storage"
)

// HeapDB is the top-level handle bundling the storage manager and the
// execution layer bound to it.
type HeapDB struct {
	Storage *storage.StorageManager
}

// Open starts the engine over the given storage directory, reopening any
// containers persisted by a previous shutdown. cacheBytes sizes the shared
// page cache; pass 0 for the default.
func Open(storageDir string, cacheBytes int64) (*HeapDB, error) {
	sm, err := storage.NewStorageManager(storageDir, cacheBytes)
	if err != nil {
		return nil, err
	}
	return &HeapDB{Storage: sm}, nil
}

// ExecutorContext returns a context for running operator trees against this
// engine's storage.
func (db *HeapDB) ExecutorContext() *execution.ExecutorContext {
	return execution.NewExecutorContext(db.Storage)
}

// Close shuts the engine down, persisting the container directory so a later
// Open on the same directory sees the same containers.
func (db *HeapDB) Close() error {
	return db.Storage.Shutdown()
}
