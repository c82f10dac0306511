package execution

import (
	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

// SeqScanExecutor scans every live record of a container and decodes each one
// into a tuple.
type SeqScanExecutor struct {
	cid common.ContainerID

	// Runtime state
	iterator *storage.HeapFileIterator
	current  storage.Tuple
	err      error
}

// NewSeqScanExecutor creates a scan over the given container.
func NewSeqScanExecutor(cid common.ContainerID) *SeqScanExecutor {
	return &SeqScanExecutor{cid: cid}
}

func (e *SeqScanExecutor) Init(ctx *ExecutorContext) error {
	e.current = storage.Tuple{}
	e.err = nil
	var err error
	e.iterator, err = ctx.Storage.Iterator(e.cid)
	return err
}

func (e *SeqScanExecutor) Next() bool {
	common.Assert(e.iterator != nil, "SeqScanExecutor.Init() must be called before Next()")
	if e.err != nil {
		return false
	}
	if !e.iterator.Next() {
		e.err = e.iterator.Error()
		return false
	}
	tuple, err := storage.TupleFromBytes(e.iterator.Record())
	if err != nil {
		e.err = err
		return false
	}
	tuple.RID = e.iterator.RecordID()
	e.current = tuple
	return true
}

func (e *SeqScanExecutor) Current() storage.Tuple {
	return e.current
}

func (e *SeqScanExecutor) Error() error {
	return e.err
}

func (e *SeqScanExecutor) Close() error {
	if e.iterator != nil {
		return e.iterator.Close()
	}
	return nil
}
