package storage

import "github.com/dbsys/heapdb/common"

// HeapFileIterator walks every live record of a heap file in page order, and
// within a page in ascending slot order. Deleted slots and empty pages are
// skipped transparently.
//
// The page count is snapshotted at creation, so pages appended after the
// iterator was created are not visited. To restart, create a new iterator.
type HeapFileIterator struct {
	hf       *HeapFile
	numPages int
	nextPage int
	page     *SlottedPage
	slots    []common.SlotID
	slotIdx  int
	rid      common.RecordID
	rec      []byte
	err      error
}

// NewHeapFileIterator creates an iterator positioned before the first record.
func NewHeapFileIterator(hf *HeapFile) *HeapFileIterator {
	return &HeapFileIterator{hf: hf, numPages: hf.NumPages()}
}

// Next advances to the next live record. Returns false when the file is
// exhausted or an error occurred; check Error to tell the two apart.
func (it *HeapFileIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.page != nil && it.slotIdx < len(it.slots) {
			slot := it.slots[it.slotIdx]
			it.slotIdx++
			rec, err := it.page.Record(slot)
			if err != nil {
				it.err = err
				return false
			}
			it.rid = common.RecordID{
				Container: it.hf.ContainerID(),
				Page:      common.PageID(it.nextPage - 1),
				Slot:      slot,
			}
			it.rec = rec
			return true
		}
		if it.nextPage >= it.numPages {
			return false
		}
		page, err := it.hf.ReadPage(common.PageID(it.nextPage))
		if err != nil {
			it.err = err
			return false
		}
		it.page = page
		it.slots = page.LiveSlots()
		it.slotIdx = 0
		it.nextPage++
	}
}

// RecordID returns the address of the record most recently read by Next.
func (it *HeapFileIterator) RecordID() common.RecordID {
	return it.rid
}

// Record returns the record most recently read by Next.
func (it *HeapFileIterator) Record() []byte {
	return it.rec
}

// Error returns the first error encountered, if any.
func (it *HeapFileIterator) Error() error {
	return it.err
}

// Close releases the iterator's page reference.
func (it *HeapFileIterator) Close() error {
	it.page = nil
	it.slots = nil
	return nil
}
