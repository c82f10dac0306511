package storage

import "errors"

var (
	// ErrPageFull is returned by page-level inserts when the page does not
	// have enough contiguous free space for the record (plus a new slot
	// entry, if no freed slot can be reused). The page is left unmodified.
	ErrPageFull = errors.New("page full")

	// ErrRecordTooLarge is returned by heap-file inserts for records that can
	// never fit in a page, even an empty one. No page is modified and no new
	// page is allocated.
	ErrRecordTooLarge = errors.New("record too large")

	// ErrEmptyRecord is returned for zero-length records. A zero-length slot
	// entry is the on-disk representation of a deleted slot, so empty records
	// are not representable.
	ErrEmptyRecord = errors.New("empty record")

	// ErrSlotNotFound is returned by reads and deletes that address a slot
	// which does not exist or has been deleted.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrContainerNotFound is returned by container operations addressing an
	// id with no registered container.
	ErrContainerNotFound = errors.New("container not found")
)
