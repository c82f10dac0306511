package common

import "fmt"

// PageSize is the fixed size of every on-disk page, in bytes.
const PageSize int = 4096

// ContainerID identifies a record container (one heap file) within the store.
type ContainerID uint16

// PageID is the zero-based index of a page within its heap file.
type PageID uint16

// SlotID identifies a record slot within a page. Slot ids are stable for the
// lifetime of the record and are reused lowest-first after deletion.
type SlotID uint16

// RecordID is the durable address of a record: which container, which page,
// which slot.
type RecordID struct {
	Container ContainerID
	Page      PageID
	Slot      SlotID
}

func (r RecordID) String() string {
	return fmt.Sprintf("rid(%d, %d, %d)", r.Container, r.Page, r.Slot)
}
