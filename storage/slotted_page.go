package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dbsys/heapdb/common"
	"github.com/tidwall/btree"
)

const (
	// pageHeaderSize is the fixed page header: slot count (2), open-slot tag
	// (1), open-slot id (2).
	pageHeaderSize = 5
	// slotEntrySize is one slot directory entry: slot id (2), record offset
	// (2), record length (2). Deleted slots keep their entry with length 0.
	slotEntrySize = 6
)

// MaxRecordSize is the largest record that fits in an otherwise empty page:
// the page minus the fixed header and one slot entry.
const MaxRecordSize = common.PageSize - pageHeaderSize - slotEntrySize

type slotExtent struct {
	off    uint16
	length uint16
}

// SlottedPage is the in-memory representation of one fixed-size page holding
// variable-length records.
//
// The slot directory grows down from the top of the page and the record data
// grows up from the end, with the free space in between. Deleting a record
// immediately compacts the data area, so live records are always contiguous
// against the page end and the free space is a single gap. A deleted slot
// stays in the directory as a zero-length entry; its id is handed out again
// (lowest freed id first) before any fresh id.
//
// Serialized layout, little-endian:
//
//	[slotCount u16][openTag u8][openSlot u16][slotCount x (id u16, off u16, len u16)][gap][records]
type SlottedPage struct {
	slots    btree.Map[common.SlotID, slotExtent]
	openSlot common.SlotID
	hasOpen  bool
	live     int // live (non-deleted) record count
	used     int // total bytes of live record data
	data     [common.PageSize]byte
}

// NewSlottedPage creates an empty page.
func NewSlottedPage() *SlottedPage {
	return &SlottedPage{hasOpen: true}
}

func (p *SlottedPage) headerBytes() int {
	return pageHeaderSize + p.slots.Len()*slotEntrySize
}

// recordStart is the offset of the first record byte. Live records tile
// [recordStart, PageSize) exactly.
func (p *SlottedPage) recordStart() int {
	return common.PageSize - p.used
}

// FreeSpace returns the size of the gap between the slot directory and the
// record area. A record of length L fits iff L <= FreeSpace() when a freed
// slot id is available for reuse, or L+6 <= FreeSpace() otherwise.
func (p *SlottedPage) FreeSpace() int {
	return p.recordStart() - p.headerBytes()
}

// NumRecords returns the number of live records in the page.
func (p *SlottedPage) NumRecords() int {
	return p.live
}

// NumSlots returns the number of slot directory entries, including deleted
// slots.
func (p *SlottedPage) NumSlots() int {
	return p.slots.Len()
}

// Insert stores the record and returns its slot id. The freed slot id with the
// lowest value is reused if one exists; otherwise a fresh id one past the
// current maximum is assigned. Fails with ErrPageFull if the record does not
// fit, leaving the page unmodified.
func (p *SlottedPage) Insert(rec []byte) (common.SlotID, error) {
	if len(rec) == 0 {
		return 0, ErrEmptyRecord
	}
	if len(rec) > MaxRecordSize {
		return 0, fmt.Errorf("%w: %d bytes, max %d", ErrRecordTooLarge, len(rec), MaxRecordSize)
	}
	if !p.hasOpen {
		return 0, ErrPageFull
	}

	slot := p.openSlot
	_, reusing := p.slots.Get(slot)
	need := len(rec)
	if !reusing {
		// A fresh id grows the slot directory by one entry.
		need += slotEntrySize
	}
	if need > p.FreeSpace() {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrPageFull, need, p.FreeSpace())
	}

	off := p.recordStart() - len(rec)
	copy(p.data[off:], rec)
	p.slots.Set(slot, slotExtent{off: uint16(off), length: uint16(len(rec))})
	p.used += len(rec)
	p.live++
	p.findOpenSlot()
	return slot, nil
}

// findOpenSlot recomputes the next slot id to hand out: the lowest deleted id
// if any, otherwise one past the maximum id in the directory.
func (p *SlottedPage) findOpenSlot() {
	p.hasOpen = false
	p.slots.Scan(func(id common.SlotID, ext slotExtent) bool {
		if ext.length == 0 {
			p.openSlot = id
			p.hasOpen = true
			return false
		}
		return true
	})
	if p.hasOpen {
		return
	}
	maxID, _, ok := p.slots.Max()
	if !ok {
		p.openSlot = 0
		p.hasOpen = true
		return
	}
	if maxID < math.MaxUint16 {
		p.openSlot = maxID + 1
		p.hasOpen = true
	}
}

// Record returns a copy of the record stored in the given slot.
func (p *SlottedPage) Record(slot common.SlotID) ([]byte, error) {
	ext, ok := p.slots.Get(slot)
	if !ok || ext.length == 0 {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotNotFound, slot)
	}
	rec := make([]byte, ext.length)
	copy(rec, p.data[ext.off:int(ext.off)+int(ext.length)])
	return rec, nil
}

// Delete removes the record in the given slot and compacts the data area so
// the freed bytes rejoin the central gap. The slot id becomes reusable. Fails
// with ErrSlotNotFound if the slot does not exist or is already deleted.
func (p *SlottedPage) Delete(slot common.SlotID) error {
	ext, ok := p.slots.Get(slot)
	if !ok || ext.length == 0 {
		return fmt.Errorf("%w: slot %d", ErrSlotNotFound, slot)
	}
	dOff := int(ext.off)
	dLen := int(ext.length)
	start := p.recordStart()

	// Records below the deleted one occupy [start, dOff). Shift them toward
	// the page end by dLen and zero the vacated bytes.
	copy(p.data[start+dLen:dOff+dLen], p.data[start:dOff])
	for i := start; i < start+dLen; i++ {
		p.data[i] = 0
	}

	type slotMove struct {
		id  common.SlotID
		ext slotExtent
	}
	var moves []slotMove
	p.slots.Scan(func(id common.SlotID, e slotExtent) bool {
		if e.length != 0 && int(e.off) < dOff {
			moves = append(moves, slotMove{id, slotExtent{off: e.off + uint16(dLen), length: e.length}})
		}
		return true
	})
	for _, m := range moves {
		p.slots.Set(m.id, m.ext)
	}

	p.slots.Set(slot, slotExtent{})
	p.used -= dLen
	p.live--
	p.findOpenSlot()
	return nil
}

// Scan calls iter for every live record in ascending slot order, stopping
// early if iter returns false. The record slice aliases the page and must not
// be retained across mutations.
func (p *SlottedPage) Scan(iter func(slot common.SlotID, rec []byte) bool) {
	p.slots.Scan(func(id common.SlotID, ext slotExtent) bool {
		if ext.length == 0 {
			return true
		}
		return iter(id, p.data[ext.off:int(ext.off)+int(ext.length)])
	})
}

// LiveSlots returns the ids of all live records in ascending order.
func (p *SlottedPage) LiveSlots() []common.SlotID {
	out := make([]common.SlotID, 0, p.live)
	p.slots.Scan(func(id common.SlotID, ext slotExtent) bool {
		if ext.length != 0 {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Serialize produces the canonical on-disk image of the page.
func (p *SlottedPage) Serialize() []byte {
	buf := make([]byte, common.PageSize)
	copy(buf[p.recordStart():], p.data[p.recordStart():])

	binary.LittleEndian.PutUint16(buf, uint16(p.slots.Len()))
	if p.hasOpen {
		buf[2] = 1
		binary.LittleEndian.PutUint16(buf[3:], uint16(p.openSlot))
	}
	pos := pageHeaderSize
	p.slots.Scan(func(id common.SlotID, ext slotExtent) bool {
		binary.LittleEndian.PutUint16(buf[pos:], uint16(id))
		binary.LittleEndian.PutUint16(buf[pos+2:], ext.off)
		binary.LittleEndian.PutUint16(buf[pos+4:], ext.length)
		pos += slotEntrySize
		return true
	})
	return buf
}

// DeserializePage reconstructs a page from its on-disk image. The slot count
// in the header fully determines the directory; everything else is validated
// against the compaction invariant (live records tile the tail of the page).
func DeserializePage(buf []byte) (*SlottedPage, error) {
	if len(buf) != common.PageSize {
		return nil, fmt.Errorf("page image must be %d bytes, got %d", common.PageSize, len(buf))
	}
	p := &SlottedPage{}
	numSlots := int(binary.LittleEndian.Uint16(buf))
	if pageHeaderSize+numSlots*slotEntrySize > common.PageSize {
		return nil, fmt.Errorf("corrupt page: %d slot entries do not fit", numSlots)
	}
	if buf[2] == 1 {
		p.hasOpen = true
		p.openSlot = common.SlotID(binary.LittleEndian.Uint16(buf[3:]))
	}

	var extents []slotExtent
	pos := pageHeaderSize
	for i := 0; i < numSlots; i++ {
		id := common.SlotID(binary.LittleEndian.Uint16(buf[pos:]))
		ext := slotExtent{
			off:    binary.LittleEndian.Uint16(buf[pos+2:]),
			length: binary.LittleEndian.Uint16(buf[pos+4:]),
		}
		pos += slotEntrySize
		if _, dup := p.slots.Get(id); dup {
			return nil, fmt.Errorf("corrupt page: duplicate slot id %d", id)
		}
		if ext.length != 0 {
			if int(ext.off)+int(ext.length) > common.PageSize {
				return nil, fmt.Errorf("corrupt page: slot %d extent [%d, %d) past page end",
					id, ext.off, int(ext.off)+int(ext.length))
			}
			p.used += int(ext.length)
			p.live++
			extents = append(extents, ext)
		}
		p.slots.Set(id, ext)
	}

	// Live records must exactly tile [PageSize-used, PageSize).
	sort.Slice(extents, func(i, j int) bool { return extents[i].off < extents[j].off })
	next := common.PageSize - p.used
	for _, ext := range extents {
		if int(ext.off) != next {
			return nil, fmt.Errorf("corrupt page: record area not contiguous at offset %d", ext.off)
		}
		next += int(ext.length)
	}

	// The open slot must be a deleted entry or the next fresh id; a header
	// naming a live slot would let the next Insert overwrite that record.
	if p.hasOpen {
		if ext, ok := p.slots.Get(p.openSlot); ok {
			if ext.length != 0 {
				return nil, fmt.Errorf("corrupt page: open slot %d names a live record", p.openSlot)
			}
		} else {
			fresh := common.SlotID(0)
			if maxID, _, ok := p.slots.Max(); ok {
				fresh = maxID + 1
			}
			if p.openSlot != fresh {
				return nil, fmt.Errorf("corrupt page: open slot %d, expected fresh id %d", p.openSlot, fresh)
			}
		}
	}

	copy(p.data[:], buf)
	return p, nil
}
