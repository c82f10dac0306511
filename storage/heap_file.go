package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dbsys/heapdb/common"
)

// HeapFile is an unordered collection of records stored in a sequence of
// slotted pages inside one OS file. Page N lives at byte offset N*PageSize;
// the page count is derived from the file length and cached to avoid stat()
// syscalls on every access.
type HeapFile struct {
	cid   common.ContainerID
	path  string
	file  *os.File
	cache *PageCache

	// numPages caches file length / PageSize. Updated under mu after
	// physical allocation.
	numPages atomic.Int32
	// mu serializes mutations (insert, delete, page allocation). Reads only
	// need the atomic page count.
	mu sync.Mutex

	// I/O counters observed by tests and by cache-effectiveness checks.
	readCount  atomic.Uint32
	writeCount atomic.Uint32
}

// OpenHeapFile opens (creating if necessary) the heap file at path. An
// existing file must be a whole number of pages long. The cache may be nil,
// in which case every read goes to disk.
func OpenHeapFile(path string, cid common.ContainerID, cache *PageCache) (*HeapFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("open heap file %s: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if stat.Size()%int64(common.PageSize) != 0 {
		_ = file.Close()
		return nil, fmt.Errorf("heap file %s is not page aligned: %d bytes", path, stat.Size())
	}

	hf := &HeapFile{
		cid:   cid,
		path:  path,
		file:  file,
		cache: cache,
	}
	hf.numPages.Store(int32(stat.Size() / int64(common.PageSize)))
	logrus.WithFields(logrus.Fields{"container": cid, "path": path, "pages": hf.numPages.Load()}).
		Debug("opened heap file")
	return hf, nil
}

// NumPages returns the number of pages currently in the file.
func (hf *HeapFile) NumPages() int {
	return int(hf.numPages.Load())
}

// ContainerID returns the container this heap file backs.
func (hf *HeapFile) ContainerID() common.ContainerID {
	return hf.cid
}

// ReadCount returns the number of disk page reads performed. Cache hits do
// not count.
func (hf *HeapFile) ReadCount() uint32 {
	return hf.readCount.Load()
}

// WriteCount returns the number of disk page writes performed.
func (hf *HeapFile) WriteCount() uint32 {
	return hf.writeCount.Load()
}

// ReadPage returns the page at the given index, served from the page cache
// when possible.
func (hf *HeapFile) ReadPage(pid common.PageID) (*SlottedPage, error) {
	if int32(pid) >= hf.numPages.Load() {
		return nil, fmt.Errorf("read out of bounds: page %d does not exist (file has %d pages)",
			pid, hf.numPages.Load())
	}
	if img, ok := hf.cache.Get(hf.cid, pid); ok {
		return DeserializePage(img)
	}

	buf := make([]byte, common.PageSize)
	if _, err := hf.file.ReadAt(buf, int64(pid)*int64(common.PageSize)); err != nil {
		return nil, fmt.Errorf("read page %d of container %d: %w", pid, hf.cid, err)
	}
	hf.readCount.Add(1)
	logrus.WithFields(logrus.Fields{"container": hf.cid, "page": pid}).Trace("page read from disk")
	hf.cache.Put(hf.cid, pid, buf)
	return DeserializePage(buf)
}

// WritePage writes the page image at the given index and refreshes the cache.
func (hf *HeapFile) WritePage(pid common.PageID, page *SlottedPage) error {
	if int32(pid) >= hf.numPages.Load() {
		return fmt.Errorf("write out of bounds: page %d does not exist", pid)
	}
	img := page.Serialize()
	if _, err := hf.file.WriteAt(img, int64(pid)*int64(common.PageSize)); err != nil {
		return fmt.Errorf("write page %d of container %d: %w", pid, hf.cid, err)
	}
	hf.writeCount.Add(1)
	hf.cache.Put(hf.cid, pid, img)
	return nil
}

// appendPage writes the page past the current end of the file and returns its
// new page id. Caller must hold mu.
func (hf *HeapFile) appendPage(page *SlottedPage) (common.PageID, error) {
	pid := common.PageID(hf.numPages.Load())
	img := page.Serialize()
	if _, err := hf.file.WriteAt(img, int64(pid)*int64(common.PageSize)); err != nil {
		return 0, fmt.Errorf("append page to container %d: %w", hf.cid, err)
	}
	hf.numPages.Store(int32(pid) + 1)
	hf.writeCount.Add(1)
	hf.cache.Put(hf.cid, pid, img)
	logrus.WithFields(logrus.Fields{"container": hf.cid, "page": pid}).Debug("allocated heap page")
	return pid, nil
}

// Insert stores the record in the first existing page with room, allocating a
// new page at the end of the file only when no page can hold it. Returns the
// record's durable address.
func (hf *HeapFile) Insert(rec []byte) (common.RecordID, error) {
	if len(rec) == 0 {
		return common.RecordID{}, ErrEmptyRecord
	}
	if len(rec) > MaxRecordSize {
		return common.RecordID{}, fmt.Errorf("%w: %d bytes, max %d", ErrRecordTooLarge, len(rec), MaxRecordSize)
	}

	hf.mu.Lock()
	defer hf.mu.Unlock()

	numPages := hf.NumPages()
	for pid := 0; pid < numPages; pid++ {
		page, err := hf.ReadPage(common.PageID(pid))
		if err != nil {
			return common.RecordID{}, err
		}
		slot, err := page.Insert(rec)
		if errors.Is(err, ErrPageFull) {
			continue
		}
		if err != nil {
			return common.RecordID{}, err
		}
		if err := hf.WritePage(common.PageID(pid), page); err != nil {
			return common.RecordID{}, err
		}
		return common.RecordID{Container: hf.cid, Page: common.PageID(pid), Slot: slot}, nil
	}

	page := NewSlottedPage()
	slot, err := page.Insert(rec)
	common.Assert(err == nil, "record of %d bytes must fit in an empty page: %v", len(rec), err)
	pid, err := hf.appendPage(page)
	if err != nil {
		return common.RecordID{}, err
	}
	return common.RecordID{Container: hf.cid, Page: pid, Slot: slot}, nil
}

// Get returns a copy of the record at the given address.
func (hf *HeapFile) Get(rid common.RecordID) ([]byte, error) {
	if int32(rid.Page) >= hf.numPages.Load() {
		return nil, fmt.Errorf("%w: page %d does not exist", ErrSlotNotFound, rid.Page)
	}
	page, err := hf.ReadPage(rid.Page)
	if err != nil {
		return nil, err
	}
	return page.Record(rid.Slot)
}

// Delete removes the record at the given address.
func (hf *HeapFile) Delete(rid common.RecordID) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if int32(rid.Page) >= hf.numPages.Load() {
		return fmt.Errorf("%w: page %d does not exist", ErrSlotNotFound, rid.Page)
	}
	page, err := hf.ReadPage(rid.Page)
	if err != nil {
		return err
	}
	if err := page.Delete(rid.Slot); err != nil {
		return err
	}
	return hf.WritePage(rid.Page, page)
}

// Sync flushes outstanding writes to stable storage.
func (hf *HeapFile) Sync() error {
	return hf.file.Sync()
}

// Close closes the underlying OS file.
func (hf *HeapFile) Close() error {
	return hf.file.Close()
}
