package storage

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/dbsys/heapdb/common"
)

// PageCache caches serialized page images so repeated reads of hot pages skip
// the disk. It is write-through: every page write refreshes the cached image,
// so a hit is always as fresh as the file. Admission and eviction are
// delegated to ristretto; a miss is always legal and simply falls back to the
// heap file.
type PageCache struct {
	cache *ristretto.Cache[uint32, []byte]
}

// DefaultPageCacheBytes is the page cache budget used when the caller does not
// specify one.
const DefaultPageCacheBytes int64 = 64 << 20

func pageCacheKey(cid common.ContainerID, pid common.PageID) uint32 {
	return uint32(cid)<<16 | uint32(pid)
}

// NewPageCache creates a cache holding up to maxBytes of page images.
func NewPageCache(maxBytes int64) (*PageCache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultPageCacheBytes
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint32, []byte]{
		// ristretto recommends 10x the expected number of items.
		NumCounters: 10 * maxBytes / int64(common.PageSize),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &PageCache{cache: cache}, nil
}

// Get returns the cached image of the page, if present. The returned slice is
// shared with the cache and must not be modified.
func (pc *PageCache) Get(cid common.ContainerID, pid common.PageID) ([]byte, bool) {
	if pc == nil {
		return nil, false
	}
	return pc.cache.Get(pageCacheKey(cid, pid))
}

// Put stores a copy of the page image.
func (pc *PageCache) Put(cid common.ContainerID, pid common.PageID, image []byte) {
	if pc == nil {
		return
	}
	common.Assert(len(image) == common.PageSize, "page image must be %d bytes", common.PageSize)
	img := make([]byte, common.PageSize)
	copy(img, image)
	pc.cache.Set(pageCacheKey(cid, pid), img, int64(common.PageSize))
}

// Drop removes the cached image of the page, if present. Used when a
// container is removed so a later container with the same id cannot observe
// stale pages.
func (pc *PageCache) Drop(cid common.ContainerID, pid common.PageID) {
	if pc == nil {
		return
	}
	pc.cache.Del(pageCacheKey(cid, pid))
}

// Wait blocks until buffered Sets have been applied. Only needed by tests that
// assert on hit behavior.
func (pc *PageCache) Wait() {
	if pc != nil {
		pc.cache.Wait()
	}
}

// Close releases the cache goroutines.
func (pc *PageCache) Close() {
	if pc != nil {
		pc.cache.Close()
	}
}
