package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/dbsys/heapdb/common"
)

// manifestName is the file under the storage root recording which containers
// exist, so a restarted manager can reopen them.
const manifestName = "containers.json"

// StorageManager is the container directory: it maps container ids to their
// heap files and routes record operations to them. All containers share one
// page cache. Safe for concurrent use.
type StorageManager struct {
	rootPath string
	cache    *PageCache
	files    *xsync.MapOf[common.ContainerID, *HeapFile]
}

// NewStorageManager opens a manager rooted at rootPath, creating the
// directory if needed and reopening any containers recorded by a previous
// Shutdown. cacheBytes sizes the shared page cache; pass 0 for the default.
func NewStorageManager(rootPath string, cacheBytes int64) (*StorageManager, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", rootPath, err)
	}
	cache, err := NewPageCache(cacheBytes)
	if err != nil {
		return nil, err
	}
	sm := &StorageManager{
		rootPath: rootPath,
		cache:    cache,
		files:    xsync.NewMapOf[common.ContainerID, *HeapFile](),
	}

	data, err := os.ReadFile(filepath.Join(rootPath, manifestName))
	switch {
	case err == nil:
		var cids []common.ContainerID
		if err := json.Unmarshal(data, &cids); err != nil {
			return nil, fmt.Errorf("parse container manifest: %w", err)
		}
		for _, cid := range cids {
			hf, err := OpenHeapFile(sm.containerPath(cid), cid, sm.cache)
			if err != nil {
				return nil, err
			}
			sm.files.Store(cid, hf)
		}
		logrus.WithFields(logrus.Fields{"root": rootPath, "containers": len(cids)}).
			Info("reopened storage manager")
	case os.IsNotExist(err):
		logrus.WithField("root", rootPath).Info("initialized empty storage manager")
	default:
		return nil, fmt.Errorf("read container manifest: %w", err)
	}
	return sm, nil
}

func (sm *StorageManager) containerPath(cid common.ContainerID) string {
	return filepath.Join(sm.rootPath, fmt.Sprintf("c%d.hf", cid))
}

// CreateContainer registers a container for the given id, creating its heap
// file on disk. Creating an id that already exists is a no-op.
func (sm *StorageManager) CreateContainer(cid common.ContainerID) error {
	if _, ok := sm.files.Load(cid); ok {
		return nil
	}
	hf, err := OpenHeapFile(sm.containerPath(cid), cid, sm.cache)
	if err != nil {
		return err
	}
	if _, loaded := sm.files.LoadOrStore(cid, hf); loaded {
		// Lost the race; another goroutine registered the container first.
		_ = hf.Close()
		return nil
	}
	logrus.WithField("container", cid).Debug("created container")
	return nil
}

// GetContainer returns the heap file for the given container id.
func (sm *StorageManager) GetContainer(cid common.ContainerID) (*HeapFile, error) {
	hf, ok := sm.files.Load(cid)
	if !ok {
		return nil, fmt.Errorf("%w: container %d", ErrContainerNotFound, cid)
	}
	return hf, nil
}

// RemoveContainer unregisters the container and deletes its heap file and any
// cached pages.
//
// The caller must ensure no other goroutine is still using the container.
func (sm *StorageManager) RemoveContainer(cid common.ContainerID) error {
	hf, loaded := sm.files.LoadAndDelete(cid)
	if !loaded {
		return fmt.Errorf("%w: container %d", ErrContainerNotFound, cid)
	}
	numPages := hf.NumPages()
	if err := hf.Close(); err != nil {
		logrus.WithError(err).WithField("container", cid).
			Warn("close failed during container removal, proceeding with deletion")
	}
	for pid := 0; pid < numPages; pid++ {
		sm.cache.Drop(cid, common.PageID(pid))
	}
	logrus.WithField("container", cid).Debug("removed container")
	return os.Remove(sm.containerPath(cid))
}

// Insert stores the record in the container and returns its address.
func (sm *StorageManager) Insert(cid common.ContainerID, rec []byte) (common.RecordID, error) {
	hf, err := sm.GetContainer(cid)
	if err != nil {
		return common.RecordID{}, err
	}
	return hf.Insert(rec)
}

// InsertMany stores the records in order and returns their addresses. Stops
// at the first failure, returning the addresses inserted so far along with
// the error.
func (sm *StorageManager) InsertMany(cid common.ContainerID, recs [][]byte) ([]common.RecordID, error) {
	hf, err := sm.GetContainer(cid)
	if err != nil {
		return nil, err
	}
	rids := make([]common.RecordID, 0, len(recs))
	for _, rec := range recs {
		rid, err := hf.Insert(rec)
		if err != nil {
			return rids, err
		}
		rids = append(rids, rid)
	}
	return rids, nil
}

// Get returns a copy of the record at the given address.
func (sm *StorageManager) Get(rid common.RecordID) ([]byte, error) {
	hf, err := sm.GetContainer(rid.Container)
	if err != nil {
		return nil, err
	}
	return hf.Get(rid)
}

// Delete removes the record at the given address.
func (sm *StorageManager) Delete(rid common.RecordID) error {
	hf, err := sm.GetContainer(rid.Container)
	if err != nil {
		return err
	}
	return hf.Delete(rid)
}

// Update replaces the record at the given address with a new record, which
// may land at a different address. The old record is deleted first, so its
// slot id is eligible for reuse by the replacement.
func (sm *StorageManager) Update(rid common.RecordID, rec []byte) (common.RecordID, error) {
	hf, err := sm.GetContainer(rid.Container)
	if err != nil {
		return common.RecordID{}, err
	}
	if err := hf.Delete(rid); err != nil {
		return common.RecordID{}, err
	}
	return hf.Insert(rec)
}

// Iterator returns an iterator over all live records of the container.
func (sm *StorageManager) Iterator(cid common.ContainerID) (*HeapFileIterator, error) {
	hf, err := sm.GetContainer(cid)
	if err != nil {
		return nil, err
	}
	return NewHeapFileIterator(hf), nil
}

// Cache exposes the shared page cache.
func (sm *StorageManager) Cache() *PageCache {
	return sm.cache
}

// Shutdown writes the container manifest, flushes and closes every heap file,
// and releases the page cache. The manager must not be used afterwards; a new
// manager opened on the same root sees the same containers.
func (sm *StorageManager) Shutdown() error {
	var cids []common.ContainerID
	sm.files.Range(func(cid common.ContainerID, _ *HeapFile) bool {
		cids = append(cids, cid)
		return true
	})
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })

	data, err := json.Marshal(cids)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(sm.rootPath, manifestName), data, 0644); err != nil {
		return fmt.Errorf("write container manifest: %w", err)
	}

	var firstErr error
	for _, cid := range cids {
		hf, ok := sm.files.LoadAndDelete(cid)
		if !ok {
			continue
		}
		if err := hf.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := hf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	sm.cache.Close()
	logrus.WithField("containers", len(cids)).Info("storage manager shut down")
	return firstErr
}
