package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsys/heapdb/common"
)

func newTestStorageManager(t *testing.T) *StorageManager {
	t.Helper()
	sm, err := NewStorageManager(t.TempDir(), 1<<20)
	require.NoError(t, err)
	return sm
}

func TestStorageManagerContainers(t *testing.T) {
	sm := newTestStorageManager(t)

	_, err := sm.GetContainer(1)
	assert.ErrorIs(t, err, ErrContainerNotFound)
	assert.ErrorIs(t, sm.RemoveContainer(1), ErrContainerNotFound)
	_, err = sm.Insert(1, []byte("nope"))
	assert.ErrorIs(t, err, ErrContainerNotFound)

	require.NoError(t, sm.CreateContainer(1))
	require.NoError(t, sm.CreateContainer(1), "creating an existing container is a no-op")

	hf, err := sm.GetContainer(1)
	require.NoError(t, err)
	assert.Equal(t, common.ContainerID(1), hf.ContainerID())

	require.NoError(t, sm.RemoveContainer(1))
	_, err = sm.GetContainer(1)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestStorageManagerRecordOps(t *testing.T) {
	sm := newTestStorageManager(t)
	require.NoError(t, sm.CreateContainer(3))

	rid, err := sm.Insert(3, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, common.ContainerID(3), rid.Container)

	got, err := sm.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Update deletes first, so the replacement reuses the freed slot.
	newRid, err := sm.Update(rid, []byte("world"))
	require.NoError(t, err)
	assert.Equal(t, rid, newRid)
	got, err = sm.Get(newRid)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	require.NoError(t, sm.Delete(newRid))
	_, err = sm.Get(newRid)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestStorageManagerInsertMany(t *testing.T) {
	sm := newTestStorageManager(t)
	require.NoError(t, sm.CreateContainer(2))

	recs := make([][]byte, 50)
	for i := range recs {
		recs[i] = []byte(fmt.Sprintf("bulk-%d", i))
	}
	rids, err := sm.InsertMany(2, recs)
	require.NoError(t, err)
	require.Len(t, rids, len(recs))
	for i, rid := range rids {
		got, err := sm.Get(rid)
		require.NoError(t, err)
		assert.Equal(t, recs[i], got)
	}
}

func TestStorageManagerIterator(t *testing.T) {
	sm := newTestStorageManager(t)
	require.NoError(t, sm.CreateContainer(4))

	expected := make(map[common.RecordID]string)
	for i := 0; i < 30; i++ {
		rec := fmt.Sprintf("row-%d", i)
		rid, err := sm.Insert(4, []byte(rec))
		require.NoError(t, err)
		expected[rid] = rec
	}

	it, err := sm.Iterator(4)
	require.NoError(t, err)
	seen := make(map[common.RecordID]string)
	for it.Next() {
		seen[it.RecordID()] = string(it.Record())
	}
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
	assert.Equal(t, expected, seen)

	_, err = sm.Iterator(9)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestStorageManagerShutdownReopen(t *testing.T) {
	dir := t.TempDir()
	sm, err := NewStorageManager(dir, 0)
	require.NoError(t, err)

	require.NoError(t, sm.CreateContainer(1))
	require.NoError(t, sm.CreateContainer(7))
	rid1, err := sm.Insert(1, []byte("one"))
	require.NoError(t, err)
	rid7, err := sm.Insert(7, []byte("seven"))
	require.NoError(t, err)
	require.NoError(t, sm.Shutdown())

	// A fresh manager over the same root finds the manifest and reopens both
	// containers.
	sm2, err := NewStorageManager(dir, 0)
	require.NoError(t, err)
	defer func() { require.NoError(t, sm2.Shutdown()) }()

	got, err := sm2.Get(rid1)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
	got, err = sm2.Get(rid7)
	require.NoError(t, err)
	assert.Equal(t, []byte("seven"), got)

	_, err = sm2.GetContainer(2)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestStorageManagerRemoveDropsCachedPages(t *testing.T) {
	sm := newTestStorageManager(t)
	require.NoError(t, sm.CreateContainer(1))

	rid, err := sm.Insert(1, []byte("stale"))
	require.NoError(t, err)
	sm.Cache().Wait()

	require.NoError(t, sm.RemoveContainer(1))

	// A recreated container with the same id starts empty; the cache must not
	// serve pages of the removed one.
	require.NoError(t, sm.CreateContainer(1))
	hf, err := sm.GetContainer(1)
	require.NoError(t, err)
	assert.Equal(t, 0, hf.NumPages())
	_, err = sm.Get(rid)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
