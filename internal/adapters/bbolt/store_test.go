package bbolt

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/dashgate/internal/ports"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func makeRecord(i int) ports.AccessRecord {
	return ports.AccessRecord{
		Time:         time.Unix(1700000000+int64(i), 0).UTC(),
		Remote:       "127.0.0.1:5000",
		Method:       "GET",
		Path:         fmt.Sprintf("/file-%d.js", i),
		Status:       200,
		Outcome:      "ok",
		Bytes:        int64(100 + i),
		Duration:     time.Millisecond,
		TokenPresent: true,
	}
}

func TestStore_AppendRecentNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(makeRecord(i)))
	}

	recs, err := store.Recent(3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "/file-4.js", recs[0].Path)
	assert.Equal(t, "/file-3.js", recs[1].Path)
	assert.Equal(t, "/file-2.js", recs[2].Path)
	assert.Equal(t, makeRecord(4), recs[0])
}

func TestStore_RecentEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	recs, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)

	recs, err = store.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, recs)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RecentMoreThanStored(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(makeRecord(0)))

	recs, err := store.Recent(50)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_PruneKeepsNewest(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(makeRecord(i)))
	}

	removed, err := store.Prune(4)
	require.NoError(t, err)
	assert.Equal(t, 6, removed)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	recs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "/file-9.js", recs[0].Path)
	assert.Equal(t, "/file-6.js", recs[3].Path)

	// Nothing left to prune.
	removed, err = store.Prune(4)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_PruneEmptyBucket(t *testing.T) {
	store, _ := newTestStore(t)
	removed, err := store.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_SequenceSurvivesPrune(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(makeRecord(i)))
	}
	_, err := store.Prune(0)
	require.NoError(t, err)
	require.NoError(t, store.Append(makeRecord(99)))

	recs, err := store.Recent(5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/file-99.js", recs[0].Path)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, store.Append(makeRecord(1)))
	require.NoError(t, store.Append(makeRecord(2)))
	require.NoError(t, store.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()

	recs, err := ro.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/file-2.js", recs[0].Path)
}

func TestStore_LockedByWriter(t *testing.T) {
	_, path := newTestStore(t)

	_, err := NewStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(makeRecord(i)))
		}(i)
	}
	wg.Wait()

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
