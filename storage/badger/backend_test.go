package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func record(id, docID string, vec ...float32) core.EmbeddingRecord {
	return core.EmbeddingRecord{
		ID:                  id,
		DocID:               docID,
		Vector:              vec,
		SourceField:         core.SourceChunkText,
		EmbeddingModel:      "test",
		EmbeddingSetVersion: core.EmbeddingSetVersion,
		CreatedAt:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T) (storage.VectorStore, storage.EnrichmentCache) {
	t.Helper()
	store, cache, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store, cache
}

func TestQuery_EmptyCollection(t *testing.T) {
	store, _ := newTestStore(t)

	hits, err := store.Query(context.Background(), core.CollectionPrimary, []float32{1, 0}, 5, storage.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_RanksAndLimits(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary,
		record("a::chunk::0", "a", 1, 0),
		record("a::chunk::1", "a", 0.6, 0.8),
		record("b::chunk::0", "b", 0, 1),
		record("c::chunk::0", "c", 1, 0),
	))

	hits, err := store.Query(ctx, core.CollectionPrimary, []float32{1, 0}, 3, storage.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// Equal scores fall back to id order.
	assert.Equal(t, "a::chunk::0", hits[0].ChunkID)
	assert.Equal(t, "c::chunk::0", hits[1].ChunkID)
	assert.Equal(t, "a::chunk::1", hits[2].ChunkID)
	assert.InDelta(t, 0.6, hits[2].Score, 1e-6)
	assert.Equal(t, core.CollectionPrimary, hits[0].VectorSource)
	assert.Equal(t, "a", hits[0].DocID)
}

func TestQuery_ExcludeDocIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.CollectionSummary,
		record("a::chunk::0", "a", 1, 0),
		record("b::chunk::0", "b", 0.8, 0.6),
	))

	hits, err := store.Query(ctx, core.CollectionSummary, []float32{1, 0}, 5, storage.QueryFilter{ExcludeDocIDs: []string{"a"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].DocID)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary, record("a::chunk::0", "a", 1, 0, 0)))

	_, err := store.Query(ctx, core.CollectionPrimary, []float32{1, 0}, 5, storage.QueryFilter{})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestQuery_InvalidTopK(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Query(context.Background(), core.CollectionPrimary, []float32{1}, 0, storage.QueryFilter{})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCollectionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary, record("a::chunk::0", "a", 1)))
	require.NoError(t, store.Upsert(ctx, core.CollectionDocSum, record("a", "a", 1), record("b", "b", 1)))

	n, err := store.Count(ctx, core.CollectionPrimary)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Truncate(ctx, core.CollectionDocSum))

	n, err = store.Count(ctx, core.CollectionDocSum)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.Count(ctx, core.CollectionPrimary)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertReplacesAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary, record("a::chunk::0", "a", 1, 0)))
	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary, record("a::chunk::0", "a", 0, 1)))

	got, err := store.Get(ctx, core.CollectionPrimary, "a::chunk::0")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)
	assert.Equal(t, core.SourceChunkText, got.SourceField)

	n, err := store.Count(ctx, core.CollectionPrimary)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, core.CollectionPrimary, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary,
		record("b::chunk::0", "b", 1),
		record("a::chunk::0", "a", 1),
		record("a::chunk::1", "a", 1),
	))

	ids, err := store.DocIDs(ctx, core.CollectionPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	store := NewVectorStore(backend)
	require.NoError(t, backend.Close())

	_, err = store.Query(context.Background(), core.CollectionPrimary, []float32{1}, 1, storage.QueryFilter{})
	assert.ErrorIs(t, err, core.ErrVectorStoreUnavailable)
}

func TestCache_VersionedGetPut(t *testing.T) {
	_, cache := newTestStore(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, storage.CacheChunk, "a::chunk::0", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	written, err := cache.Put(ctx, storage.CacheChunk, "a::chunk::0", 3, []byte(`{"x":1}`), false)
	require.NoError(t, err)
	assert.True(t, written)

	data, ok, err := cache.Get(ctx, storage.CacheChunk, "a::chunk::0", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(data))

	// Another version is a miss.
	_, ok, err = cache.Get(ctx, storage.CacheChunk, "a::chunk::0", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	// Kinds are separate.
	_, ok, err = cache.Get(ctx, storage.CacheDocument, "a::chunk::0", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_WriteOnceUnlessForced(t *testing.T) {
	_, cache := newTestStore(t)
	ctx := context.Background()

	_, err := cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"first"`), false)
	require.NoError(t, err)

	written, err := cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"second"`), false)
	require.NoError(t, err)
	assert.False(t, written)
	data, _, _ := cache.Get(ctx, storage.CacheDocument, "ep1", 2)
	assert.Equal(t, `"first"`, string(data))

	written, err = cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"third"`), true)
	require.NoError(t, err)
	assert.True(t, written)
	data, _, _ = cache.Get(ctx, storage.CacheDocument, "ep1", 2)
	assert.Equal(t, `"third"`, string(data))
}

func TestCache_ConcurrentDistinctIDs(t *testing.T) {
	_, cache := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := core.ChunkID("doc", i)
			_, err := cache.Put(ctx, storage.CacheChunk, id, 1, []byte(`{}`), false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := cache.Stats(ctx, storage.CacheChunk)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Count)
	assert.Equal(t, map[int]int{1: 20}, stats.Versions)
	assert.True(t, stats.Exists)
	assert.False(t, stats.LatestModified.IsZero())
}
