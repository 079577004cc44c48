package fscache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "ep1%3A%3Achunk%3A%3A3.json", FileName("ep1::chunk::3"))
	assert.Equal(t, "a%2Fb.json", FileName("a/b"))
	assert.Equal(t, "a%5Cb.json", FileName(`a\b`))

	names := map[string]string{}
	for _, id := range []string{"a:b", "a_b", "a/b", `a\b`, "a%3Ab", "a%2Fb"} {
		name := FileName(id)
		assert.NotContains(t, names, name, "%q and %q share a file", id, names[name])
		names[name] = id
	}
}

func TestSimilarIDsDoNotCollide(t *testing.T) {
	cache := New(t.TempDir())
	ctx := context.Background()

	_, err := cache.Put(ctx, storage.CacheDocument, "a:b", 1, []byte(`{"doc_summary":"colon"}`), false)
	require.NoError(t, err)
	written, err := cache.Put(ctx, storage.CacheDocument, "a_b", 1, []byte(`{"doc_summary":"underscore"}`), false)
	require.NoError(t, err)
	assert.True(t, written)

	data, ok, err := cache.Get(ctx, storage.CacheDocument, "a:b", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"doc_summary":"colon"}`, string(data))
}

func TestGetPut(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, storage.CacheChunk, "ep1::chunk::0", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	written, err := cache.Put(ctx, storage.CacheChunk, "ep1::chunk::0", 3, []byte(`{"chunk_summary":"s"}`), false)
	require.NoError(t, err)
	assert.True(t, written)

	data, ok, err := cache.Get(ctx, storage.CacheChunk, "ep1::chunk::0", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"chunk_summary":"s"}`, string(data))

	raw, err := os.ReadFile(filepath.Join(dir, "chunk", FileName("ep1::chunk::0")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3,"data":{"chunk_summary":"s"}}`, string(raw))
}

func TestVersionMismatchIsMiss(t *testing.T) {
	cache := New(t.TempDir())
	ctx := context.Background()

	_, err := cache.Put(ctx, storage.CacheDocument, "ep1", 1, []byte(`{}`), false)
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, storage.CacheDocument, "ep1", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// A new version overwrites the stale file without force.
	written, err := cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`{"v":2}`), false)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestWriteOnceUnlessForced(t *testing.T) {
	cache := New(t.TempDir())
	ctx := context.Background()

	_, err := cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"a"`), false)
	require.NoError(t, err)
	written, err := cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"b"`), false)
	require.NoError(t, err)
	assert.False(t, written)

	data, _, err := cache.Get(ctx, storage.CacheDocument, "ep1", 2)
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(data))

	written, err = cache.Put(ctx, storage.CacheDocument, "ep1", 2, []byte(`"c"`), true)
	require.NoError(t, err)
	assert.True(t, written)
	data, _, err = cache.Get(ctx, storage.CacheDocument, "ep1", 2)
	require.NoError(t, err)
	assert.Equal(t, `"c"`, string(data))
}

func TestRejectsInvalidPayload(t *testing.T) {
	cache := New(t.TempDir())
	_, err := cache.Put(context.Background(), storage.CacheChunk, "x", 1, []byte(`{broken`), false)
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

func TestCorruptFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chunk"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunk", "x.json"), []byte("not json"), 0o644))

	_, ok, err := New(dir).Get(context.Background(), storage.CacheChunk, "x", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	cache := New(t.TempDir())
	ctx := context.Background()

	stats, err := cache.Stats(ctx, storage.CacheChunk)
	require.NoError(t, err)
	assert.False(t, stats.Exists)
	assert.Zero(t, stats.Count)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			version := 3
			if i%2 == 0 {
				version = 2
			}
			_, err := cache.Put(ctx, storage.CacheChunk, core.ChunkID("ep", i), version, []byte(`{}`), false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err = cache.Stats(ctx, storage.CacheChunk)
	require.NoError(t, err)
	assert.True(t, stats.Exists)
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, map[int]int{2: 5, 3: 5}, stats.Versions)
	assert.False(t, stats.LatestModified.IsZero())
}
