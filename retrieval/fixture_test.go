package retrieval

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
	"github.com/poiesic/voxdex/storage/artifact"
	"github.com/poiesic/voxdex/storage/badger"
)

// fakeEmbedder maps query text to fixed vectors.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	queries []string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if v, ok := f.vectors[query]; ok {
		return v, nil
	}
	return []float32{1, 0, 0, 0}, nil
}

type testChunk struct {
	docID     string
	ordinal   int
	theme     string
	intents   []string
	sentiment string
}

var testChunks = []testChunk{
	{"a", 0, "scaling", []string{"explain scaling laws"}, "optimistic"},
	{"a", 1, "scaling", []string{"predict"}, "cautious"},
	{"b", 0, "safety", []string{"warn about risk"}, "cautious"},
	{"c", 0, "", []string{}, "neutral"},
}

var uploadDates = map[string]string{"a": "20220101", "b": "20230101", "c": "20240101"}

func newChunkSource(t *testing.T) *chunkstore.Store {
	t.Helper()
	return newChunkSourceFrom(t, testChunks)
}

func newChunkSourceFrom(t *testing.T, chunks []testChunk) *chunkstore.Store {
	t.Helper()
	m := &artifact.ChunkManifest{Header: artifact.ChunkHeader{Versions: core.CurrentVersions()}}
	for _, tc := range chunks {
		id := core.ChunkID(tc.docID, tc.ordinal)
		m.Chunks = append(m.Chunks, core.Chunk{
			ID:         id,
			DocID:      tc.docID,
			Ordinal:    tc.ordinal,
			Text:       "Speaker: text of " + id,
			TokenRange: core.Range{Start: 0, End: 4},
			Summary:    "summary of " + id,
			Intents:    tc.intents,
			Sentiment:  tc.sentiment,
			Claims:     []string{},
			KeyTheme:   tc.theme,
		})
	}
	var docs []core.DocumentRecord
	for _, docID := range []string{"a", "b", "c"} {
		docs = append(docs, core.DocumentRecord{
			DocumentMeta: core.DocumentMeta{
				DocID:      docID,
				Title:      "Episode " + docID,
				UploadDate: uploadDates[docID],
				SourceURL:  "https://example.com/" + docID,
			},
			Enrichment: core.DocumentEnrichment{DocID: docID, TimeSpan: "sometime"},
		})
	}
	s, err := chunkstore.New(m, docs)
	require.NoError(t, err)
	return s
}

func vec(id, docID string, field core.SourceField, v ...float32) core.EmbeddingRecord {
	return core.EmbeddingRecord{ID: id, DocID: docID, Vector: v, SourceField: field, EmbeddingSetVersion: core.EmbeddingSetVersion}
}

// newVectorStore loads vectors chosen so that, for the query [1,0,0,0]:
//
//	primary: a0 1.0, a1 0.9, b0 0.5, c0 0.1
//	summary: a0 1.0 (ties primary), b0 0.95
//	intents: a1 0.9 (ties primary)
//	docsum:  c 0.97
func newVectorStore(t *testing.T) storage.VectorStore {
	t.Helper()
	store, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, core.CollectionPrimary,
		vec("a::chunk::0", "a", core.SourceChunkText, 1, 0, 0, 0),
		vec("a::chunk::1", "a", core.SourceChunkText, 0.9, 0, 0, 0),
		vec("b::chunk::0", "b", core.SourceChunkText, 0.5, 0.5, 0, 0),
		vec("c::chunk::0", "c", core.SourceChunkText, 0.1, 0, 0.9, 0),
	))
	require.NoError(t, store.Upsert(ctx, core.CollectionSummary,
		vec("a::chunk::0", "a", core.SourceChunkSummary, 1, 0, 0, 0),
		vec("b::chunk::0", "b", core.SourceChunkSummary, 0.95, 0, 0, 0),
	))
	require.NoError(t, store.Upsert(ctx, core.CollectionIntents,
		vec("a::chunk::1", "a", core.SourceChunkIntents, 0.9, 0, 0, 0),
	))
	require.NoError(t, store.Upsert(ctx, core.CollectionDocSum,
		vec("c", "c", core.SourceDocSummary, 0.97, 0, 0, 0),
	))
	return store
}

func profile(name string, colls ...core.CollectionQuery) core.RetrievalProfile {
	return core.RetrievalProfile{Name: name, Collections: colls, TopK: 10}
}

func newOrchestrator(t *testing.T, store storage.VectorStore, profiles map[core.QuestionType]core.RetrievalProfile, opts ...Option) (*Orchestrator, *fakeEmbedder) {
	t.Helper()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	o, err := New(embedder, store, newChunkSource(t), profiles, opts...)
	require.NoError(t, err)
	return o, embedder
}

func ids(chunks []ChunkResult) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

// docIDs returns the distinct doc ids of chunks in first-seen order.
func docIDs(chunks []ChunkResult) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range chunks {
		if !seen[c.Metadata.DocID] {
			seen[c.Metadata.DocID] = true
			out = append(out, c.Metadata.DocID)
		}
	}
	return out
}

// blockingStore blocks every query until its context ends.
type blockingStore struct {
	storage.VectorStore
}

func (b blockingStore) Query(ctx context.Context, _ core.CollectionName, _ []float32, _ int, _ storage.QueryFilter) ([]core.SearchHit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingStore fails queries against one collection.
type failingStore struct {
	storage.VectorStore
	fail core.CollectionName
}

func (f failingStore) Query(ctx context.Context, coll core.CollectionName, v []float32, topK int, filter storage.QueryFilter) ([]core.SearchHit, error) {
	if coll == f.fail {
		return nil, core.ErrVectorStoreUnavailable
	}
	return f.VectorStore.Query(ctx, coll, v, topK, filter)
}

// recordingMonitor counts stage callbacks.
type recordingMonitor struct {
	noopMonitor
	mu          sync.Mutex
	collections int
	merged      int
	fallbacks   int
	finished    *Response
}

func (m *recordingMonitor) AfterCollectionQuery(_ CollectionUsage, _ []core.SearchHit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections++
}

func (m *recordingMonitor) AfterMerge(hits []core.SearchHit) { m.merged = len(hits) }

func (m *recordingMonitor) DiversityFallback(_ int, _ []core.SearchHit) { m.fallbacks++ }

func (m *recordingMonitor) Finish(resp *Response) { m.finished = resp }
