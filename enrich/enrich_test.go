package enrich

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/ai/mock"
	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
	"github.com/poiesic/voxdex/storage/fscache"
	"github.com/poiesic/voxdex/transcript"
)

const docPayload = `{"doc_summary":"About scaling.","key_themes":[{"theme":"Scaling","evidence_turn_indices":[0]}],"time_span":"sometime","entities":[{"name":"OpenAI","type":"organization","role":"lab"}]}`

func testChunks(docID string, n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{
			ID:         core.ChunkID(docID, i),
			DocID:      docID,
			Ordinal:    i,
			Text:       "Alice: chunk number " + core.ChunkID(docID, i),
			TokenRange: core.Range{Start: i, End: i + 1},
			Intents:    []string{},
			Claims:     []string{},
		}
	}
	return chunks
}

func newChunkEnricher(t *testing.T, extractor *mock.MockExtractor, cache storage.EnrichmentCache, opts ...Option) *ChunkEnricher {
	t.Helper()
	e, err := NewChunkEnricher(extractor, cache, chunking.NewFieldsTokenizer(), 0, opts...)
	require.NoError(t, err)
	return e
}

func TestChunkEnricherFillsAndCaches(t *testing.T) {
	cache := fscache.New(t.TempDir())
	extractor := mock.NewMockExtractor()
	chunks := testChunks("ep1", 5)

	e := newChunkEnricher(t, extractor, cache, WithWorkers(3))
	stats, err := e.Enrich(context.Background(), chunks, map[string]DocContext{"ep1": {Title: "Episode", Summary: "About scaling."}})
	require.NoError(t, err)

	assert.Equal(t, Stats{Enriched: 5}, stats)
	assert.Equal(t, 5, extractor.CallCount())
	assert.Equal(t, 5, extractor.CallsContaining("Document Summary: About scaling."))
	for _, c := range chunks {
		assert.Equal(t, "summary", c.Summary)
		assert.Equal(t, []string{"explain"}, c.Intents)
		assert.Equal(t, core.ChunkEnrichmentVersion, c.EnrichmentVersion)
	}

	// A second pass is served entirely from cache.
	again := testChunks("ep1", 5)
	stats, err = e.Enrich(context.Background(), again, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Reused: 5}, stats)
	assert.Equal(t, 5, extractor.CallCount())
	assert.Equal(t, chunks, again)
}

func TestChunkEnricherForceRegenerates(t *testing.T) {
	cache := fscache.New(t.TempDir())
	extractor := mock.NewMockExtractor()

	_, err := newChunkEnricher(t, extractor, cache).Enrich(context.Background(), testChunks("ep1", 2), nil)
	require.NoError(t, err)

	stats, err := newChunkEnricher(t, extractor, cache, WithForce(true)).Enrich(context.Background(), testChunks("ep1", 2), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Enriched)
	assert.Equal(t, 4, extractor.CallCount())
}

func TestChunkEnricherVersionBumpIsMiss(t *testing.T) {
	cache := fscache.New(t.TempDir())
	extractor := mock.NewMockExtractor()

	_, err := newChunkEnricher(t, extractor, cache).Enrich(context.Background(), testChunks("ep1", 3), nil)
	require.NoError(t, err)

	bumped := newChunkEnricher(t, extractor, cache, WithVersion(core.ChunkEnrichmentVersion+1))
	chunks := testChunks("ep1", 3)
	stats, err := bumped.Enrich(context.Background(), chunks, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Enriched)
	assert.Equal(t, 6, extractor.CallCount())
	assert.Equal(t, core.ChunkEnrichmentVersion+1, chunks[0].EnrichmentVersion)
}

func TestChunkEnricherIsolatesFailures(t *testing.T) {
	cache := fscache.New(t.TempDir())
	logPath := filepath.Join(t.TempDir(), "logs", "enrichment_errors.jsonl")
	extractor := mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, _, input string) ([]byte, error) {
		if strings.Contains(input, "ep1::chunk::2") {
			return []byte(`{"chunk_summary":"only summary"}`), nil
		}
		return []byte(`{"chunk_summary":"ok","chunk_intents":["x"],"chunk_sentiment":"neutral","chunk_claims":[]}`), nil
	})

	chunks := testChunks("ep1", 4)
	e := newChunkEnricher(t, extractor, cache, WithMaxAttempts(2), WithErrorLog(NewErrorLog(logPath)))
	stats, err := e.Enrich(context.Background(), chunks, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Enriched)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"ep1::chunk::2"}, stats.FailedIDs)
	assert.Equal(t, 2, extractor.CallsContaining("ep1::chunk::2"))

	failed := chunks[2]
	assert.Empty(t, failed.Summary)
	assert.Equal(t, []string{}, failed.Intents)
	assert.Equal(t, core.ChunkEnrichmentVersion, failed.EnrichmentVersion)
	assert.Equal(t, "ok", chunks[3].Summary)

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var rec ErrorRecord
	require.NoError(t, jsonx.Unmarshal(scanner.Bytes(), &rec))
	assert.Equal(t, "ep1::chunk::2", rec.ID)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, storage.CacheChunk, rec.Kind)
	assert.Contains(t, rec.Message, "chunk_intents")
	assert.False(t, scanner.Scan())
}

func TestChunkEnricherRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	extractor := mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, _, _ string) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("timeout")
		}
		return []byte(`{"chunk_summary":"s","chunk_intents":[],"chunk_sentiment":"","chunk_claims":[]}`), nil
	})
	stats, err := newChunkEnricher(t, extractor, fscache.New(t.TempDir())).Enrich(context.Background(), testChunks("ep1", 1), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Enriched: 1}, stats)
	assert.EqualValues(t, 2, calls.Load())
}

func TestChunkEnricherClipsText(t *testing.T) {
	extractor := mock.NewMockExtractor()
	chunks := testChunks("ep1", 1)
	chunks[0].Text = strings.Repeat("word ", 50) + "TAIL"

	e, err := NewChunkEnricher(extractor, fscache.New(t.TempDir()), chunking.NewFieldsTokenizer(), 10)
	require.NoError(t, err)
	_, err = e.Enrich(context.Background(), chunks, nil)
	require.NoError(t, err)
	assert.Zero(t, extractor.CallsContaining("TAIL"))
}

func TestChunkEnricherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	extractor := mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, _, _ string) ([]byte, error) {
		cancel()
		return nil, ctx.Err()
	})
	_, err := newChunkEnricher(t, extractor, fscache.New(t.TempDir()), WithWorkers(1)).Enrich(ctx, testChunks("ep1", 3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEnricherRequiresDependencies(t *testing.T) {
	_, err := NewDocumentEnricher(nil, fscache.New(t.TempDir()))
	assert.ErrorIs(t, err, ErrExtractorRequired)
	_, err = NewChunkEnricher(mock.NewMockExtractor(), nil, chunking.NewFieldsTokenizer(), 0)
	assert.ErrorIs(t, err, ErrCacheRequired)
}

func docInput(t *testing.T, docID, uploadDate string) DocumentInput {
	t.Helper()
	n := transcript.NewNormalizer(chunking.NewFieldsTokenizer())
	return DocumentInput{
		Meta:     core.DocumentMeta{DocID: docID, Title: "Title " + docID, UploadDate: uploadDate},
		Analysis: n.Analyze(docID, "Interviewer: What now?\nSam: Scale it."),
	}
}

func TestDocumentEnricher(t *testing.T) {
	cache := fscache.New(t.TempDir())
	extractor := mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, instructions, input string) ([]byte, error) {
		if strings.Contains(input, "Document ID: broken") {
			return []byte(`not json`), nil
		}
		return []byte(docPayload), nil
	})
	e, err := NewDocumentEnricher(extractor, cache, WithMaxAttempts(1), WithRateLimit(1000))
	require.NoError(t, err)

	docs := []DocumentInput{
		docInput(t, "dated", "20230115"),
		docInput(t, "undated", ""),
		docInput(t, "broken", "20230115"),
	}
	out, stats, err := e.Enrich(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 2, stats.Enriched)
	assert.Equal(t, []string{"broken"}, stats.FailedIDs)

	assert.Equal(t, "dated", out[0].DocID)
	assert.Equal(t, "About scaling.", out[0].Summary)
	assert.Equal(t, "January 2023", out[0].TimeSpan)
	assert.Equal(t, core.DocumentEnrichmentVersion, out[0].Version)
	assert.Equal(t, "sometime", out[1].TimeSpan)

	assert.Empty(t, out[2].Summary)
	assert.Equal(t, []core.Theme{}, out[2].KeyThemes)
	assert.Equal(t, "January 2023", out[2].TimeSpan)

	assert.Equal(t, 3, extractor.CallsContaining("Speaker Stats: Interviewer (1), Sam (1)"))

	// Cached documents are reused on the next pass.
	_, stats, err = e.Enrich(context.Background(), docs[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Reused)
}
