package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/core"
)

func chunk(docID string, ordinal int) core.Chunk {
	return core.Chunk{
		ID:                core.ChunkID(docID, ordinal),
		DocID:             docID,
		Ordinal:           ordinal,
		Text:              "text",
		TokenRange:        core.Range{Start: 0, End: 1},
		Intents:           []string{},
		Claims:            []string{},
		EnrichmentVersion: core.ChunkEnrichmentVersion,
		SchemaVersion:     core.ChunkSchemaVersion,
	}
}

func manifest(chunks ...core.Chunk) *ChunkManifest {
	return &ChunkManifest{
		Header: ChunkHeader{
			Versions:        core.CurrentVersions(),
			EnrichmentModel: core.EnrichmentModel,
			CreatedAt:       time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		Chunks: chunks,
	}
}

func TestChunkManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "chunks.json")
	m := manifest(chunk("a", 0), chunk("a", 1), chunk("b", 0))

	require.NoError(t, WriteChunkManifest(path, m))
	got, err := ReadChunkManifest(path)
	require.NoError(t, err)

	assert.Equal(t, m.Header, got.Header)
	assert.Equal(t, m.Chunks, got.Chunks)
	assert.Equal(t, []string{"a", "b"}, got.DocIDs())
}

func TestChunkManifestDeterministicBytes(t *testing.T) {
	dir := t.TempDir()
	m := manifest(chunk("a", 0))
	require.NoError(t, WriteChunkManifest(filepath.Join(dir, "one.json"), m))
	require.NoError(t, WriteChunkManifest(filepath.Join(dir, "two.json"), m))

	one, err := os.ReadFile(filepath.Join(dir, "one.json"))
	require.NoError(t, err)
	two, err := os.ReadFile(filepath.Join(dir, "two.json"))
	require.NoError(t, err)
	assert.Equal(t, one, two)
}

func TestReadChunkManifestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadChunkManifest(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrMissing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadChunkManifest(bad)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCheckVersions(t *testing.T) {
	expected := core.CurrentVersions()

	t.Run("match", func(t *testing.T) {
		assert.NoError(t, manifest(chunk("a", 0)).CheckVersions("chunks.json", expected, core.EnrichmentModel))
	})

	t.Run("header", func(t *testing.T) {
		m := manifest(chunk("a", 0))
		m.Header.EmbeddingSet = expected.EmbeddingSet - 1
		err := m.CheckVersions("chunks.json", expected, core.EnrichmentModel)
		var vm *core.VersionMismatchError
		require.ErrorAs(t, err, &vm)
		assert.Equal(t, "embedding_set_version", vm.Field)
		assert.Equal(t, "chunks.json header", vm.Source)
		assert.ErrorIs(t, err, core.ErrSchemaVersionMismatch)
	})

	t.Run("model", func(t *testing.T) {
		m := manifest(chunk("a", 0))
		m.Header.EnrichmentModel = "older-model"
		var vm *core.VersionMismatchError
		require.ErrorAs(t, m.CheckVersions("chunks.json", expected, core.EnrichmentModel), &vm)
		assert.Equal(t, "enrichment_model", vm.Field)
	})

	t.Run("row", func(t *testing.T) {
		stale := chunk("a", 1)
		stale.EnrichmentVersion = expected.ChunkEnrichment - 1
		m := manifest(chunk("a", 0), stale)
		var vm *core.VersionMismatchError
		require.ErrorAs(t, m.CheckVersions("chunks.json", expected, ""), &vm)
		assert.Equal(t, "chunk_enrichment_version", vm.Field)
		assert.Contains(t, vm.Source, "a::chunk::1")
	})
}

func TestDocumentManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.json")
	m := &DocumentManifest{
		DocumentEnrichmentVersion: core.DocumentEnrichmentVersion,
		Documents: []core.DocumentRecord{{
			DocumentMeta: core.DocumentMeta{DocID: "a", Title: "A"},
			Enrichment:   core.DocumentEnrichment{DocID: "a", Summary: "about a"},
			TurnCount:    3,
		}},
	}
	require.NoError(t, WriteDocumentManifest(path, m))
	got, err := ReadDocumentManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "about a", got.Documents[0].Enrichment.Summary)
	assert.Equal(t, "A", got.Documents[0].Title)
}

func embedding(id string, version int, at time.Time) core.EmbeddingRecord {
	return core.EmbeddingRecord{
		ID:                  id,
		DocID:               "a",
		Vector:              []float32{0.5, 0.5},
		SourceField:         core.SourceChunkText,
		EmbeddingModel:      "m",
		EmbeddingSetVersion: version,
		CreatedAt:           at,
	}
}

func TestEmbeddingsWriteAppendSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings", "chunk_text.jsonl")
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, AppendEmbeddings(path, []core.EmbeddingRecord{embedding("a::chunk::0", 2, t1)}, 2))
	require.NoError(t, AppendEmbeddings(path, []core.EmbeddingRecord{embedding("a::chunk::1", 2, t2)}, 2))

	recs, err := ReadEmbeddings(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []float32{0.5, 0.5}, recs[1].Vector)

	sum, err := SummarizeEmbeddings(path)
	require.NoError(t, err)
	assert.True(t, sum.Exists)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, t2, sum.Newest)
	assert.Equal(t, map[int]int{2: 2}, sum.Versions)

	// Rewrite replaces.
	require.NoError(t, WriteEmbeddings(path, []core.EmbeddingRecord{embedding("b::chunk::0", 2, t1)}))
	recs, err = ReadEmbeddings(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestAppendEmbeddingsRefusesMixedVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_text.jsonl")
	require.NoError(t, WriteEmbeddings(path, []core.EmbeddingRecord{embedding("a::chunk::0", 1, time.Now())}))

	err := AppendEmbeddings(path, []core.EmbeddingRecord{embedding("a::chunk::1", 2, time.Now())}, 2)
	assert.ErrorIs(t, err, core.ErrSchemaVersionMismatch)

	recs, err := ReadEmbeddings(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSummarizeMissingEmbeddings(t *testing.T) {
	sum, err := SummarizeEmbeddings(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.False(t, sum.Exists)
	assert.Zero(t, sum.Count)
}

func TestRunLog(t *testing.T) {
	log := NewRunLog(filepath.Join(t.TempDir(), "logs", "runs.jsonl"))

	_, err := log.Latest()
	assert.ErrorIs(t, err, ErrMissing)

	require.NoError(t, log.Append(&core.RunSummary{RunID: "one", Mode: "rebuild", Versions: core.CurrentVersions()}))
	require.NoError(t, log.Append(&core.RunSummary{RunID: "two", Mode: "append", Skipped: true}))

	latest, err := log.Latest()
	require.NoError(t, err)
	assert.Equal(t, "two", latest.RunID)

	completed, err := log.LatestCompleted()
	require.NoError(t, err)
	assert.Equal(t, "one", completed.RunID)
	assert.Equal(t, core.CurrentVersions(), completed.Versions)

	all, err := log.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
