package chunkstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage/artifact"
)

func chunk(docID string, ordinal int) core.Chunk {
	return core.Chunk{
		ID:                core.ChunkID(docID, ordinal),
		DocID:             docID,
		Ordinal:           ordinal,
		Text:              "text",
		TokenRange:        core.Range{Start: ordinal, End: ordinal + 1},
		Intents:           []string{},
		Claims:            []string{},
		EnrichmentVersion: core.ChunkEnrichmentVersion,
		SchemaVersion:     core.ChunkSchemaVersion,
	}
}

func docRecord(docID string) core.DocumentRecord {
	return core.DocumentRecord{
		DocumentMeta: core.DocumentMeta{DocID: docID, Title: "Title " + docID, UploadDate: "20230101"},
		Enrichment: core.DocumentEnrichment{
			DocID:     docID,
			Summary:   "about " + docID,
			KeyThemes: []core.Theme{},
			Entities:  []core.Entity{},
			Version:   core.DocumentEnrichmentVersion,
		},
	}
}

type fixture struct {
	paths    Paths
	manifest *artifact.ChunkManifest
	docs     *artifact.DocumentManifest
	run      *core.RunSummary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &fixture{
		paths: Paths{
			ChunkManifest:    filepath.Join(dir, "chunks.json"),
			DocumentManifest: filepath.Join(dir, "documents.json"),
			RunLog:           filepath.Join(dir, "logs", "ingestion_summaries.jsonl"),
			Embeddings: map[core.SourceField]string{
				core.SourceChunkText:  filepath.Join(dir, "embeddings", "chunk_text.jsonl"),
				core.SourceDocSummary: filepath.Join(dir, "embeddings", "doc_summary.jsonl"),
			},
		},
		manifest: &artifact.ChunkManifest{
			Header: artifact.ChunkHeader{
				Versions:        core.CurrentVersions(),
				EnrichmentModel: core.EnrichmentModel,
				ChunkingConfig:  "cl100k_base/400/60",
				CreatedAt:       created,
			},
			Chunks: []core.Chunk{chunk("a", 1), chunk("a", 0), chunk("b", 0)},
		},
		docs: &artifact.DocumentManifest{
			DocumentEnrichmentVersion: core.DocumentEnrichmentVersion,
			CreatedAt:                 created,
			Documents:                 []core.DocumentRecord{docRecord("a"), docRecord("b")},
		},
		run: &core.RunSummary{
			RunID:           "01JKRUN",
			Mode:            "rebuild",
			Versions:        core.CurrentVersions(),
			EnrichmentModel: core.EnrichmentModel,
			FinishedAt:      created,
		},
	}
}

func (f *fixture) write(t *testing.T) {
	t.Helper()
	require.NoError(t, artifact.WriteChunkManifest(f.paths.ChunkManifest, f.manifest))
	require.NoError(t, artifact.WriteDocumentManifest(f.paths.DocumentManifest, f.docs))
	if f.run != nil {
		require.NoError(t, artifact.NewRunLog(f.paths.RunLog).Append(f.run))
	}
}

func (f *fixture) load() (*Store, error) {
	return Load(f.paths, core.CurrentVersions(), core.EnrichmentModel)
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.write(t)
	newest := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, artifact.WriteEmbeddings(f.paths.Embeddings[core.SourceChunkText], []core.EmbeddingRecord{
		{ID: "a::chunk::0", DocID: "a", Vector: []float32{1}, SourceField: core.SourceChunkText, EmbeddingModel: "m", EmbeddingSetVersion: core.EmbeddingSetVersion, CreatedAt: newest},
	}))

	s, err := f.load()
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, core.CurrentVersions(), s.Versions())

	c, err := s.Get("a::chunk::1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Ordinal)

	_, err = s.Get("zzz::chunk::0")
	assert.ErrorIs(t, err, ErrChunkNotFound)

	got := s.GetMany([]string{"b::chunk::0", "missing", "a::chunk::0"})
	require.Len(t, got, 2)
	assert.Equal(t, "b::chunk::0", got[0].ID)
	assert.Equal(t, "a::chunk::0", got[1].ID)

	first, ok := s.FirstChunk("a")
	require.True(t, ok)
	assert.Equal(t, "a::chunk::0", first)
	_, ok = s.FirstChunk("nope")
	assert.False(t, ok)

	doc, ok := s.Doc("b")
	require.True(t, ok)
	assert.Equal(t, "about b", doc.Enrichment.Summary)

	assert.ElementsMatch(t, []string{"a", "b"}, s.DocIDs())

	st := s.Status()
	assert.Equal(t, 3, st.Chunks)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, "01JKRUN", st.LatestRun.RunID)
	assert.Equal(t, newest, st.NewestEmbedding)
	assert.True(t, st.Embeddings[core.SourceChunkText].Exists)
	assert.False(t, st.Embeddings[core.SourceDocSummary].Exists)
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
		field  string
	}{
		{
			name:   "header schema version",
			mutate: func(f *fixture) { f.manifest.Header.ChunkSchema-- },
			field:  "chunk_schema_version",
		},
		{
			name:   "header embedding set version",
			mutate: func(f *fixture) { f.manifest.Header.EmbeddingSet++ },
			field:  "embedding_set_version",
		},
		{
			name:   "header enrichment model",
			mutate: func(f *fixture) { f.manifest.Header.EnrichmentModel = "gpt-3.5" },
			field:  "enrichment_model",
		},
		{
			name:   "row enrichment version",
			mutate: func(f *fixture) { f.manifest.Chunks[2].EnrichmentVersion-- },
			field:  "chunk_enrichment_version",
		},
		{
			name:   "document manifest version",
			mutate: func(f *fixture) { f.docs.DocumentEnrichmentVersion-- },
			field:  "document_enrichment_version",
		},
		{
			name:   "document row version",
			mutate: func(f *fixture) { f.docs.Documents[1].Enrichment.Version-- },
			field:  "document_enrichment_version",
		},
		{
			name:   "run log version",
			mutate: func(f *fixture) { f.run.ChunkEnrichment++ },
			field:  "chunk_enrichment_version",
		},
		{
			name:   "run log enrichment model",
			mutate: func(f *fixture) { f.run.EnrichmentModel = "other" },
			field:  "enrichment_model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.mutate(f)
			f.write(t)

			_, err := f.load()
			require.ErrorIs(t, err, core.ErrSchemaVersionMismatch)
			var vm *core.VersionMismatchError
			require.ErrorAs(t, err, &vm)
			assert.Equal(t, tt.field, vm.Field)
			assert.NotEmpty(t, vm.Source)
		})
	}
}

func TestLoadLatestRunWins(t *testing.T) {
	f := newFixture(t)
	f.write(t)
	stale := *f.run
	stale.RunID = "01JKSTALE"
	stale.EmbeddingSet++
	require.NoError(t, artifact.NewRunLog(f.paths.RunLog).Append(&stale))

	_, err := f.load()
	assert.ErrorIs(t, err, core.ErrSchemaVersionMismatch)
}

func TestLoadRequiresRunLog(t *testing.T) {
	f := newFixture(t)
	f.run = nil
	f.write(t)

	_, err := f.load()
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestLoadMissingManifest(t *testing.T) {
	f := newFixture(t)
	_, err := f.load()
	assert.ErrorIs(t, err, artifact.ErrMissing)
}

func TestNewRejectsInconsistentManifest(t *testing.T) {
	f := newFixture(t)

	f.manifest.Chunks = append(f.manifest.Chunks, chunk("a", 0))
	_, err := New(f.manifest, f.docs.Documents)
	assert.ErrorIs(t, err, core.ErrValidation)

	f.manifest.Chunks = []core.Chunk{chunk("orphan", 0)}
	_, err = New(f.manifest, f.docs.Documents)
	assert.ErrorIs(t, err, core.ErrValidation)
}
