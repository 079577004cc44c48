package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDRoundTrip(t *testing.T) {
	id := ChunkID("2023-01-15_interview", 7)
	assert.Equal(t, "2023-01-15_interview::chunk::7", id)

	doc, ordinal, err := ParseChunkID(id)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15_interview", doc)
	assert.Equal(t, 7, ordinal)
}

func TestParseChunkIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "doc", "::chunk::1", "doc::chunk::x", "doc::chunk::-2"} {
		t.Run(id, func(t *testing.T) {
			_, _, err := ParseChunkID(id)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestIDFromContent(t *testing.T) {
	assert.Equal(t, IDFromContent("a::chunk::0"), IDFromContent("a::chunk::0"))
	assert.NotEqual(t, IDFromContent("a::chunk::0"), IDFromContent("a::chunk::1"))
}

func TestDocIDFromFilename(t *testing.T) {
	assert.Equal(t, "episode-12", DocIDFromFilename("/data/transcripts/episode-12.txt"))
	assert.Equal(t, "episode-12", DocIDFromFilename("episode-12.json"))
}

func TestRange(t *testing.T) {
	r := Range{Start: 2, End: 5}
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
	assert.False(t, r.Contains(1))
}

func TestCollections(t *testing.T) {
	t.Run("each source field has its own collection", func(t *testing.T) {
		seen := map[CollectionName]bool{}
		for _, f := range SourceFields {
			seen[f.Collection()] = true
		}
		assert.Len(t, seen, len(Collections))
	})

	t.Run("priority follows tie-break order", func(t *testing.T) {
		assert.Less(t, CollectionPrimary.Priority(), CollectionSummary.Priority())
		assert.Less(t, CollectionSummary.Priority(), CollectionIntents.Priority())
		assert.Less(t, CollectionIntents.Priority(), CollectionDocSum.Priority())
		assert.False(t, CollectionName("bogus").Valid())
	})
}

func TestChunkEnrichmentApply(t *testing.T) {
	c := Chunk{ID: "a::chunk::0"}
	ChunkEnrichment{Summary: "s", Intents: []string{"i"}, Sentiment: "neutral", Claims: []string{"c"}}.Apply(&c, 3)
	assert.Equal(t, "s", c.Summary)
	assert.Equal(t, []string{"i"}, c.Intents)
	assert.Equal(t, 3, c.EnrichmentVersion)
}

func TestVersionsCheck(t *testing.T) {
	current := CurrentVersions()
	require.NoError(t, current.Check(current))

	stale := current
	stale.ChunkEnrichment--
	err := current.Check(stale)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaVersionMismatch)

	var mismatch *VersionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "chunk_enrichment_version", mismatch.Field)
	assert.Contains(t, err.Error(), "rebuild")
}

func TestParseQuestionType(t *testing.T) {
	qt, err := ParseQuestionType("  Analytical ")
	require.NoError(t, err)
	assert.Equal(t, QuestionAnalytical, qt)

	_, err = ParseQuestionType("rhetorical")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()
	for _, qt := range QuestionTypes {
		p, ok := profiles[qt]
		require.True(t, ok, "no profile for %s", qt)
		assert.NoError(t, p.Validate(), qt)
	}
}

func TestRetrievalProfileValidate(t *testing.T) {
	base := RetrievalProfile{Name: "x", Collections: []CollectionQuery{{Name: CollectionPrimary, TopK: 3}}, TopK: 3}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(p *RetrievalProfile)
	}{
		{"no name", func(p *RetrievalProfile) { p.Name = "" }},
		{"no collections", func(p *RetrievalProfile) { p.Collections = nil }},
		{"unknown collection", func(p *RetrievalProfile) { p.Collections = []CollectionQuery{{Name: "nope", TopK: 1}} }},
		{"collection top_k", func(p *RetrievalProfile) { p.Collections = []CollectionQuery{{Name: CollectionPrimary}} }},
		{"top_k", func(p *RetrievalProfile) { p.TopK = 0 }},
		{"min_docs", func(p *RetrievalProfile) { p.MinDocs = -1 }},
		{"strategy", func(p *RetrievalProfile) { p.Clustering = &ClusteringConfig{Strategy: "topic", MaxClusters: 2} }},
		{"max_clusters", func(p *RetrievalProfile) { p.Clustering = &ClusteringConfig{Strategy: ClusterByDoc} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrValidation)
		})
	}
}
