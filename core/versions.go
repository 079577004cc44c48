package core

import "fmt"

// Schema versions baked into this build. Served artifacts must carry exactly
// these values; bump one whenever the shape or semantics of the corresponding
// artifact changes and rerun a rebuild.
const (
	ChunkSchemaVersion        = 3
	DocumentEnrichmentVersion = 2
	ChunkEnrichmentVersion    = 3
	EmbeddingSetVersion       = 2

	// EnrichmentModel is the model that produced the enrichment payloads the
	// current versions describe.
	EnrichmentModel = "gpt-4.1-mini"
)

// Versions is the set of artifact version tags recorded on manifests and run
// summaries.
type Versions struct {
	ChunkSchema        int `json:"chunk_schema_version" yaml:"chunk_schema_version"`
	DocumentEnrichment int `json:"document_enrichment_version" yaml:"document_enrichment_version"`
	ChunkEnrichment    int `json:"chunk_enrichment_version" yaml:"chunk_enrichment_version"`
	EmbeddingSet       int `json:"embedding_set_version" yaml:"embedding_set_version"`
}

// CurrentVersions returns the versions compiled into this build.
func CurrentVersions() Versions {
	return Versions{
		ChunkSchema:        ChunkSchemaVersion,
		DocumentEnrichment: DocumentEnrichmentVersion,
		ChunkEnrichment:    ChunkEnrichmentVersion,
		EmbeddingSet:       EmbeddingSetVersion,
	}
}

// Check compares actual against v and returns a *VersionMismatchError for the
// first field that differs, or nil when all four match.
func (v Versions) Check(actual Versions) error {
	fields := []struct {
		name             string
		expected, actual int
	}{
		{"chunk_schema_version", v.ChunkSchema, actual.ChunkSchema},
		{"document_enrichment_version", v.DocumentEnrichment, actual.DocumentEnrichment},
		{"chunk_enrichment_version", v.ChunkEnrichment, actual.ChunkEnrichment},
		{"embedding_set_version", v.EmbeddingSet, actual.EmbeddingSet},
	}
	for _, f := range fields {
		if f.expected != f.actual {
			return &VersionMismatchError{
				Field:    f.name,
				Expected: fmt.Sprint(f.expected),
				Actual:   fmt.Sprint(f.actual),
			}
		}
	}
	return nil
}
