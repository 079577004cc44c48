package artifact

import (
	"fmt"
	"time"

	"github.com/poiesic/voxdex/core"
)

// ChunkHeader records the versions a chunk manifest was produced under.
type ChunkHeader struct {
	core.Versions
	EnrichmentModel string    `json:"enrichment_model"`
	ChunkingConfig  string    `json:"chunking_config"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChunkManifest is the full set of enriched chunks from one corpus.
type ChunkManifest struct {
	Header ChunkHeader  `json:"header"`
	Chunks []core.Chunk `json:"chunks"`
}

// DocIDs returns the distinct doc ids in manifest order.
func (m *ChunkManifest) DocIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range m.Chunks {
		if !seen[c.DocID] {
			seen[c.DocID] = true
			ids = append(ids, c.DocID)
		}
	}
	return ids
}

// CheckVersions compares the header and every row against expected.
func (m *ChunkManifest) CheckVersions(source string, expected core.Versions, enrichmentModel string) error {
	if err := expected.Check(m.Header.Versions); err != nil {
		return withSource(err, source+" header")
	}
	if enrichmentModel != "" && m.Header.EnrichmentModel != enrichmentModel {
		return &core.VersionMismatchError{
			Source:   source + " header",
			Field:    "enrichment_model",
			Expected: enrichmentModel,
			Actual:   m.Header.EnrichmentModel,
		}
	}
	for _, c := range m.Chunks {
		if c.SchemaVersion != expected.ChunkSchema {
			return &core.VersionMismatchError{
				Source:   fmt.Sprintf("%s row %s", source, c.ID),
				Field:    "chunk_schema_version",
				Expected: fmt.Sprint(expected.ChunkSchema),
				Actual:   fmt.Sprint(c.SchemaVersion),
			}
		}
		if c.EnrichmentVersion != expected.ChunkEnrichment {
			return &core.VersionMismatchError{
				Source:   fmt.Sprintf("%s row %s", source, c.ID),
				Field:    "chunk_enrichment_version",
				Expected: fmt.Sprint(expected.ChunkEnrichment),
				Actual:   fmt.Sprint(c.EnrichmentVersion),
			}
		}
	}
	return nil
}

func withSource(err error, source string) error {
	if vm, ok := err.(*core.VersionMismatchError); ok {
		vm.Source = source
		return vm
	}
	return err
}

// WriteChunkManifest writes the chunk manifest to path.
func WriteChunkManifest(path string, m *ChunkManifest) error {
	if err := writeJSON(path, m); err != nil {
		return fmt.Errorf("write chunk manifest: %w", err)
	}
	return nil
}

// ReadChunkManifest reads the chunk manifest at path.
func ReadChunkManifest(path string) (*ChunkManifest, error) {
	var m ChunkManifest
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DocumentManifest holds the enriched record of every document.
type DocumentManifest struct {
	DocumentEnrichmentVersion int                   `json:"document_enrichment_version"`
	CreatedAt                 time.Time             `json:"created_at"`
	Documents                 []core.DocumentRecord `json:"documents"`
}

// WriteDocumentManifest writes the document manifest to path.
func WriteDocumentManifest(path string, m *DocumentManifest) error {
	if err := writeJSON(path, m); err != nil {
		return fmt.Errorf("write document manifest: %w", err)
	}
	return nil
}

// ReadDocumentManifest reads the document manifest at path.
func ReadDocumentManifest(path string) (*DocumentManifest, error) {
	var m DocumentManifest
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
