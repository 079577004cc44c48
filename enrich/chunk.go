package enrich

import (
	"context"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
)

// DefaultClipTokens bounds the chunk text sent to the model.
const DefaultClipTokens = 800

// DocContext is the document-level context included in chunk prompts.
type DocContext struct {
	Title   string
	Summary string
}

// ChunkEnricher fills the enrichment fields of chunks.
type ChunkEnricher struct {
	r          *runner
	tok        chunking.Tokenizer
	clipTokens int
}

// NewChunkEnricher creates a chunk enricher. tok clips chunk text to
// clipTokens before it is sent; zero selects DefaultClipTokens.
func NewChunkEnricher(extractor ai.Extractor, cache storage.EnrichmentCache, tok chunking.Tokenizer, clipTokens int, opts ...Option) (*ChunkEnricher, error) {
	r, err := newRunner(storage.CacheChunk, extractor, cache, core.ChunkEnrichmentVersion, opts)
	if err != nil {
		return nil, err
	}
	if clipTokens <= 0 {
		clipTokens = DefaultClipTokens
	}
	return &ChunkEnricher{r: r, tok: tok, clipTokens: clipTokens}, nil
}

// Version returns the schema version results are stamped with.
func (e *ChunkEnricher) Version() int {
	return e.r.version
}

// Enrich fills chunks in place. Chunks whose enrichment failed keep empty
// summary, intents, sentiment and claims but are still stamped with the
// current version so the manifest stays uniform.
func (e *ChunkEnricher) Enrich(ctx context.Context, chunks []core.Chunk, docs map[string]DocContext) (Stats, error) {
	var t tally

	err := e.r.each(ctx, len(chunks), func(i int) error {
		c := &chunks[i]
		v, o, err := resolve(ctx, e.r, c.ID,
			func() string {
				return chunkInput(c.ID, c.DocID, docs[c.DocID], chunking.Clip(e.tok, c.Text, e.clipTokens))
			},
			DecodeChunk,
			func(v core.ChunkEnrichment) ([]byte, error) { return jsonx.Marshal(v) },
		)
		if err != nil {
			return err
		}
		if o == outcomeFailed {
			v = core.ChunkEnrichment{Intents: []string{}, Claims: []string{}}
		}
		v.Apply(c, e.r.version)
		t.add(c.ID, o)
		return nil
	})
	if err != nil {
		return t.result(), err
	}

	stats := t.result()
	e.r.logger.Info("chunk enrichment complete",
		"chunks", len(chunks),
		"enriched", stats.Enriched,
		"reused", stats.Reused,
		"failed", stats.Failed)
	return stats, nil
}
