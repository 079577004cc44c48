package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/enrich"
)

// documentProcessor enriches every loaded document.
type documentProcessor struct {
	enricher *enrich.DocumentEnricher
	logger   *slog.Logger
}

var _ processor = (*documentProcessor)(nil)

func (dp *documentProcessor) name() string { return "documents" }

func (dp *documentProcessor) process(ctx context.Context, b *batch) error {
	enrichments, stats, err := dp.enricher.Enrich(ctx, b.inputs)
	if err != nil {
		return fmt.Errorf("enrich documents: %w", err)
	}
	b.enrichments = enrichments
	b.counts.DocsEnriched = stats.Enriched
	b.counts.DocsReused = stats.Reused
	b.counts.DocsFailed = stats.Failed
	if stats.Failed > 0 {
		dp.logger.Warn("documents kept empty enrichment", "failed", stats.Failed, "doc_ids", stats.FailedIDs)
	}
	return nil
}

// chunkProcessor windows every document, tags chunks with the document's
// themes and enriches them.
type chunkProcessor struct {
	chunker  *chunking.Chunker
	enricher *enrich.ChunkEnricher
	logger   *slog.Logger
}

var _ processor = (*chunkProcessor)(nil)

func (cp *chunkProcessor) name() string { return "chunks" }

func (cp *chunkProcessor) process(ctx context.Context, b *batch) error {
	var chunks []core.Chunk
	docs := make(map[string]enrich.DocContext, len(b.inputs))
	for i, in := range b.inputs {
		docID := in.Meta.DocID
		docChunks := cp.chunker.Chunk(docID, in.Analysis.Turns)
		tagKeyThemes(docChunks, b.enrichments[i].KeyThemes)
		chunks = append(chunks, docChunks...)
		docs[docID] = enrich.DocContext{Title: in.Meta.Title, Summary: b.enrichments[i].Summary}
	}
	cp.logger.Info("chunked documents", "documents", len(b.inputs), "chunks", len(chunks))

	stats, err := cp.enricher.Enrich(ctx, chunks, docs)
	if err != nil {
		return fmt.Errorf("enrich chunks: %w", err)
	}
	for i := range chunks {
		if err := core.ValidateChunk(&chunks[i]); err != nil {
			return err
		}
	}
	b.chunks = chunks
	b.counts.Chunks = len(chunks)
	b.counts.ChunksEnriched = stats.Enriched
	b.counts.ChunksReused = stats.Reused
	b.counts.ChunksFailed = stats.Failed
	if stats.Failed > 0 {
		cp.logger.Warn("chunks kept empty enrichment", "failed", stats.Failed)
	}
	return nil
}
