package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/embedding"
	"github.com/poiesic/voxdex/vectorstore"
)

// embeddingProcessor embeds the four source fields of a batch.
type embeddingProcessor struct {
	client *embedding.Client
	logger *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func (ep *embeddingProcessor) name() string { return "embeddings" }

// process embeds each field in turn. Any exhausted batch fails the run
// before the vector store or artifacts are touched.
func (ep *embeddingProcessor) process(ctx context.Context, b *batch) error {
	sets := make(vectorstore.Sets, len(core.SourceFields))
	for _, field := range core.SourceFields {
		items := embedding.Items(field, b.chunks, b.enrichments)
		ep.logger.Debug("embedding field", "field", field, "items", len(items))
		records, err := ep.client.Embed(ctx, field, items)
		if err != nil {
			return fmt.Errorf("embed %s: %w", field, err)
		}
		sets[field] = records
	}
	b.sets = sets
	b.counts.Embeddings = sets.Count()
	return nil
}
