package retrieval

import (
	"github.com/poiesic/voxdex/core"
)

// quoteRunes bounds each supporting quote.
const quoteRunes = 280

func (o *Orchestrator) chunkResults(hits []core.SearchHit) []ChunkResult {
	out := make([]ChunkResult, 0, len(hits))
	for _, h := range hits {
		c, err := o.chunks.Get(h.ChunkID)
		if err != nil {
			continue
		}
		r := ChunkResult{
			ID:           c.ID,
			Snippet:      c.Text,
			Score:        h.Score,
			VectorSource: h.VectorSource,
			SubQuery:     h.SubQuery,
			Summary:      c.Summary,
			Intents:      orEmpty(c.Intents),
			Sentiment:    c.Sentiment,
			Claims:       orEmpty(c.Claims),
			Metadata: ChunkMetadata{
				DocID:    c.DocID,
				KeyTheme: c.KeyTheme,
				Ordinal:  c.Ordinal,
			},
		}
		if doc, ok := o.chunks.Doc(c.DocID); ok {
			r.Metadata.Title = doc.Title
			r.Metadata.UploadDate = doc.UploadDate
			r.Metadata.SourceURL = doc.SourceURL
			r.Metadata.TimeSpan = doc.Enrichment.TimeSpan
		}
		out = append(out, r)
	}
	return out
}

func (o *Orchestrator) clusterResults(clusters []core.EvidenceCluster) []ClusterResult {
	out := make([]ClusterResult, 0, len(clusters))
	for _, c := range clusters {
		quotes := make([]string, 0, len(c.SupportingChunkIDs))
		for _, id := range c.SupportingChunkIDs {
			if chunk, err := o.chunks.Get(id); err == nil {
				quotes = append(quotes, clip(chunk.Text, quoteRunes))
			}
		}
		out = append(out, ClusterResult{
			Key:              c.Key,
			Score:            c.Score,
			Representative:   c.RepresentativeChunkID,
			SupportingIDs:    orEmpty(c.SupportingChunkIDs),
			SupportingQuotes: quotes,
			DocIDs:           c.DocIDs,
		})
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
