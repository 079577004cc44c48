package embedding

import (
	"strings"

	"github.com/poiesic/voxdex/core"
)

// Item is one text to embed and the record identity it belongs to.
type Item struct {
	ID    string
	DocID string
	Text  string
}

// ChunkTextItems embeds every chunk's text.
func ChunkTextItems(chunks []core.Chunk) []Item {
	items := make([]Item, 0, len(chunks))
	for _, c := range chunks {
		items = append(items, Item{ID: c.ID, DocID: c.DocID, Text: c.Text})
	}
	return items
}

// ChunkSummaryItems embeds chunk summaries, skipping chunks without one.
func ChunkSummaryItems(chunks []core.Chunk) []Item {
	var items []Item
	for _, c := range chunks {
		if s := strings.TrimSpace(c.Summary); s != "" {
			items = append(items, Item{ID: c.ID, DocID: c.DocID, Text: s})
		}
	}
	return items
}

// ChunkIntentItems embeds each chunk's intents joined with "; ", skipping
// chunks without intents.
func ChunkIntentItems(chunks []core.Chunk) []Item {
	var items []Item
	for _, c := range chunks {
		var intents []string
		for _, in := range c.Intents {
			if in = strings.TrimSpace(in); in != "" {
				intents = append(intents, in)
			}
		}
		if len(intents) == 0 {
			continue
		}
		items = append(items, Item{ID: c.ID, DocID: c.DocID, Text: strings.Join(intents, "; ")})
	}
	return items
}

// DocSummaryItems embeds each document summary once. Record ids are doc ids.
func DocSummaryItems(docs []core.DocumentEnrichment) []Item {
	var items []Item
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		s := strings.TrimSpace(d.Summary)
		if s == "" || seen[d.DocID] {
			continue
		}
		seen[d.DocID] = true
		items = append(items, Item{ID: d.DocID, DocID: d.DocID, Text: s})
	}
	return items
}

// Items builds the items for one source field.
func Items(field core.SourceField, chunks []core.Chunk, docs []core.DocumentEnrichment) []Item {
	switch field {
	case core.SourceChunkSummary:
		return ChunkSummaryItems(chunks)
	case core.SourceChunkIntents:
		return ChunkIntentItems(chunks)
	case core.SourceDocSummary:
		return DocSummaryItems(docs)
	default:
		return ChunkTextItems(chunks)
	}
}
