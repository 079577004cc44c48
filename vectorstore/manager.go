package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

// upsertBatchSize bounds the records written per Upsert call.
const upsertBatchSize = 256

// Sets holds embedding records grouped by the field they were computed from.
type Sets map[core.SourceField][]core.EmbeddingRecord

// Count returns the number of records per field.
func (s Sets) Count() map[core.SourceField]int {
	out := make(map[core.SourceField]int, len(core.SourceFields))
	for _, f := range core.SourceFields {
		out[f] = len(s[f])
	}
	return out
}

// Manager owns the primary, summary, intents and docsum collections.
type Manager struct {
	store  storage.VectorStore
	logger *slog.Logger
}

// NewManager wraps store.
func NewManager(store storage.VectorStore) *Manager {
	return &Manager{
		store:  store,
		logger: slog.Default().With("component", "vectorstore"),
	}
}

// Store returns the underlying vector store for queries.
func (m *Manager) Store() storage.VectorStore {
	return m.store
}

// Rebuild truncates all four collections and inserts sets. Queries issued
// while a rebuild runs may see partial collections.
func (m *Manager) Rebuild(ctx context.Context, sets Sets) (map[core.CollectionName]int, error) {
	for _, coll := range core.Collections {
		if err := m.store.Truncate(ctx, coll); err != nil {
			return nil, fmt.Errorf("truncate %s: %w", coll, err)
		}
	}
	written := make(map[core.CollectionName]int, len(core.Collections))
	for _, field := range core.SourceFields {
		coll := field.Collection()
		if err := m.upsert(ctx, coll, sets[field]); err != nil {
			return nil, err
		}
		written[coll] = len(sets[field])
	}
	m.logger.Info("rebuilt collections",
		"primary", written[core.CollectionPrimary],
		"summary", written[core.CollectionSummary],
		"intents", written[core.CollectionIntents],
		"docsum", written[core.CollectionDocSum])
	return written, nil
}

// Append inserts records whose doc id is not already represented in the
// record's collection. It returns how many records were written per
// collection.
func (m *Manager) Append(ctx context.Context, sets Sets) (map[core.CollectionName]int, error) {
	written := make(map[core.CollectionName]int, len(core.Collections))
	for _, field := range core.SourceFields {
		coll := field.Collection()
		records := sets[field]
		if len(records) == 0 {
			written[coll] = 0
			continue
		}
		existing, err := m.store.DocIDs(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("list %s doc ids: %w", coll, err)
		}
		known := make(map[string]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}
		fresh := make([]core.EmbeddingRecord, 0, len(records))
		for _, r := range records {
			if !known[r.DocID] {
				fresh = append(fresh, r)
			}
		}
		if skipped := len(records) - len(fresh); skipped > 0 {
			m.logger.Warn("skipping records for already indexed documents", "collection", coll, "skipped", skipped)
		}
		if err := m.upsert(ctx, coll, fresh); err != nil {
			return nil, err
		}
		written[coll] = len(fresh)
	}
	return written, nil
}

// KnownDocIDs returns the doc ids in the primary collection, sorted.
func (m *Manager) KnownDocIDs(ctx context.Context) ([]string, error) {
	ids, err := m.store.DocIDs(ctx, core.CollectionPrimary)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// Counts returns the record count of every collection.
func (m *Manager) Counts(ctx context.Context) (map[core.CollectionName]int, error) {
	out := make(map[core.CollectionName]int, len(core.Collections))
	for _, coll := range core.Collections {
		n, err := m.store.Count(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", coll, err)
		}
		out[coll] = n
	}
	return out, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) upsert(ctx context.Context, coll core.CollectionName, records []core.EmbeddingRecord) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		if err := m.store.Upsert(ctx, coll, records[start:end]...); err != nil {
			return fmt.Errorf("upsert %s: %w", coll, err)
		}
	}
	return nil
}
