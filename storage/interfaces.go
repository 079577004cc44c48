package storage

import (
	"context"
	"time"

	"github.com/poiesic/voxdex/core"
)

// QueryFilter narrows a similarity query.
type QueryFilter struct {
	// ExcludeDocIDs drops every record owned by one of these documents.
	ExcludeDocIDs []string
}

// Excludes reports whether docID is filtered out.
func (f QueryFilter) Excludes(docID string) bool {
	for _, id := range f.ExcludeDocIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// VectorStore holds the named embedding collections.
// Implementations must be safe for concurrent readers; writes happen only
// during ingestion.
type VectorStore interface {
	// Truncate removes every record from a collection.
	Truncate(ctx context.Context, collection core.CollectionName) error

	// Upsert writes records into a collection, replacing records with the
	// same id.
	Upsert(ctx context.Context, collection core.CollectionName, records ...core.EmbeddingRecord) error

	// Query returns up to topK records most similar to vector, ordered by
	// score descending. Hits carry the record id as ChunkID and the
	// collection as VectorSource. An empty collection is not an error.
	Query(ctx context.Context, collection core.CollectionName, vector []float32, topK int, filter QueryFilter) ([]core.SearchHit, error)

	// Get retrieves a record by id.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, collection core.CollectionName, id string) (*core.EmbeddingRecord, error)

	// DocIDs lists the distinct document ids represented in a collection.
	DocIDs(ctx context.Context, collection core.CollectionName) ([]string, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection core.CollectionName) (int, error)

	// Close releases resources.
	Close() error
}

// CacheKind separates document and chunk enrichment payloads.
type CacheKind string

const (
	CacheDocument CacheKind = "document"
	CacheChunk    CacheKind = "chunk"
)

// CacheStats describes the contents of one cache kind.
type CacheStats struct {
	Kind           CacheKind   `json:"kind"`
	Path           string      `json:"path"`
	Exists         bool        `json:"exists"`
	Count          int         `json:"count"`
	LatestModified time.Time   `json:"latest_modified"`
	Versions       map[int]int `json:"versions"`
}

// EnrichmentCache stores enrichment payloads keyed by (kind, id, version).
// Implementations must tolerate concurrent writers on distinct ids.
type EnrichmentCache interface {
	// Get returns the payload cached for id at exactly version. A payload
	// stored under a different version is a miss.
	Get(ctx context.Context, kind CacheKind, id string, version int) ([]byte, bool, error)

	// Put stores a payload. An existing entry for (id, version) is kept
	// unless force is set. Reports whether anything was written.
	Put(ctx context.Context, kind CacheKind, id string, version int, data []byte, force bool) (bool, error)

	// Stats summarizes what is cached for kind.
	Stats(ctx context.Context, kind CacheKind) (*CacheStats, error)
}
