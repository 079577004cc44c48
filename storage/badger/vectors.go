package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
)

// VectorStore implements storage.VectorStore on BadgerDB. Similarity search
// is a brute-force scan of the collection, scoring by dot product of
// L2-normalized vectors.
type VectorStore struct {
	backend *Backend
	owned   bool
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on an open backend. Closing the store
// leaves the backend open.
func NewVectorStore(backend *Backend) storage.VectorStore {
	return newVectorStore(backend, false)
}

// OpenVectorStore opens a BadgerDB vector store at path that owns its backend.
func OpenVectorStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return newVectorStore(backend, true), nil
}

func newVectorStore(backend *Backend, owned bool) *VectorStore {
	return &VectorStore{backend: backend, owned: owned}
}

// Close closes the backend if the store owns it.
func (s *VectorStore) Close() error {
	if s.owned {
		return s.backend.Close()
	}
	return nil
}

func (s *VectorStore) checkOpen() error {
	if s.backend.IsClosed() {
		return fmt.Errorf("%w: %w", core.ErrVectorStoreUnavailable, storage.ErrStorageClosed)
	}
	return nil
}

// Truncate removes every record from a collection.
func (s *VectorStore) Truncate(ctx context.Context, collection core.CollectionName) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.DropPrefix(makeCollectionPrefix(collection))
}

// Upsert writes records into a collection.
func (s *VectorStore) Upsert(ctx context.Context, collection core.CollectionName, records ...core.EmbeddingRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	keys := make([][]byte, len(records))
	values := make([][]byte, len(records))
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("%w: record without id", storage.ErrInvalidQuery)
		}
		val, err := jsonx.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		keys[i] = makeVectorKey(collection, records[i].ID)
		values[i] = val
	}
	return s.backend.WriteBatch(keys, values)
}

// Query scans the collection and returns the topK most similar records.
// Ties are broken by id so results are reproducible.
func (s *VectorStore) Query(ctx context.Context, collection core.CollectionName, vector []float32, topK int, filter storage.QueryFilter) ([]core.SearchHit, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", storage.ErrInvalidQuery)
	}

	var hits []core.SearchHit
	err := s.backend.Scan(makeCollectionPrefix(collection), func(_, val []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec core.EmbeddingRecord
		if err := jsonx.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if filter.Excludes(rec.DocID) || len(rec.Vector) == 0 {
			return nil
		}
		if len(rec.Vector) != len(vector) {
			return fmt.Errorf("%w: %s has %d dimensions, query has %d",
				storage.ErrDimensionMismatch, rec.ID, len(rec.Vector), len(vector))
		}
		hits = append(hits, core.SearchHit{
			ChunkID:      rec.ID,
			DocID:        rec.DocID,
			Score:        dotProduct(vector, rec.Vector),
			VectorSource: collection,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(hits, func(a, b core.SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Get retrieves a record by id.
func (s *VectorStore) Get(ctx context.Context, collection core.CollectionName, id string) (*core.EmbeddingRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var rec *core.EmbeddingRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(collection, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &core.EmbeddingRecord{}
			return jsonx.Unmarshal(val, rec)
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DocIDs lists the distinct document ids in a collection.
func (s *VectorStore) DocIDs(ctx context.Context, collection core.CollectionName) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	err := s.backend.Scan(makeCollectionPrefix(collection), func(_, val []byte) error {
		var rec struct {
			DocID string `json:"doc_id"`
		}
		if err := jsonx.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		seen[rec.DocID] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// Count returns the number of records in a collection.
func (s *VectorStore) Count(ctx context.Context, collection core.CollectionName) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.backend.CountPrefix(makeCollectionPrefix(collection))
}
