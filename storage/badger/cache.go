package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
)

// cacheEntry is the stored form of a cached payload.
type cacheEntry struct {
	Version  int       `json:"version"`
	Data     []byte    `json:"data"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache implements storage.EnrichmentCache on BadgerDB.
type Cache struct {
	backend *Backend
}

var _ storage.EnrichmentCache = (*Cache)(nil)

// NewCache creates an enrichment cache on an open backend.
func NewCache(backend *Backend) storage.EnrichmentCache {
	return newCache(backend)
}

func newCache(backend *Backend) *Cache {
	return &Cache{backend: backend}
}

// Get returns the payload cached for (kind, id, version).
func (c *Cache) Get(ctx context.Context, kind storage.CacheKind, id string, version int) ([]byte, bool, error) {
	var data []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(kind, version, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var entry cacheEntry
			if err := jsonx.Unmarshal(val, &entry); err != nil {
				return err
			}
			data = entry.Data
			return nil
		})
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores a payload unless one already exists and force is unset.
func (c *Cache) Put(ctx context.Context, kind storage.CacheKind, id string, version int, data []byte, force bool) (bool, error) {
	written := false
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(kind, version, id)
		if !force {
			_, err := tx.Get(key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		val, err := jsonx.Marshal(cacheEntry{Version: version, Data: data, CachedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if err := tx.Set(key, val); err != nil {
			return err
		}
		written = true
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent writer stored the same (id, version) first.
		return false, nil
	}
	return written, err
}

// Stats summarizes the cached payloads of kind.
func (c *Cache) Stats(ctx context.Context, kind storage.CacheKind) (*storage.CacheStats, error) {
	stats := &storage.CacheStats{
		Kind:     kind,
		Path:     string(makeCacheKindPrefix(kind)),
		Versions: map[int]int{},
	}
	err := c.backend.Scan(makeCacheKindPrefix(kind), func(key, val []byte) error {
		version, _, ok := parseCacheKey(key, kind)
		if !ok {
			return nil
		}
		var entry cacheEntry
		if err := jsonx.Unmarshal(val, &entry); err != nil {
			return err
		}
		stats.Count++
		stats.Versions[version]++
		if entry.CachedAt.After(stats.LatestModified) {
			stats.LatestModified = entry.CachedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Exists = stats.Count > 0
	return stats, nil
}
