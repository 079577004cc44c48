package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

// Key prefixes for different data types
const (
	vectorPrefix     = "vec"
	enrichmentPrefix = "enr"
)

// makeCollectionPrefix generates the prefix shared by every record of a
// collection.
// Format: vec:collection:
func makeCollectionPrefix(collection core.CollectionName) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, collection))
}

// makeVectorKey generates a key for an embedding record.
// Format: vec:collection:id
func makeVectorKey(collection core.CollectionName, id string) []byte {
	return append(makeCollectionPrefix(collection), id...)
}

// makeCacheKindPrefix generates the prefix shared by every cached payload of
// a kind.
// Format: enr:kind:
func makeCacheKindPrefix(kind storage.CacheKind) []byte {
	return []byte(fmt.Sprintf("%s:%s:", enrichmentPrefix, kind))
}

// makeCacheKey generates a key for a cached enrichment payload. The version
// is part of the key so a version bump is a miss without any cleanup.
// Format: enr:kind:version:id
func makeCacheKey(kind storage.CacheKind, version int, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d:%s", enrichmentPrefix, kind, version, id))
}

// parseCacheKey splits a cache key back into version and id.
func parseCacheKey(key []byte, kind storage.CacheKind) (version int, id string, ok bool) {
	rest := strings.TrimPrefix(string(key), string(makeCacheKindPrefix(kind)))
	v, id, found := strings.Cut(rest, ":")
	if !found {
		return 0, "", false
	}
	if _, err := fmt.Sscanf(v, "%d", &version); err != nil {
		return 0, "", false
	}
	return version, id, true
}
