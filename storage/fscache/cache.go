// Package fscache implements storage.EnrichmentCache as one JSON file per
// cached entity, laid out as <root>/<kind>/<escaped id>.json.
//
// Each file holds {"version": n, "data": {...}}. Writes go through a
// temporary file and a rename so readers never observe a partial payload.
package fscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
)

type entry struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Cache is a directory-backed enrichment cache.
type Cache struct {
	root string
}

var _ storage.EnrichmentCache = (*Cache)(nil)

// New creates a cache rooted at dir. Directories are created on first write.
func New(dir string) storage.EnrichmentCache {
	return newCache(dir)
}

func newCache(dir string) *Cache {
	return &Cache{root: dir}
}

// FileName returns the file name used for id. The escape is reversible, so
// distinct ids never share a file.
func FileName(id string) string {
	return strings.ReplaceAll(url.PathEscape(id), ":", "%3A") + ".json"
}

func (c *Cache) kindDir(kind storage.CacheKind) string {
	return filepath.Join(c.root, string(kind))
}

func (c *Cache) path(kind storage.CacheKind, id string) string {
	return filepath.Join(c.kindDir(kind), FileName(id))
}

func (c *Cache) read(path string) (*entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e entry
	if err := jsonx.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, path, err)
	}
	return &e, nil
}

// Get returns the cached payload when the file exists and carries version.
// A corrupt file is treated as a miss so the entity is re-enriched.
func (c *Cache) Get(ctx context.Context, kind storage.CacheKind, id string, version int) ([]byte, bool, error) {
	e, err := c.read(c.path(kind, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrSerializationFailed) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if e.Version != version {
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Put writes the payload unless a file for the same version exists and
// force is unset. A file holding another version is overwritten.
func (c *Cache) Put(ctx context.Context, kind storage.CacheKind, id string, version int, data []byte, force bool) (bool, error) {
	path := c.path(kind, id)
	if !force {
		if e, err := c.read(path); err == nil && e.Version == version {
			return false, nil
		}
	}
	if !jsonx.Valid(data) {
		return false, fmt.Errorf("%w: payload for %s is not JSON", storage.ErrSerializationFailed, id)
	}

	body, err := jsonx.MarshalIndent(entry{Version: version, Data: data}, "", "  ")
	if err != nil {
		return false, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Stats counts the cached files of kind and the versions they carry.
func (c *Cache) Stats(ctx context.Context, kind storage.CacheKind) (*storage.CacheStats, error) {
	dir := c.kindDir(kind)
	stats := &storage.CacheStats{Kind: kind, Path: dir, Versions: map[int]int{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stats, nil
		}
		return nil, err
	}
	stats.Exists = true

	var latest time.Time
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, de.Name())
		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		stats.Count++
		if e, err := c.read(path); err == nil {
			stats.Versions[e.Version]++
		}
	}
	stats.LatestModified = latest.UTC()
	return stats, nil
}
