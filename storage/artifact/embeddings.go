package artifact

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/voxdex/core"
)

// WriteEmbeddings replaces the embedding artifact at path with records.
func WriteEmbeddings(path string, records []core.EmbeddingRecord) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := appendLines(path, records); err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}
	return nil
}

// AppendEmbeddings appends records to the artifact at path. Every existing
// record must carry embeddingSetVersion; mixing versions in one artifact is
// refused.
func AppendEmbeddings(path string, records []core.EmbeddingRecord, embeddingSetVersion int) error {
	err := readLines(path, func(r core.EmbeddingRecord) error {
		if r.EmbeddingSetVersion != embeddingSetVersion {
			return &core.VersionMismatchError{
				Source:   path,
				Field:    "embedding_set_version",
				Expected: fmt.Sprint(embeddingSetVersion),
				Actual:   fmt.Sprint(r.EmbeddingSetVersion),
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrMissing) {
		return err
	}
	if err := appendLines(path, records); err != nil {
		return fmt.Errorf("append embeddings: %w", err)
	}
	return nil
}

// ReadEmbeddings loads every record of the artifact at path.
func ReadEmbeddings(path string) ([]core.EmbeddingRecord, error) {
	var out []core.EmbeddingRecord
	err := readLines(path, func(r core.EmbeddingRecord) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// EmbeddingSummary describes one embedding artifact without its vectors.
type EmbeddingSummary struct {
	Path     string      `json:"path"`
	Exists   bool        `json:"exists"`
	Count    int         `json:"count"`
	Newest   time.Time   `json:"newest_created_at"`
	Versions map[int]int `json:"versions"`
	Models   []string    `json:"models"`
}

// SummarizeEmbeddings scans the artifact at path. A missing artifact is
// reported with Exists false rather than as an error.
func SummarizeEmbeddings(path string) (*EmbeddingSummary, error) {
	s := &EmbeddingSummary{Path: path, Versions: map[int]int{}}
	models := map[string]bool{}
	err := readLines(path, func(r core.EmbeddingRecord) error {
		s.Count++
		s.Versions[r.EmbeddingSetVersion]++
		if r.CreatedAt.After(s.Newest) {
			s.Newest = r.CreatedAt
		}
		if !models[r.EmbeddingModel] {
			models[r.EmbeddingModel] = true
			s.Models = append(s.Models, r.EmbeddingModel)
		}
		return nil
	})
	if errors.Is(err, ErrMissing) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.Exists = true
	return s, nil
}
