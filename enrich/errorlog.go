package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
)

// ErrorRecord is one line of the enrichment error log.
type ErrorRecord struct {
	Kind      storage.CacheKind `json:"kind"`
	ID        string            `json:"id"`
	Attempts  int               `json:"attempts"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
}

// ErrorLog appends failed items to a JSONL file. A zero path disables it.
type ErrorLog struct {
	path string
	mu   sync.Mutex
}

// NewErrorLog creates an error log at path.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Record appends one failure.
func (l *ErrorLog) Record(kind storage.CacheKind, id string, attempts int, cause error) error {
	if l == nil || l.path == "" {
		return nil
	}
	rec := ErrorRecord{
		Kind:      kind,
		ID:        id,
		Attempts:  attempts,
		Message:   cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	line, err := jsonx.Marshal(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open enrichment error log: %w", err)
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}
