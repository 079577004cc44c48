package artifact

import (
	"errors"
	"fmt"

	"github.com/poiesic/voxdex/core"
)

// RunLog is the append-only JSONL log of ingestion run summaries.
type RunLog struct {
	path string
}

// NewRunLog creates a run log at path.
func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// Path returns the log location.
func (l *RunLog) Path() string {
	return l.path
}

// Append writes summary as the newest record.
func (l *RunLog) Append(summary *core.RunSummary) error {
	if err := appendLines(l.path, []core.RunSummary{*summary}); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// All returns every record, oldest first. A missing log is empty.
func (l *RunLog) All() ([]core.RunSummary, error) {
	var out []core.RunSummary
	err := readLines(l.path, func(s core.RunSummary) error {
		out = append(out, s)
		return nil
	})
	if errors.Is(err, ErrMissing) {
		return nil, nil
	}
	return out, err
}

// Latest returns the newest record. Returns ErrMissing when no run has been
// logged.
func (l *RunLog) Latest() (*core.RunSummary, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no runs recorded in %s", ErrMissing, l.path)
	}
	return &all[len(all)-1], nil
}

// LatestCompleted returns the newest record that was not skipped.
func (l *RunLog) LatestCompleted() (*core.RunSummary, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Skipped {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no completed runs recorded in %s", ErrMissing, l.path)
}
