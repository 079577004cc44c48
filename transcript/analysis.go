package transcript

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/voxdex/core"
)

// Analysis is a normalized transcript and the statistics the auditor and
// the document enricher need.
type Analysis struct {
	DocID         string
	Text          string
	Turns         []core.SpeakerTurn
	MatchedLines  int
	NonEmptyLines int
	TokenCount    int
	SpeakerCounts map[string]int
}

// SpeakerCoverage is the fraction of non-empty lines that carried a speaker
// label.
func (a *Analysis) SpeakerCoverage() float64 {
	if a.NonEmptyLines == 0 {
		return 0
	}
	return float64(a.MatchedLines) / float64(a.NonEmptyLines)
}

// Snippet samples up to sampleSize turns from the head, middle and tail of
// the transcript, rendered as "[index] Speaker: text" lines.
func (a *Analysis) Snippet(sampleSize int) string {
	total := len(a.Turns)
	if total == 0 || sampleSize <= 0 {
		return ""
	}

	var indices []int
	for i := 0; i < min(sampleSize, total); i++ {
		indices = append(indices, i)
	}
	if total > sampleSize*2 {
		mid := max(total/2-sampleSize/2, 0)
		for i := mid; i < min(mid+sampleSize, total); i++ {
			indices = append(indices, i)
		}
	}
	for i := max(total-sampleSize, 0); i < total; i++ {
		indices = append(indices, i)
	}

	seen := make(map[int]bool, len(indices))
	var lines []string
	for _, i := range indices {
		if seen[i] {
			continue
		}
		seen[i] = true
		t := a.Turns[i]
		lines = append(lines, fmt.Sprintf("[%d] %s: %s", t.Index, t.Speaker, t.Text))
	}
	return strings.Join(lines, "\n")
}

// SpeakerSummary renders speaker counts as "Name (n), ..." sorted by name.
func (a *Analysis) SpeakerSummary() string {
	names := make([]string, 0, len(a.SpeakerCounts))
	for name := range a.SpeakerCounts {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (%d)", name, a.SpeakerCounts[name])
	}
	return strings.Join(parts, ", ")
}
