package embedding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "chunk_text", 100, 10)
	tracker.Start()

	tracker.Increment(5)
	assert.Empty(t, buf.String(), "should not print under interval")

	tracker.Increment(5)
	assert.Contains(t, buf.String(), "chunk_text: 10/100 (10.0%)")
	assert.Contains(t, buf.String(), "items/s")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "f", 100, 10)
	tracker.Start()
	tracker.Increment(150)
	assert.Equal(t, 100, tracker.Current())
	assert.Contains(t, buf.String(), "100/100 (100.0%)")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "f", 0, 10)
	tracker.Start()
	tracker.Finish()
	assert.Contains(t, buf.String(), "0/0")
	assert.Contains(t, buf.String(), "\n")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "f", 100, 10)
	tracker.Increment(10)
	tracker.Finish()
	assert.Empty(t, buf.String())
}
