package transcript

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(chunking.NewFieldsTokenizer(), WithAliases(map[string]string{
		"Sam":        "Sam Altman",
		"sam altman": "Sam Altman",
		"s. altman":  "Sam Altman",
	}))
}

func TestNormalizeText(t *testing.T) {
	in := "  Host: hi \r\n\r\n\tSam: hello\rthere  \n\n"
	assert.Equal(t, "Host: hi\nSam: hello\nthere", NormalizeText(in))
	assert.Equal(t, "", NormalizeText(" \n\r\n "))
}

func TestAnalyzeMergesAndCanonicalizes(t *testing.T) {
	n := newTestNormalizer()
	text := strings.Join([]string{
		"sam: We started small.",
		"S. Altman: Then it grew.",
		"interviewer: Why?",
		"SPEAKER: Because.",
		"host: Right.",
		"Sam Altman: Compute mattered.",
	}, "\n")

	a := n.Analyze("ep1", text)

	require.Len(t, a.Turns, 4)
	assert.Equal(t, "Sam Altman", a.Turns[0].Speaker)
	assert.Equal(t, "We started small. Then it grew.", a.Turns[0].Text)
	assert.Equal(t, "Interviewer", a.Turns[1].Speaker)
	assert.Equal(t, UnknownSpeaker, a.Turns[2].Speaker)
	assert.Equal(t, "Because. Right.", a.Turns[2].Text)
	assert.Equal(t, "Sam Altman", a.Turns[3].Speaker)
	for i, turn := range a.Turns {
		assert.Equal(t, i, turn.Index)
	}
	assert.Equal(t, 6, a.MatchedLines)
	assert.Equal(t, 6, a.NonEmptyLines)
	assert.InDelta(t, 1.0, a.SpeakerCoverage(), 1e-9)
	assert.Equal(t, map[string]int{"Sam Altman": 2, "Interviewer": 1, UnknownSpeaker: 1}, a.SpeakerCounts)
}

func TestAnalyzeFoldsUnlabeledText(t *testing.T) {
	n := newTestNormalizer()
	a := n.Analyze("ep2", "Host: Welcome.\nsome stray caption\nanother caption\nSam: Thanks.")

	require.Len(t, a.Turns, 2)
	assert.Equal(t, UnknownSpeaker, a.Turns[0].Speaker)
	assert.Equal(t, "Welcome. some stray caption another caption", a.Turns[0].Text)
	assert.Equal(t, "Sam Altman", a.Turns[1].Speaker)
	assert.Equal(t, 2, a.MatchedLines)
	assert.Equal(t, 4, a.NonEmptyLines)
	assert.InDelta(t, 0.5, a.SpeakerCoverage(), 1e-9)
}

func TestAnalyzeCharOffsets(t *testing.T) {
	n := newTestNormalizer()
	a := n.Analyze("ep3", "Alice: one\nAlice: two\nBob: three")

	require.Len(t, a.Turns, 2)
	assert.Equal(t, 0, a.Turns[0].CharStart)
	assert.Equal(t, len("Alice: one\nAlice: two"), a.Turns[0].CharEnd)
	assert.Equal(t, "Bob: three", a.Text[a.Turns[1].CharStart:a.Turns[1].CharEnd])
}

func TestAnalyzeEmpty(t *testing.T) {
	a := newTestNormalizer().Analyze("empty", "\n \n")
	assert.Empty(t, a.Turns)
	assert.Equal(t, 0, a.TokenCount)
	assert.Equal(t, 0.0, a.SpeakerCoverage())
}

func TestCanonicalSpeaker(t *testing.T) {
	n := newTestNormalizer()
	tests := map[string]string{
		"  sam ":       "Sam Altman",
		"SAM ALTMAN":   "Sam Altman",
		"unknown":      UnknownSpeaker,
		"Host":         UnknownSpeaker,
		"lex fridman":  "Lex Fridman",
		"o'brien":      "O'Brien",
		"dr. jane doe": "Dr. Jane Doe",
	}
	for in, want := range tests {
		assert.Equal(t, want, n.CanonicalSpeaker(in), in)
	}
}

func TestSnippet(t *testing.T) {
	a := &Analysis{}
	for i := 0; i < 20; i++ {
		a.Turns = append(a.Turns, core.SpeakerTurn{Index: i, Speaker: "S", Text: "t"})
	}

	lines := strings.Split(a.Snippet(2), "\n")
	assert.Equal(t, []string{
		"[0] S: t", "[1] S: t",
		"[9] S: t", "[10] S: t",
		"[18] S: t", "[19] S: t",
	}, lines)

	short := &Analysis{Turns: a.Turns[:3]}
	assert.Len(t, strings.Split(short.Snippet(2), "\n"), 3, "overlapping samples are deduplicated")
	assert.Equal(t, "", (&Analysis{}).Snippet(4))
}

func TestSpeakerSummary(t *testing.T) {
	a := &Analysis{SpeakerCounts: map[string]int{"Sam Altman": 3, "Lex Fridman": 2}}
	assert.Equal(t, "Lex Fridman (2), Sam Altman (3)", a.SpeakerSummary())
}

func TestTimeSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tests := []struct {
		date string
		want string
	}{
		{"20230115", "January 2023"},
		{"2021-07-04", "July 2021"},
		{"2019-03-01T10:00:00Z", "March 2019"},
		{"", UnknownTimeSpan},
		{"last spring", UnknownTimeSpan},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeSpan(core.DocumentMeta{DocID: "d", UploadDate: tt.date}, logger), tt.date)
	}
	assert.Contains(t, buf.String(), "cannot derive time span")
}
