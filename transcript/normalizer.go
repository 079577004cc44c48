package transcript

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/core"
)

// UnknownSpeaker labels text without a recognizable speaker.
const UnknownSpeaker = "Unknown Speaker"

var speakerLine = regexp.MustCompile(`^([A-Za-z0-9 .’'\-]+):\s+(.+)$`)

// anonymousLabels collapse to UnknownSpeaker regardless of configured aliases.
var anonymousLabels = map[string]bool{"unknown": true, "speaker": true, "host": true}

// Normalizer turns raw transcript text into speaker turns.
type Normalizer struct {
	aliases map[string]string
	tok     chunking.Tokenizer
	logger  *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases maps speaker labels (matched case-insensitively) onto a
// canonical name.
func WithAliases(aliases map[string]string) Option {
	return func(n *Normalizer) {
		for k, v := range aliases {
			n.aliases[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// NewNormalizer creates a normalizer that counts tokens with tok.
func NewNormalizer(tok chunking.Tokenizer, opts ...Option) *Normalizer {
	n := &Normalizer{
		aliases: map[string]string{},
		tok:     tok,
		logger:  slog.Default().With("component", "normalizer"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeText unifies line endings, trims every line and drops blank lines.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Analyze normalizes text and parses it into merged speaker turns.
func (n *Normalizer) Analyze(docID, text string) *Analysis {
	normalized := NormalizeText(text)
	a := &Analysis{
		DocID:         docID,
		Text:          normalized,
		SpeakerCounts: map[string]int{},
	}
	if normalized == "" {
		return a
	}

	cursor := 0
	for _, line := range strings.Split(normalized, "\n") {
		start, end := cursor, cursor+len(line)
		cursor = end + 1
		a.NonEmptyLines++

		speaker, content := UnknownSpeaker, line
		if m := speakerLine.FindStringSubmatch(line); m != nil {
			a.MatchedLines++
			speaker = n.CanonicalSpeaker(m[1])
			content = strings.TrimSpace(m[2])
		}
		if content == "" {
			continue
		}

		if last := len(a.Turns) - 1; last >= 0 && a.Turns[last].Speaker == speaker {
			a.Turns[last].Text += " " + content
			a.Turns[last].CharEnd = end
			continue
		}
		a.Turns = append(a.Turns, core.SpeakerTurn{
			Index:     len(a.Turns),
			Speaker:   speaker,
			Text:      content,
			CharStart: start,
			CharEnd:   end,
		})
	}

	for _, t := range a.Turns {
		a.SpeakerCounts[t.Speaker]++
	}
	a.TokenCount = chunking.Count(n.tok, normalized)

	n.logger.Debug("analyzed transcript",
		"doc_id", docID,
		"turns", len(a.Turns),
		"coverage", a.SpeakerCoverage(),
		"tokens", a.TokenCount)
	return a
}

// CanonicalSpeaker trims and title-cases label, applying aliases first.
func (n *Normalizer) CanonicalSpeaker(label string) string {
	cleaned := strings.TrimSpace(label)
	lowered := strings.ToLower(cleaned)
	if canonical, ok := n.aliases[lowered]; ok {
		return canonical
	}
	if anonymousLabels[lowered] {
		return UnknownSpeaker
	}
	return titleCase(cleaned)
}

// titleCase uppercases every letter that follows a non-letter and
// lowercases the rest.
func titleCase(s string) string {
	out := []rune(s)
	prevLetter := false
	for i, r := range out {
		if prevLetter {
			out[i] = unicode.ToLower(r)
		} else {
			out[i] = unicode.ToUpper(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(out)
}
