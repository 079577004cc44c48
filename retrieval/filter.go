package retrieval

import (
	"strings"

	"github.com/poiesic/voxdex/core"
)

// Stop words ignored when matching intent filters
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// containsAllWords reports whether every non-stop word of filter appears in
// text.
func containsAllWords(text, filter string) bool {
	want := tokenizeAndFilter(filter)
	if len(want) == 0 {
		return false
	}
	have := map[string]bool{}
	for _, w := range tokenizeAndFilter(text) {
		have[w] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// matchesIntents reports whether any chunk intent satisfies any filter.
func matchesIntents(intents, filters []string) bool {
	for _, f := range filters {
		for _, in := range intents {
			if containsAllWords(in, f) {
				return true
			}
		}
	}
	return false
}

func matchesSentiment(sentiment string, filters []string) bool {
	sentiment = strings.ToLower(strings.TrimSpace(sentiment))
	for _, f := range filters {
		if strings.ToLower(strings.TrimSpace(f)) == sentiment {
			return true
		}
	}
	return false
}

// applyFilters keeps hits whose chunk passes the intent and sentiment
// filters. Order is preserved.
func applyFilters(hits []core.SearchHit, chunks ChunkSource, intents, sentiments []string) []core.SearchHit {
	intents = nonBlank(intents)
	sentiments = nonBlank(sentiments)
	if len(intents) == 0 && len(sentiments) == 0 {
		return hits
	}
	out := make([]core.SearchHit, 0, len(hits))
	for _, h := range hits {
		c, err := chunks.Get(h.ChunkID)
		if err != nil {
			continue
		}
		if len(intents) > 0 && !matchesIntents(c.Intents, intents) {
			continue
		}
		if len(sentiments) > 0 && !matchesSentiment(c.Sentiment, sentiments) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
