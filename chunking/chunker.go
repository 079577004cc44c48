package chunking

import (
	"fmt"

	"github.com/poiesic/voxdex/core"
)

// Chunker splits speaker turns into overlapping token windows. Output depends
// only on the turns and the chunker's settings.
type Chunker struct {
	tok     Tokenizer
	size    int
	overlap int
}

// New creates a chunker. overlap must be smaller than size.
func New(tok Tokenizer, size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0", ErrInvalidWindow)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidWindow, overlap, size)
	}
	return &Chunker{tok: tok, size: size, overlap: overlap}, nil
}

// Tokenizer returns the chunker's tokenizer.
func (c *Chunker) Tokenizer() Tokenizer {
	return c.tok
}

// Fingerprint identifies the settings chunk ids depend on.
func (c *Chunker) Fingerprint() string {
	return fmt.Sprintf("%s/%d/%d", c.tok.Name(), c.size, c.overlap)
}

// Render formats one turn as a transcript line.
func Render(t core.SpeakerTurn) string {
	return t.Speaker + ": " + t.Text
}

// Chunk returns the ordered windows of doc's turns. Each turn contributes
// its rendered line plus a trailing line break (except the last), so every
// token belongs to exactly one turn. Windows advance by size-overlap tokens
// and the final window always ends at the last token.
func (c *Chunker) Chunk(docID string, turns []core.SpeakerTurn) []core.Chunk {
	var (
		tokens    []int
		turnStart []int // token offset where each turn begins
	)
	for i, t := range turns {
		line := Render(t)
		if i < len(turns)-1 {
			line += "\n"
		}
		turnStart = append(turnStart, len(tokens))
		tokens = append(tokens, c.tok.Encode(line)...)
	}
	total := len(tokens)
	if total == 0 {
		return nil
	}

	var chunks []core.Chunk
	for start, ordinal := 0, 0; start < total; ordinal++ {
		end := min(start+c.size, total)
		chunks = append(chunks, core.Chunk{
			ID:            core.ChunkID(docID, ordinal),
			DocID:         docID,
			Ordinal:       ordinal,
			Text:          c.tok.Decode(tokens[start:end]),
			TokenRange:    core.Range{Start: start, End: end},
			TurnRange:     turnSpan(turns, turnStart, start, end),
			Intents:       []string{},
			Claims:        []string{},
			SchemaVersion: core.ChunkSchemaVersion,
		})
		if end == total {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// turnSpan returns the half-open range of turn indices whose tokens
// intersect [start, end).
func turnSpan(turns []core.SpeakerTurn, turnStart []int, start, end int) core.Range {
	first, last := -1, -1
	for i := range turns {
		tStart := turnStart[i]
		tEnd := end
		if i+1 < len(turnStart) {
			tEnd = turnStart[i+1]
		}
		if tStart < end && tEnd > start {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return core.Range{}
	}
	return core.Range{Start: turns[first].Index, End: turns[last].Index + 1}
}
