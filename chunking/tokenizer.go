package chunking

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text to and from model tokens. Implementations must be
// deterministic and safe for concurrent use.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	// Name identifies the encoding; it is part of the chunking fingerprint.
	Name() string
}

// TiktokenTokenizer counts tokens the way OpenAI models do.
type TiktokenTokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named BPE encoding, e.g. "cl100k_base".
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{name: encoding, enc: enc}, nil
}

// Encode returns the BPE tokens of text. Special tokens are treated as text.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode returns the text of tokens.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Name returns the encoding name.
func (t *TiktokenTokenizer) Name() string {
	return t.name
}

// FieldsTokenizer treats every whitespace-separated word and every line
// break as one token. It needs no BPE ranks, so tests use it in place of
// tiktoken.
type FieldsTokenizer struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

const newlineToken = "\n"

// NewFieldsTokenizer creates an empty word tokenizer.
func NewFieldsTokenizer() *FieldsTokenizer {
	return &FieldsTokenizer{ids: map[string]int{}}
}

// Encode assigns ids to words in first-seen order.
func (f *FieldsTokenizer) Encode(text string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []int
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, w := range strings.Fields(line) {
			out = append(out, f.idLocked(w))
		}
		if i < len(lines)-1 {
			out = append(out, f.idLocked(newlineToken))
		}
	}
	return out
}

func (f *FieldsTokenizer) idLocked(w string) int {
	id, ok := f.ids[w]
	if !ok {
		id = len(f.words)
		f.ids[w] = id
		f.words = append(f.words, w)
	}
	return id
}

// Decode joins words with single spaces and restores line breaks.
func (f *FieldsTokenizer) Decode(tokens []int) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	atLineStart := true
	for _, id := range tokens {
		if id < 0 || id >= len(f.words) {
			continue
		}
		w := f.words[id]
		if w == newlineToken {
			b.WriteString(newlineToken)
			atLineStart = true
			continue
		}
		if !atLineStart {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		atLineStart = false
	}
	return b.String()
}

// Name returns "fields".
func (f *FieldsTokenizer) Name() string {
	return "fields"
}

// Count returns the number of tokens in text.
func Count(tok Tokenizer, text string) int {
	if text == "" {
		return 0
	}
	return len(tok.Encode(text))
}

// Clip returns the first limit tokens of text, or text unchanged when it is
// already within the limit.
func Clip(tok Tokenizer, text string, limit int) string {
	if limit <= 0 {
		return text
	}
	tokens := tok.Encode(text)
	if len(tokens) <= limit {
		return text
	}
	return tok.Decode(tokens[:limit])
}
