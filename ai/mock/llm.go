package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
)

// MockExtractor is a test double for ai.Extractor. Without ExtractFunc it
// returns a minimal payload that satisfies the chunk enrichment contract.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, instructions, input string) ([]byte, error)

	mu     sync.Mutex
	inputs []string
}

// NewMockExtractor creates a mock extractor with default behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// WithExtractFunc installs fn and returns m.
func (m *MockExtractor) WithExtractFunc(fn func(ctx context.Context, instructions, input string) ([]byte, error)) *MockExtractor {
	m.ExtractFunc = fn
	return m
}

// Extract records the input and returns the injected or default payload.
func (m *MockExtractor) Extract(ctx context.Context, instructions, input string) ([]byte, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, instructions, input)
	}
	return []byte(`{"chunk_summary":"summary","chunk_intents":["explain"],"chunk_sentiment":"neutral","chunk_claims":[]}`), nil
}

// CallCount returns the number of Extract calls.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// CallsContaining counts Extract calls whose input contains substr.
func (m *MockExtractor) CallsContaining(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, in := range m.inputs {
		if strings.Contains(in, substr) {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and the custom function.
func (m *MockExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = nil
	m.ExtractFunc = nil
}

// MockClassifier is a test double for ai.Classifier and ai.QueryExpander.
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, query string) (ai.Classification, error)
	ExpandFunc   func(ctx context.Context, query string, n int) ([]string, error)

	mu         sync.Mutex
	classifies int
	expansions int
}

// NewMockClassifier creates a mock classifier that answers factual with
// full confidence and expands by suffixing the query.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// Classify returns the injected or default classification.
func (m *MockClassifier) Classify(ctx context.Context, query string) (ai.Classification, error) {
	m.mu.Lock()
	m.classifies++
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, query)
	}
	return ai.Classification{Type: core.QuestionFactual, Confidence: 1}, nil
}

// ExpandQuery returns the injected or default sub-queries.
func (m *MockClassifier) ExpandQuery(ctx context.Context, query string, n int) ([]string, error) {
	m.mu.Lock()
	m.expansions++
	m.mu.Unlock()

	if m.ExpandFunc != nil {
		return m.ExpandFunc(ctx, query, n)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, query+" angle "+string(rune('a'+i)))
	}
	return out, nil
}

// ClassifyCount returns the number of Classify calls.
func (m *MockClassifier) ClassifyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifies
}

// ExpandCount returns the number of ExpandQuery calls.
func (m *MockClassifier) ExpandCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expansions
}

// MockSynthesizer is a test double for ai.Synthesizer.
type MockSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, query string, qtype core.QuestionType, evidence []ai.Evidence) (*ai.Synthesis, error)

	mu    sync.Mutex
	calls int
}

// NewMockSynthesizer creates a mock synthesizer that cites every evidence
// chunk in its reasoning.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// Synthesize returns the injected or default answer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, query string, qtype core.QuestionType, evidence []ai.Evidence) (*ai.Synthesis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, query, qtype, evidence)
	}
	reasoning := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		reasoning = append(reasoning, "used "+ev.ChunkID)
	}
	return &ai.Synthesis{Answer: "answer to " + query, Reasoning: reasoning}, nil
}

// CallCount returns the number of Synthesize calls.
func (m *MockSynthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
