package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
)

// Synthesizer implements ai.Synthesizer using OpenAI-compatible chat APIs.
type Synthesizer struct {
	chat *chatClient
}

func newSynthesizer(config *ai.Config) (*Synthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, config.SynthesizerModel, "openai-synthesizer")
	if err != nil {
		return nil, err
	}
	return &Synthesizer{chat: chat}, nil
}

// NewSynthesizer creates an answer synthesizer.
//
// Returns ai.Synthesizer interface to enforce abstraction.
func NewSynthesizer(config *ai.Config) (ai.Synthesizer, error) {
	return newSynthesizer(config)
}

// Synthesize answers query from evidence. An empty reasoning list is
// returned as an empty slice, never nil.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, qtype core.QuestionType, evidence []ai.Evidence) (*ai.Synthesis, error) {
	user := fmt.Sprintf("Question type: %s\nGuidance: %s\nQuestion: %s\nContext:\n%s",
		qtype, ai.QuestionTypeGuidance[qtype], query, formatEvidence(evidence))

	var result ai.Synthesis
	if err := s.chat.generateInto(ctx, synthesisPrompt, user, &result); err != nil {
		return nil, err
	}
	result.Answer = strings.TrimSpace(result.Answer)
	if result.Answer == "" {
		return nil, fmt.Errorf("%w: empty answer", ai.ErrMalformedResponse)
	}
	if result.Reasoning == nil {
		result.Reasoning = []string{}
	}
	return &result, nil
}
