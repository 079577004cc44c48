package openai

import (
	"context"
	"fmt"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
)

// Classifier implements ai.Classifier and ai.QueryExpander; both are short
// JSON calls against the classifier model.
type Classifier struct {
	chat *chatClient
}

type classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type expansion struct {
	Queries []string `json:"queries"`
}

func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, config.ClassifierModel, "openai-classifier")
	if err != nil {
		return nil, err
	}
	return &Classifier{chat: chat}, nil
}

// NewClassifier creates a question classifier.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify maps the query onto one of core.QuestionTypes.
func (c *Classifier) Classify(ctx context.Context, query string) (ai.Classification, error) {
	var result classification
	if err := c.chat.generateInto(ctx, buildClassifierPrompt(), "Question: "+query, &result); err != nil {
		return ai.Classification{}, err
	}

	qtype, err := core.ParseQuestionType(result.Type)
	if err != nil {
		return ai.Classification{}, fmt.Errorf("%w: %q", ai.ErrUnsupportedQuestionType, result.Type)
	}
	confidence := min(max(result.Confidence, 0), 1)

	c.chat.logger.Debug("classified question", "type", qtype, "confidence", confidence)
	return ai.Classification{Type: qtype, Confidence: confidence}, nil
}

// ExpandQuery splits query into at most n themed sub-queries.
func (c *Classifier) ExpandQuery(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	var result expansion
	if err := c.chat.generateInto(ctx, buildExpansionPrompt(n), "Question: "+query, &result); err != nil {
		return nil, err
	}
	return cleanExpansions(query, result.Queries, n), nil
}
