package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// parseAttempts bounds how often a call is repeated when the model returns
// JSON that cannot be parsed.
const parseAttempts = 3

// chatClient wraps one chat model and the JSON-mode request loop shared by
// every structured call.
type chatClient struct {
	model  llms.Model
	logger *slog.Logger
}

func newChatClient(config *ai.Config, modelName, component string) (*chatClient, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(modelName),
	)
	if err != nil {
		return nil, err
	}
	return &chatClient{
		model:  client,
		logger: slog.Default().With("component", component, "model", modelName),
	}, nil
}

func messages(system, user string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}
}

// generateJSON sends the prompt in JSON mode and returns the cleaned payload.
// Transport errors are returned immediately; unparsable payloads are retried
// up to parseAttempts times.
func (c *chatClient) generateJSON(ctx context.Context, system, user string) ([]byte, error) {
	content := messages(system, user)

	var lastErr error
	for attempt := 1; attempt <= parseAttempts; attempt++ {
		response, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ai.ErrEmptyResponse
		}

		payload := repairJSON(stripCodeFences(response.Choices[0].Content))
		if jsonx.Valid([]byte(payload)) {
			return []byte(payload), nil
		}
		lastErr = fmt.Errorf("%w: %q", ai.ErrMalformedResponse, truncate(payload, 200))
		c.logger.Warn("error parsing model response", "attempt", attempt, "response", payload)
	}
	return nil, lastErr
}

// generateInto is generateJSON followed by a decode into v.
func (c *chatClient) generateInto(ctx context.Context, system, user string, v any) error {
	payload, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return err
	}
	if err := jsonx.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
