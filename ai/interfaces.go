package ai

import (
	"context"

	"github.com/poiesic/voxdex/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor runs a structured-extraction call and returns the model's JSON
// payload. Implementations strip code fences and repair trivially malformed
// JSON; they do not interpret the payload. Contract validation belongs to
// the caller.
type Extractor interface {
	// Extract sends instructions as the system message and input as the user
	// message. The returned bytes are syntactically valid JSON.
	Extract(ctx context.Context, instructions, input string) ([]byte, error)
}

// Classifier infers the question type of a user query.
type Classifier interface {
	// Classify returns one of core.QuestionTypes with a confidence in [0, 1].
	Classify(ctx context.Context, query string) (Classification, error)
}

// QueryExpander rewrites one query into several themed sub-queries.
type QueryExpander interface {
	// ExpandQuery returns between 1 and n sub-queries. The original query is
	// never included in the result.
	ExpandQuery(ctx context.Context, query string, n int) ([]string, error)
}

// Synthesizer composes a grounded answer from retrieved evidence.
type Synthesizer interface {
	// Synthesize answers query using only the supplied evidence.
	Synthesize(ctx context.Context, query string, qtype core.QuestionType, evidence []Evidence) (*Synthesis, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Extractor returns the structured-extraction service used by enrichment.
	Extractor() Extractor

	// Classifier returns the question classifier.
	Classifier() Classifier

	// QueryExpander returns the sub-query expansion service.
	QueryExpander() QueryExpander

	// Synthesizer returns the answer synthesis service.
	Synthesizer() Synthesizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
