package retrieval

import (
	"context"

	"github.com/poiesic/voxdex/core"
)

// QueryEmbedder embeds one query string into a unit-length vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// ChunkSource resolves chunk and document rows for hits.
type ChunkSource interface {
	Get(id string) (core.Chunk, error)
	Doc(docID string) (*core.DocumentRecord, bool)
	FirstChunk(docID string) (string, bool)
}

// Request is one search.
type Request struct {
	Query            string   `json:"query" validate:"required,min=3"`
	QuestionType     string   `json:"question_type" validate:"required"`
	TopK             int      `json:"top_k,omitempty" validate:"omitempty,gt=0,lte=50"`
	IntentFilters    []string `json:"intent_filters,omitempty"`
	SentimentFilters []string `json:"sentiment_filters,omitempty"`
}

// CollectionUsage reports what one collection query asked for and returned.
type CollectionUsage struct {
	Source    core.SourceField    `json:"source"`
	Name      core.CollectionName `json:"name"`
	Requested int                 `json:"requested"`
	Returned  int                 `json:"returned"`
	SubQuery  string              `json:"sub_query,omitempty"`
	Fallback  bool                `json:"fallback,omitempty"`
}

// ChunkMetadata is the document context attached to a returned chunk.
type ChunkMetadata struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
	SourceURL  string `json:"source_url"`
	TimeSpan   string `json:"time_span"`
	KeyTheme   string `json:"key_theme,omitempty"`
	Ordinal    int    `json:"ordinal"`
}

// ChunkResult is one returned chunk.
type ChunkResult struct {
	ID           string              `json:"id"`
	Snippet      string              `json:"snippet"`
	Score        float32             `json:"score"`
	VectorSource core.CollectionName `json:"vector_source"`
	SubQuery     string              `json:"sub_query,omitempty"`
	Summary      string              `json:"chunk_summary"`
	Intents      []string            `json:"chunk_intents"`
	Sentiment    string              `json:"chunk_sentiment"`
	Claims       []string            `json:"chunk_claims"`
	Metadata     ChunkMetadata       `json:"metadata"`
}

// ClusterResult is an evidence cluster with quotes from its supporting chunks.
type ClusterResult struct {
	Key              string   `json:"key"`
	Score            float64  `json:"score"`
	Representative   string   `json:"representative"`
	SupportingIDs    []string `json:"supporting_chunk_ids"`
	SupportingQuotes []string `json:"supporting_quotes"`
	DocIDs           []string `json:"doc_ids"`
}

// Response is the result of one search.
type Response struct {
	RetrievalMode   string            `json:"retrieval_mode"`
	CollectionsUsed []CollectionUsage `json:"collections_used"`
	AggregatedCount int               `json:"aggregated_count"`
	Chunks          []ChunkResult     `json:"chunks"`
	Clusters        []ClusterResult   `json:"clusters,omitempty"`
	SubQueries      []string          `json:"sub_queries,omitempty"`
}
