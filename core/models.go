package core

import (
	"time"
)

// DocumentMeta is the document-level metadata paired with a transcript.
type DocumentMeta struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
	SourceURL  string `json:"source_url"`
	SourcePath string `json:"source_path"`
	SourceName string `json:"source_name"`
}

// Transcript is raw transcript text plus its metadata. Immutable once ingested.
type Transcript struct {
	Meta DocumentMeta
	Text string
}

// SpeakerTurn is one contiguous run of text attributed to a single speaker.
type SpeakerTurn struct {
	Index     int    `json:"segment_index"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// Range is a half-open [Start, End) interval.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of positions covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether i lies within the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Chunk is a token-bounded span of one transcript, the unit of retrieval.
// Created by the chunker, enriched in place by the chunk enricher, and never
// mutated after a run completes.
type Chunk struct {
	ID                string   `json:"chunk_id"`
	DocID             string   `json:"doc_id"`
	Ordinal           int      `json:"ordinal"`
	Text              string   `json:"text"`
	TokenRange        Range    `json:"token_range"`
	TurnRange         Range    `json:"turn_range"`
	Summary           string   `json:"chunk_summary"`
	Intents           []string `json:"chunk_intents"`
	Sentiment         string   `json:"chunk_sentiment"`
	Claims            []string `json:"chunk_claims"`
	KeyTheme          string   `json:"key_theme,omitempty"`
	EnrichmentVersion int      `json:"chunk_enrichment_version"`
	SchemaVersion     int      `json:"chunk_schema_version"`
}

// Theme is a document-level theme and the turns that evidence it.
type Theme struct {
	Theme               string `json:"theme" validate:"required"`
	EvidenceTurnIndices []int  `json:"evidence_turn_indices"`
}

// Entity is a person, organization or concept mentioned in a document.
type Entity struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=person organization concept"`
	Role string `json:"role"`
}

// DocumentEnrichment is the structured metadata extracted for one transcript.
type DocumentEnrichment struct {
	DocID       string   `json:"doc_id"`
	Summary     string   `json:"doc_summary"`
	KeyThemes   []Theme  `json:"key_themes"`
	TimeSpan    string   `json:"time_span"`
	Entities    []Entity `json:"entities"`
	StanceNotes string   `json:"stance_notes"`
	Version     int      `json:"document_enrichment_version"`
}

// ChunkEnrichment is the structured metadata extracted for one chunk.
type ChunkEnrichment struct {
	Summary   string   `json:"chunk_summary"`
	Intents   []string `json:"chunk_intents"`
	Sentiment string   `json:"chunk_sentiment"`
	Claims    []string `json:"chunk_claims"`
}

// Apply copies the enrichment onto the chunk and stamps its version.
func (e ChunkEnrichment) Apply(c *Chunk, version int) {
	c.Summary = e.Summary
	c.Intents = e.Intents
	c.Sentiment = e.Sentiment
	c.Claims = e.Claims
	c.EnrichmentVersion = version
}

// DocumentRecord is one row of the enriched document manifest.
type DocumentRecord struct {
	DocumentMeta
	Enrichment    DocumentEnrichment `json:"enrichment"`
	SpeakerCounts map[string]int     `json:"speaker_counts"`
	TurnCount     int                `json:"turn_count"`
	TokenCount    int                `json:"token_count"`
}

// SourceField names the chunk or document field an embedding was computed from.
type SourceField string

const (
	SourceChunkText    SourceField = "chunk_text"
	SourceChunkSummary SourceField = "chunk_summary"
	SourceChunkIntents SourceField = "chunk_intents"
	SourceDocSummary   SourceField = "doc_summary"
)

// SourceFields lists every source field in collection priority order.
var SourceFields = []SourceField{SourceChunkText, SourceChunkSummary, SourceChunkIntents, SourceDocSummary}

// CollectionName names one of the four vector collections.
type CollectionName string

const (
	CollectionPrimary CollectionName = "primary"
	CollectionSummary CollectionName = "summary"
	CollectionIntents CollectionName = "intents"
	CollectionDocSum  CollectionName = "docsum"
)

// Collections lists the four collections in tie-break priority order.
var Collections = []CollectionName{CollectionPrimary, CollectionSummary, CollectionIntents, CollectionDocSum}

// Collection returns the collection holding embeddings of this source field.
func (f SourceField) Collection() CollectionName {
	switch f {
	case SourceChunkSummary:
		return CollectionSummary
	case SourceChunkIntents:
		return CollectionIntents
	case SourceDocSummary:
		return CollectionDocSum
	default:
		return CollectionPrimary
	}
}

// Priority ranks collections for deterministic tie-breaks; lower wins.
// Unknown collections sort after the four known ones.
func (c CollectionName) Priority() int {
	for i, name := range Collections {
		if name == c {
			return i
		}
	}
	return len(Collections)
}

// Valid reports whether c names one of the four collections.
func (c CollectionName) Valid() bool {
	return c.Priority() < len(Collections)
}

// EmbeddingRecord is one vector computed from one source field of a chunk or
// document.
type EmbeddingRecord struct {
	ID                  string      `json:"id"`
	DocID               string      `json:"doc_id"`
	Vector              []float32   `json:"vector"`
	SourceField         SourceField `json:"source_field"`
	EmbeddingModel      string      `json:"embedding_model"`
	EmbeddingSetVersion int         `json:"embedding_set_version"`
	CreatedAt           time.Time   `json:"created_at"`
}

// SearchHit is one transient similarity match.
type SearchHit struct {
	ChunkID      string         `json:"chunk_id"`
	DocID        string         `json:"doc_id"`
	Score        float32        `json:"score"`
	VectorSource CollectionName `json:"vector_source"`
	// SubQuery records which expanded sub-query produced the hit. Empty for
	// the original query. Informational only; never used for ranking.
	SubQuery string `json:"sub_query,omitempty"`
}

// EvidenceCluster groups merged hits that share a theme or document.
type EvidenceCluster struct {
	Key                   string   `json:"key"`
	Score                 float64  `json:"score"`
	RepresentativeChunkID string   `json:"representative_chunk_id"`
	SupportingChunkIDs    []string `json:"supporting_chunk_ids"`
	DocIDs                []string `json:"doc_ids"`
}

// RunCounts tallies what an ingestion run did.
type RunCounts struct {
	Documents       int                 `json:"documents"`
	Chunks          int                 `json:"chunks"`
	DocsEnriched    int                 `json:"docs_enriched"`
	DocsReused      int                 `json:"docs_reused"`
	DocsFailed      int                 `json:"docs_failed"`
	ChunksEnriched  int                 `json:"chunks_enriched"`
	ChunksReused    int                 `json:"chunks_reused"`
	ChunksFailed    int                 `json:"chunks_failed"`
	Embeddings      map[SourceField]int `json:"embeddings"`
	AuditWarnings   int                 `json:"audit_warnings"`
	SkippedExisting int                 `json:"skipped_existing_docs"`
}

// RunSummary is appended to the run log after every completed ingestion run.
type RunSummary struct {
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`
	Versions
	EnrichmentModel string    `json:"enrichment_model"`
	EmbeddingModel  string    `json:"embedding_model"`
	ChunkingConfig  string    `json:"chunking_config"`
	Counts          RunCounts `json:"counts"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Skipped         bool      `json:"skipped"`
}
