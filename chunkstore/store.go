package chunkstore

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/voxdex/config"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage/artifact"
)

// Paths locates the artifacts a Store is loaded from.
type Paths struct {
	ChunkManifest    string
	DocumentManifest string
	RunLog           string
	// Embeddings maps each source field to its JSONL artifact. Optional;
	// only used for Status.
	Embeddings map[core.SourceField]string
}

// Status describes the loaded corpus.
type Status struct {
	core.Versions
	EnrichmentModel string                                          `json:"enrichment_model"`
	ChunkingConfig  string                                          `json:"chunking_config"`
	Chunks          int                                             `json:"chunk_count"`
	Documents       int                                             `json:"document_count"`
	ManifestCreated time.Time                                       `json:"manifest_created_at"`
	NewestEmbedding time.Time                                       `json:"newest_embedding_at"`
	Embeddings      map[core.SourceField]*artifact.EmbeddingSummary `json:"embeddings,omitempty"`
	LatestRun       *core.RunSummary                                `json:"latest_run"`
}

// Store is a read-only index over one corpus build.
type Store struct {
	header     artifact.ChunkHeader
	chunks     []core.Chunk
	byID       map[string]int
	docs       map[string]*core.DocumentRecord
	firstChunk map[string]string
	status     Status
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads the artifacts at paths and checks them against expected and
// enrichmentModel. An empty enrichmentModel skips the model check.
func Load(paths Paths, expected core.Versions, enrichmentModel string, opts ...Option) (*Store, error) {
	o := loadOptions{logger: slog.Default().With("component", "chunkstore")}
	for _, opt := range opts {
		opt(&o)
	}

	manifest, err := artifact.ReadChunkManifest(paths.ChunkManifest)
	if err != nil {
		return nil, fmt.Errorf("load chunk manifest: %w", err)
	}
	if err := manifest.CheckVersions(paths.ChunkManifest, expected, enrichmentModel); err != nil {
		return nil, err
	}

	docManifest, err := artifact.ReadDocumentManifest(paths.DocumentManifest)
	if err != nil {
		return nil, fmt.Errorf("load document manifest: %w", err)
	}
	if err := checkDocuments(paths.DocumentManifest, docManifest, expected); err != nil {
		return nil, err
	}

	latest, err := artifact.NewRunLog(paths.RunLog).Latest()
	if err != nil {
		if errors.Is(err, artifact.ErrMissing) {
			return nil, fmt.Errorf("%w: %v", ErrNoRuns, err)
		}
		return nil, fmt.Errorf("load run log: %w", err)
	}
	if err := checkRun(paths.RunLog, latest, expected, enrichmentModel); err != nil {
		return nil, err
	}

	s, err := New(manifest, docManifest.Documents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", paths.ChunkManifest, err)
	}
	s.status.LatestRun = latest
	if len(paths.Embeddings) > 0 {
		s.status.Embeddings = make(map[core.SourceField]*artifact.EmbeddingSummary, len(paths.Embeddings))
		for field, path := range paths.Embeddings {
			summary, err := artifact.SummarizeEmbeddings(path)
			if err != nil {
				return nil, fmt.Errorf("summarize %s embeddings: %w", field, err)
			}
			s.status.Embeddings[field] = summary
			if summary.Newest.After(s.status.NewestEmbedding) {
				s.status.NewestEmbedding = summary.Newest
			}
		}
	}

	o.logger.Info("chunk store loaded",
		"chunks", len(s.chunks),
		"documents", len(s.docs),
		"run_id", latest.RunID)
	return s, nil
}

// New indexes an already loaded manifest without any version checks.
func New(manifest *artifact.ChunkManifest, docs []core.DocumentRecord) (*Store, error) {
	s := &Store{
		header:     manifest.Header,
		chunks:     manifest.Chunks,
		byID:       make(map[string]int, len(manifest.Chunks)),
		docs:       make(map[string]*core.DocumentRecord, len(docs)),
		firstChunk: map[string]string{},
	}
	for i := range docs {
		s.docs[docs[i].DocID] = &docs[i]
	}
	for i, c := range s.chunks {
		if _, dup := s.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk id %s", core.ErrValidation, c.ID)
		}
		s.byID[c.ID] = i
		if _, ok := s.docs[c.DocID]; !ok {
			return nil, fmt.Errorf("%w: chunk %s references unknown doc %s", core.ErrValidation, c.ID, c.DocID)
		}
		if first, ok := s.firstChunk[c.DocID]; !ok || c.Ordinal < s.chunks[s.byID[first]].Ordinal {
			s.firstChunk[c.DocID] = c.ID
		}
	}
	s.status = Status{
		Versions:        manifest.Header.Versions,
		EnrichmentModel: manifest.Header.EnrichmentModel,
		ChunkingConfig:  manifest.Header.ChunkingConfig,
		Chunks:          len(s.chunks),
		Documents:       len(s.docs),
		ManifestCreated: manifest.Header.CreatedAt,
	}
	return s, nil
}

func checkDocuments(source string, m *artifact.DocumentManifest, expected core.Versions) error {
	if m.DocumentEnrichmentVersion != expected.DocumentEnrichment {
		return &core.VersionMismatchError{
			Source:   source,
			Field:    "document_enrichment_version",
			Expected: fmt.Sprint(expected.DocumentEnrichment),
			Actual:   fmt.Sprint(m.DocumentEnrichmentVersion),
		}
	}
	for _, d := range m.Documents {
		if d.Enrichment.Version != expected.DocumentEnrichment {
			return &core.VersionMismatchError{
				Source:   fmt.Sprintf("%s row %s", source, d.DocID),
				Field:    "document_enrichment_version",
				Expected: fmt.Sprint(expected.DocumentEnrichment),
				Actual:   fmt.Sprint(d.Enrichment.Version),
			}
		}
	}
	return nil
}

func checkRun(source string, run *core.RunSummary, expected core.Versions, enrichmentModel string) error {
	if err := expected.Check(run.Versions); err != nil {
		var vm *core.VersionMismatchError
		if errors.As(err, &vm) {
			vm.Source = fmt.Sprintf("%s run %s", source, run.RunID)
		}
		return err
	}
	if enrichmentModel != "" && run.EnrichmentModel != enrichmentModel {
		return &core.VersionMismatchError{
			Source:   fmt.Sprintf("%s run %s", source, run.RunID),
			Field:    "enrichment_model",
			Expected: enrichmentModel,
			Actual:   run.EnrichmentModel,
		}
	}
	return nil
}

// Get returns the chunk with id.
func (s *Store) Get(id string) (core.Chunk, error) {
	i, ok := s.byID[id]
	if !ok {
		return core.Chunk{}, fmt.Errorf("%w: %s", ErrChunkNotFound, id)
	}
	return s.chunks[i], nil
}

// GetMany returns the chunks for ids in order, skipping unknown ids.
func (s *Store) GetMany(ids []string) []core.Chunk {
	out := make([]core.Chunk, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.byID[id]; ok {
			out = append(out, s.chunks[i])
		}
	}
	return out
}

// Doc returns the document record for docID.
func (s *Store) Doc(docID string) (*core.DocumentRecord, bool) {
	d, ok := s.docs[docID]
	return d, ok
}

// FirstChunk returns the id of the lowest-ordinal chunk of docID. A
// document-level hit is represented by this chunk.
func (s *Store) FirstChunk(docID string) (string, bool) {
	id, ok := s.firstChunk[docID]
	return id, ok
}

// DocIDs returns every document id with at least one chunk.
func (s *Store) DocIDs() []string {
	ids := make([]string, 0, len(s.firstChunk))
	for _, c := range s.chunks {
		if s.firstChunk[c.DocID] == c.ID {
			ids = append(ids, c.DocID)
		}
	}
	return ids
}

// Count returns the number of chunks.
func (s *Store) Count() int {
	return len(s.chunks)
}

// Versions returns the versions the manifest was written under.
func (s *Store) Versions() core.Versions {
	return s.header.Versions
}

// Status describes the loaded corpus.
func (s *Store) Status() Status {
	return s.status
}

// PathsFor returns the artifact locations configured in cfg.
func PathsFor(cfg *config.Config) Paths {
	p := Paths{
		ChunkManifest:    cfg.ChunkManifestPath(),
		DocumentManifest: cfg.DocumentManifestPath(),
		RunLog:           cfg.Logging.SummariesPath,
		Embeddings:       make(map[core.SourceField]string, len(core.SourceFields)),
	}
	for _, f := range core.SourceFields {
		p.Embeddings[f] = cfg.EmbeddingArtifactPath(f)
	}
	return p
}
