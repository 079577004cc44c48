// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package voxdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/ai/openai"
	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/config"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/corpus"
	"github.com/poiesic/voxdex/embedding"
	"github.com/poiesic/voxdex/enrich"
	"github.com/poiesic/voxdex/ingestion"
	"github.com/poiesic/voxdex/retrieval"
	"github.com/poiesic/voxdex/server"
	"github.com/poiesic/voxdex/storage"
	"github.com/poiesic/voxdex/storage/badger"
	"github.com/poiesic/voxdex/storage/fscache"
	"github.com/poiesic/voxdex/transcript"
	"github.com/poiesic/voxdex/vectorstore"
)

// Index ties one configuration to its vector store, enrichment cache and
// model provider, and builds the pipeline, orchestrator and server over them.
type Index struct {
	cfg          *config.Config
	provider     ai.AIProvider
	extractor    ai.Extractor
	vectors      *vectorstore.Manager
	cache        storage.EnrichmentCache
	cacheBackend *badger.Backend
	tokenizer    chunking.Tokenizer
	progress     io.Writer
	logger       *slog.Logger
}

// IndexOption configures an Index.
type IndexOption func(*indexOptions)

type indexOptions struct {
	provider  ai.AIProvider
	store     storage.VectorStore
	cache     storage.EnrichmentCache
	tokenizer chunking.Tokenizer
	progress  io.Writer
	logger    *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider built from config.
func WithProvider(p ai.AIProvider) IndexOption {
	return func(o *indexOptions) {
		o.provider = p
	}
}

// WithVectorStore replaces the configured vector backend.
func WithVectorStore(store storage.VectorStore) IndexOption {
	return func(o *indexOptions) {
		o.store = store
	}
}

// WithEnrichmentCache replaces the configured enrichment cache.
func WithEnrichmentCache(cache storage.EnrichmentCache) IndexOption {
	return func(o *indexOptions) {
		o.cache = cache
	}
}

// WithTokenizer replaces the tiktoken encoding named in config.
func WithTokenizer(tok chunking.Tokenizer) IndexOption {
	return func(o *indexOptions) {
		o.tokenizer = tok
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) IndexOption {
	return func(o *indexOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) IndexOption {
	return func(o *indexOptions) {
		o.logger = logger
	}
}

// aiConfig maps the embedding and model sections onto a provider config.
func aiConfig(cfg *config.Config, chatHost string) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(cfg.Embedding.Host),
		ai.WithChatHost(chatHost),
		ai.WithAPIKey(cfg.APIKey()),
		ai.WithEmbeddingModel(cfg.Embedding.Model),
		ai.WithExtractionModel(cfg.Enrichment.Model),
		ai.WithClassifierModel(cfg.Models.Classifier),
		ai.WithSynthesizerModel(cfg.Models.Synthesizer),
	)
}

// Open validates cfg and opens everything the index needs. The caller must
// Close the returned Index.
func Open(cfg *config.Config, opts ...IndexOption) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &indexOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	ix := &Index{
		cfg:       cfg,
		provider:  options.provider,
		tokenizer: options.tokenizer,
		progress:  options.progress,
		logger:    options.logger.With("component", "index"),
	}

	if ix.tokenizer == nil {
		tok, err := chunking.NewTiktokenTokenizer(cfg.Chunking.Encoding)
		if err != nil {
			return nil, err
		}
		ix.tokenizer = tok
	}

	if ix.provider == nil {
		provider, err := openai.NewProvider(aiConfig(cfg, cfg.Models.Host))
		if err != nil {
			return nil, err
		}
		ix.provider = provider
		ix.extractor = provider.Extractor()
		if cfg.Enrichment.Host != "" && cfg.Enrichment.Host != cfg.Models.Host {
			extractor, err := openai.NewExtractor(aiConfig(cfg, cfg.Enrichment.Host))
			if err != nil {
				ix.Close()
				return nil, err
			}
			ix.extractor = extractor
		}
	} else {
		ix.extractor = ix.provider.Extractor()
	}

	if options.store != nil {
		ix.vectors = vectorstore.NewManager(options.store)
	} else {
		vectors, err := vectorstore.OpenManager(cfg.Storage)
		if err != nil {
			ix.Close()
			return nil, err
		}
		ix.vectors = vectors
	}

	if options.cache != nil {
		ix.cache = options.cache
	} else {
		cache, backend, err := OpenEnrichmentCache(cfg)
		if err != nil {
			ix.Close()
			return nil, err
		}
		ix.cache, ix.cacheBackend = cache, backend
	}
	return ix, nil
}

// OpenEnrichmentCache opens the cache named by enrichment.cache_backend. The
// backend is nil for the file cache; otherwise the caller must close it.
func OpenEnrichmentCache(cfg *config.Config) (storage.EnrichmentCache, *badger.Backend, error) {
	if cfg.Enrichment.CacheBackend != "badger" {
		return fscache.New(cfg.EnrichmentCacheDir()), nil, nil
	}
	backend, err := badger.OpenBackend(filepath.Join(cfg.Storage.IndexDir, "enrichment"), false)
	if err != nil {
		return nil, nil, err
	}
	return badger.NewCache(backend), backend, nil
}

// CacheReport summarizes the enrichment cache against the versions this
// build expects.
type CacheReport struct {
	Documents *storage.CacheStats `json:"document_cache"`
	Chunks    *storage.CacheStats `json:"chunk_cache"`
	Expected  core.Versions       `json:"expected_versions"`
}

// InspectCache reports what cache holds for both enrichment kinds.
func InspectCache(ctx context.Context, cache storage.EnrichmentCache) (*CacheReport, error) {
	docs, err := cache.Stats(ctx, storage.CacheDocument)
	if err != nil {
		return nil, err
	}
	chunks, err := cache.Stats(ctx, storage.CacheChunk)
	if err != nil {
		return nil, err
	}
	return &CacheReport{Documents: docs, Chunks: chunks, Expected: core.CurrentVersions()}, nil
}

// Close releases the provider, vector store and cache backend.
func (ix *Index) Close() error {
	var errs []error
	if ix.provider != nil {
		if err := ix.provider.Close(); err != nil {
			ix.logger.Error("error closing AI provider", "err", err)
		}
	}
	if ix.vectors != nil {
		if err := ix.vectors.Close(); err != nil {
			ix.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if ix.cacheBackend != nil {
		if err := ix.cacheBackend.Close(); err != nil {
			ix.logger.Error("error closing enrichment cache", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the loaded configuration.
func (ix *Index) Config() *config.Config {
	return ix.cfg
}

// Provider returns the model provider.
func (ix *Index) Provider() ai.AIProvider {
	return ix.provider
}

// Vectors returns the vector store manager.
func (ix *Index) Vectors() *vectorstore.Manager {
	return ix.vectors
}

// Audit scans the corpus and appends the report to the audit log.
func (ix *Index) Audit(ctx context.Context) (*corpus.AuditReport, error) {
	auditor := corpus.NewAuditor(ix.cfg.Storage.TranscriptsDir, ix.cfg.Storage.MetadataDir, ix.normalizer(),
		corpus.WithReportPath(ix.cfg.Logging.AuditPath),
		corpus.WithAuditLogger(ix.logger))
	return auditor.Run(ctx)
}

func (ix *Index) normalizer() *transcript.Normalizer {
	return transcript.NewNormalizer(ix.tokenizer,
		transcript.WithAliases(ix.cfg.Normalizer.Aliases),
		transcript.WithLogger(ix.logger))
}

func (ix *Index) embeddingClient() (*embedding.Client, error) {
	e := ix.cfg.Embedding
	opts := []embedding.Option{
		embedding.WithBatchSize(e.BatchSize),
		embedding.WithRetry(e.MaxRetries, e.RetryDelay, e.MaxRetryDelay),
		embedding.WithRateLimit(e.RequestsPerSecond),
		embedding.WithLogger(ix.logger),
	}
	if e.MaxWorkers > 0 {
		opts = append(opts, embedding.WithWorkers(e.MaxWorkers))
	}
	if ix.progress != nil {
		opts = append(opts, embedding.WithProgress(ix.progress))
	}
	return embedding.NewClient(ix.provider.Embedder(), e.Model, opts...)
}

// NewPipeline builds an ingestion pipeline. With force set, cached
// enrichments are recomputed.
func (ix *Index) NewPipeline(force bool, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	cfg := ix.cfg
	chunker, err := chunking.New(ix.tokenizer, cfg.Chunking.SizeTokens, cfg.Chunking.OverlapTokens)
	if err != nil {
		return nil, err
	}

	errLog := enrich.NewErrorLog(cfg.Logging.EnrichmentErrorsPath)
	common := []enrich.Option{
		enrich.WithMaxAttempts(cfg.Enrichment.MaxAttempts),
		enrich.WithRateLimit(cfg.Enrichment.RequestsPerSecond),
		enrich.WithForce(force),
		enrich.WithErrorLog(errLog),
		enrich.WithLogger(ix.logger),
	}
	docs, err := enrich.NewDocumentEnricher(ix.extractor, ix.cache,
		append(common, enrich.WithWorkers(cfg.Enrichment.MaxWorkers))...)
	if err != nil {
		return nil, err
	}
	chunks, err := enrich.NewChunkEnricher(ix.extractor, ix.cache, ix.tokenizer, cfg.Enrichment.ClipTokens,
		append(common, enrich.WithWorkers(cfg.Enrichment.ChunkMaxWorkers))...)
	if err != nil {
		return nil, err
	}
	client, err := ix.embeddingClient()
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{
		ingestion.WithAuditPath(cfg.Logging.AuditPath),
		ingestion.WithEnrichmentModel(cfg.Enrichment.Model),
		ingestion.WithLogger(ix.logger),
	}
	return ingestion.NewPipeline(
		ingestion.Sources{TranscriptsDir: cfg.Storage.TranscriptsDir, MetadataDir: cfg.Storage.MetadataDir},
		chunkstore.PathsFor(cfg),
		ingestion.Components{
			Normalizer: ix.normalizer(),
			Chunker:    chunker,
			Documents:  docs,
			Chunks:     chunks,
			Embeddings: client,
			Vectors:    ix.vectors,
		},
		append(base, opts...)...)
}

// LoadChunks loads the chunk store, refusing artifacts from other versions
// or another enrichment model.
func (ix *Index) LoadChunks() (*chunkstore.Store, error) {
	return chunkstore.Load(chunkstore.PathsFor(ix.cfg), core.CurrentVersions(), ix.cfg.Enrichment.Model,
		chunkstore.WithLogger(ix.logger))
}

// NewOrchestrator builds a retrieval orchestrator over chunks.
func (ix *Index) NewOrchestrator(chunks retrieval.ChunkSource, opts ...retrieval.Option) (*retrieval.Orchestrator, error) {
	r := ix.cfg.Retrieval
	profiles, err := ix.cfg.Profiles()
	if err != nil {
		return nil, err
	}
	fallback, err := core.ParseQuestionType(r.FallbackProfile)
	if err != nil {
		return nil, err
	}
	client, err := ix.embeddingClient()
	if err != nil {
		return nil, err
	}
	base := []retrieval.Option{
		retrieval.WithExpander(ix.provider.QueryExpander()),
		retrieval.WithQueryTimeout(r.QueryTimeout),
		retrieval.WithRecencyWeight(r.RecencyWeight),
		retrieval.WithMaxSupporting(r.MaxSupporting),
		retrieval.WithFallback(fallback),
		retrieval.WithLogger(ix.logger),
	}
	if r.ExpansionCount > 0 {
		base = append(base, retrieval.WithExpansionCount(r.ExpansionCount))
	}
	return retrieval.New(client, ix.vectors.Store(), chunks, profiles, append(base, opts...)...)
}

// NewServer loads the chunk store and builds the HTTP server over it.
func (ix *Index) NewServer(opts ...server.Option) (*server.Server, error) {
	chunks, err := ix.LoadChunks()
	if err != nil {
		return nil, err
	}
	orch, err := ix.NewOrchestrator(chunks)
	if err != nil {
		return nil, err
	}
	base := []server.Option{
		server.WithClassifier(ix.provider.Classifier()),
		server.WithSynthesizer(ix.provider.Synthesizer()),
		server.WithStatus(chunks),
		server.WithLogger(ix.logger),
	}
	return server.New(orch, append(base, opts...)...)
}
