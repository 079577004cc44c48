package ingestion

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/voxdex/chunking"
	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/corpus"
	"github.com/poiesic/voxdex/embedding"
	"github.com/poiesic/voxdex/enrich"
	"github.com/poiesic/voxdex/storage/artifact"
	"github.com/poiesic/voxdex/transcript"
	"github.com/poiesic/voxdex/vectorstore"
)

// Run modes recorded in the run log.
const (
	ModeRebuild = "rebuild"
	ModeAppend  = "append"
)

// Sources locates the corpus.
type Sources struct {
	TranscriptsDir string
	MetadataDir    string
}

// Components are the collaborators a Pipeline drives.
type Components struct {
	Normalizer *transcript.Normalizer
	Chunker    *chunking.Chunker
	Documents  *enrich.DocumentEnricher
	Chunks     *enrich.ChunkEnricher
	Embeddings *embedding.Client
	Vectors    *vectorstore.Manager
}

// Pipeline orchestrates corpus ingestion. Runs are not safe to overlap.
type Pipeline struct {
	sources         Sources
	paths           chunkstore.Paths
	c               Components
	loadPool        *ants.Pool
	processors      []processor
	auditPath       string
	enrichmentModel string
	clock           func() time.Time
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size used to load and normalize
// transcripts. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.loadPool != nil {
			p.loadPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.loadPool = pool
		return nil
	}
}

// WithAuditPath appends each run's audit report to path.
func WithAuditPath(path string) Option {
	return func(p *Pipeline) error {
		p.auditPath = path
		return nil
	}
}

// WithEnrichmentModel records the model that produced enrichments. Append
// refuses to extend a manifest written under a different model.
func WithEnrichmentModel(model string) Option {
	return func(p *Pipeline) error {
		p.enrichmentModel = model
		return nil
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) error {
		p.clock = clock
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to paths.
func NewPipeline(sources Sources, paths chunkstore.Paths, c Components, opts ...Option) (*Pipeline, error) {
	switch {
	case c.Normalizer == nil:
		return nil, ErrNormalizerRequired
	case c.Chunker == nil:
		return nil, ErrChunkerRequired
	case c.Documents == nil:
		return nil, ErrDocumentEnricherRequired
	case c.Chunks == nil:
		return nil, ErrChunkEnricherRequired
	case c.Embeddings == nil:
		return nil, ErrEmbeddingClientRequired
	case c.Vectors == nil:
		return nil, ErrVectorManagerRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		sources:  sources,
		paths:    paths,
		c:        c,
		loadPool: pool,
		clock:    time.Now,
		logger:   slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.processors = []processor{
		&documentProcessor{enricher: c.Documents, logger: p.logger.With("processor", "documents")},
		&chunkProcessor{chunker: c.Chunker, enricher: c.Chunks, logger: p.logger.With("processor", "chunks")},
		&embeddingProcessor{client: c.Embeddings, logger: p.logger.With("processor", "embeddings")},
	}
	return p, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.loadPool != nil {
		p.loadPool.Release()
	}
}

// Audit checks the corpus without changing any artifact other than the
// audit log.
func (p *Pipeline) Audit(ctx context.Context) (*corpus.AuditReport, error) {
	auditor := corpus.NewAuditor(p.sources.TranscriptsDir, p.sources.MetadataDir, p.c.Normalizer,
		corpus.WithReportPath(p.auditPath),
		corpus.WithClock(p.clock),
		corpus.WithAuditLogger(p.logger))
	return auditor.Run(ctx)
}

// EnrichResult tallies an enrichment-only pass.
type EnrichResult struct {
	Documents int            `json:"documents"`
	Chunks    int            `json:"chunks"`
	Counts    core.RunCounts `json:"counts"`
}

// Enrich fills the enrichment cache for the whole corpus without embedding
// or writing artifacts. A later Rebuild reuses every cached result.
func (p *Pipeline) Enrich(ctx context.Context) (*EnrichResult, error) {
	inv, counts, err := p.audited(ctx)
	if err != nil {
		return nil, err
	}
	b, err := p.load(ctx, inv.Sources, counts)
	if err != nil {
		return nil, err
	}
	// Documents then chunks; embeddings are left to Rebuild.
	for _, proc := range p.processors[:2] {
		if err := p.runProcessor(ctx, proc, b); err != nil {
			return nil, err
		}
	}
	return &EnrichResult{Documents: len(b.inputs), Chunks: len(b.chunks), Counts: *counts}, nil
}

// Rebuild regenerates every artifact and all four collections from the
// full corpus.
func (p *Pipeline) Rebuild(ctx context.Context) (*core.RunSummary, error) {
	summary := p.newSummary(ModeRebuild)
	inv, counts, err := p.audited(ctx)
	if err != nil {
		return nil, err
	}
	summary.Counts = *counts

	b, err := p.process(ctx, inv.Sources, &summary.Counts)
	if err != nil {
		return nil, err
	}
	if _, err := p.c.Vectors.Rebuild(ctx, b.sets); err != nil {
		return nil, fmt.Errorf("rebuild vector store: %w", err)
	}
	if err := p.writeArtifacts(b, nil); err != nil {
		return nil, err
	}
	return p.finish(summary)
}

// Append ingests only documents not yet present in the chunk manifest or
// the primary collection. When there are none it logs a skipped run and
// makes no enrichment or embedding calls.
func (p *Pipeline) Append(ctx context.Context) (*core.RunSummary, error) {
	summary := p.newSummary(ModeAppend)
	inv, counts, err := p.audited(ctx)
	if err != nil {
		return nil, err
	}
	summary.Counts = *counts

	pr, err := p.loadPrior(ctx)
	if err != nil {
		return nil, err
	}
	sources := inv.Filter(pr.known)
	summary.Counts.SkippedExisting = len(inv.Sources) - len(sources)
	if len(sources) == 0 {
		p.logger.Info("no new documents; append skipped", "existing", summary.Counts.SkippedExisting)
		summary.Skipped = true
		summary.Counts.Embeddings = vectorstore.Sets{}.Count()
		return p.finish(summary)
	}

	b, err := p.process(ctx, sources, &summary.Counts)
	if err != nil {
		return nil, err
	}
	if _, err := p.c.Vectors.Append(ctx, b.sets); err != nil {
		return nil, fmt.Errorf("append to vector store: %w", err)
	}
	if err := p.writeArtifacts(b, pr); err != nil {
		return nil, err
	}
	return p.finish(summary)
}

func (p *Pipeline) newSummary(mode string) *core.RunSummary {
	started := p.clock().UTC()
	return &core.RunSummary{
		RunID:           ulid.MustNew(ulid.Timestamp(started), rand.Reader).String(),
		Mode:            mode,
		Versions:        core.CurrentVersions(),
		EnrichmentModel: p.enrichmentModel,
		EmbeddingModel:  p.c.Embeddings.Model(),
		ChunkingConfig:  p.c.Chunker.Fingerprint(),
		StartedAt:       started,
	}
}

// audited runs the audit and lists the corpus. Any audit failure aborts.
func (p *Pipeline) audited(ctx context.Context) (*corpus.Inventory, *core.RunCounts, error) {
	report, err := p.Audit(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := report.Err(); err != nil {
		return nil, nil, err
	}
	inv, err := corpus.LoadSources(p.sources.TranscriptsDir, p.sources.MetadataDir)
	if err != nil {
		return nil, nil, err
	}
	return inv, &core.RunCounts{AuditWarnings: report.WarningCount}, nil
}

func (p *Pipeline) process(ctx context.Context, sources []corpus.Source, counts *core.RunCounts) (*batch, error) {
	b, err := p.load(ctx, sources, counts)
	if err != nil {
		return nil, err
	}
	for _, proc := range p.processors {
		if err := p.runProcessor(ctx, proc, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (p *Pipeline) runProcessor(ctx context.Context, proc processor, b *batch) error {
	start := p.clock()
	if err := proc.process(ctx, b); err != nil {
		return err
	}
	p.logger.Info("stage complete", "stage", proc.name(), "elapsed", p.clock().Sub(start))
	return nil
}

// load reads and normalizes sources on the worker pool, keeping input order.
func (p *Pipeline) load(ctx context.Context, sources []corpus.Source, counts *core.RunCounts) (*batch, error) {
	inputs := make([]enrich.DocumentInput, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		submitErr := p.loadPool.Submit(func() {
			defer wg.Done()
			text, err := corpus.ReadTranscript(src)
			if err != nil {
				errs[i] = err
				return
			}
			inputs[i] = enrich.DocumentInput{Meta: src.DocumentMeta, Analysis: p.c.Normalizer.Analyze(src.DocID, text)}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}

	counts.Documents = len(inputs)
	p.logger.Info("loaded transcripts", "documents", len(inputs))
	return &batch{inputs: inputs, counts: counts}, nil
}

// prior holds the artifacts an append extends.
type prior struct {
	manifest *artifact.ChunkManifest
	docs     *artifact.DocumentManifest
	known    map[string]bool
}

// loadPrior reads the existing manifests and checks they were written under
// the current versions. Missing manifests mean an empty index.
func (p *Pipeline) loadPrior(ctx context.Context) (*prior, error) {
	expected := core.CurrentVersions()
	pr := &prior{known: map[string]bool{}}

	manifest, err := artifact.ReadChunkManifest(p.paths.ChunkManifest)
	switch {
	case errors.Is(err, artifact.ErrMissing):
	case err != nil:
		return nil, err
	default:
		if err := manifest.CheckVersions(p.paths.ChunkManifest, expected, p.enrichmentModel); err != nil {
			return nil, fmt.Errorf("refusing to append: %w", err)
		}
		pr.manifest = manifest
		for _, id := range manifest.DocIDs() {
			pr.known[id] = true
		}
	}

	docs, err := artifact.ReadDocumentManifest(p.paths.DocumentManifest)
	switch {
	case errors.Is(err, artifact.ErrMissing):
	case err != nil:
		return nil, err
	default:
		if docs.DocumentEnrichmentVersion != expected.DocumentEnrichment {
			return nil, fmt.Errorf("refusing to append: %w", &core.VersionMismatchError{
				Source:   p.paths.DocumentManifest,
				Field:    "document_enrichment_version",
				Expected: fmt.Sprint(expected.DocumentEnrichment),
				Actual:   fmt.Sprint(docs.DocumentEnrichmentVersion),
			})
		}
		pr.docs = docs
	}

	indexed, err := p.c.Vectors.KnownDocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed documents: %w", err)
	}
	for _, id := range indexed {
		pr.known[id] = true
	}
	return pr, nil
}

// writeArtifacts writes the manifests and embedding artifacts. With a
// non-nil prior the new rows are added to the existing ones.
func (p *Pipeline) writeArtifacts(b *batch, pr *prior) error {
	now := p.clock().UTC()

	manifest := &artifact.ChunkManifest{
		Header: artifact.ChunkHeader{
			Versions:        core.CurrentVersions(),
			EnrichmentModel: p.enrichmentModel,
			ChunkingConfig:  p.c.Chunker.Fingerprint(),
			CreatedAt:       now,
		},
	}
	docs := &artifact.DocumentManifest{
		DocumentEnrichmentVersion: core.DocumentEnrichmentVersion,
		CreatedAt:                 now,
	}
	if pr != nil && pr.manifest != nil {
		manifest.Chunks = append(manifest.Chunks, pr.manifest.Chunks...)
	}
	if pr != nil && pr.docs != nil {
		docs.Documents = append(docs.Documents, pr.docs.Documents...)
	}
	manifest.Chunks = append(manifest.Chunks, b.chunks...)
	for i, in := range b.inputs {
		docs.Documents = append(docs.Documents, core.DocumentRecord{
			DocumentMeta:  in.Meta,
			Enrichment:    b.enrichments[i],
			SpeakerCounts: in.Analysis.SpeakerCounts,
			TurnCount:     len(in.Analysis.Turns),
			TokenCount:    in.Analysis.TokenCount,
		})
	}

	if err := artifact.WriteChunkManifest(p.paths.ChunkManifest, manifest); err != nil {
		return err
	}
	if err := artifact.WriteDocumentManifest(p.paths.DocumentManifest, docs); err != nil {
		return err
	}
	for _, field := range core.SourceFields {
		path := p.paths.Embeddings[field]
		if pr == nil {
			if err := artifact.WriteEmbeddings(path, b.sets[field]); err != nil {
				return err
			}
			continue
		}
		if err := artifact.AppendEmbeddings(path, b.sets[field], core.EmbeddingSetVersion); err != nil {
			return err
		}
	}
	return nil
}

// finish stamps the summary and appends it to the run log. The run log is
// written last so a crashed run leaves the previous record as latest.
func (p *Pipeline) finish(summary *core.RunSummary) (*core.RunSummary, error) {
	summary.FinishedAt = p.clock().UTC()
	summary.DurationSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	if err := artifact.NewRunLog(p.paths.RunLog).Append(summary); err != nil {
		return nil, err
	}
	p.logger.Info("ingestion run complete",
		"run_id", summary.RunID,
		"mode", summary.Mode,
		"skipped", summary.Skipped,
		"documents", summary.Counts.Documents,
		"chunks", summary.Counts.Chunks,
		"duration_seconds", summary.DurationSeconds)
	return summary, nil
}
