package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

const (
	defaultQueryTimeout  = 20 * time.Second
	defaultMaxSupporting = 3
	defaultRecency       = 0.05
	minExpansions        = 2
	maxExpansions        = 3
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithExpander enables sub-query expansion for profiles that request it.
func WithExpander(expander ai.QueryExpander) Option {
	return func(o *Orchestrator) error {
		o.expander = expander
		return nil
	}
}

// WithQueryTimeout bounds one whole search. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d < 0 {
			return fmt.Errorf("%w: negative query timeout", core.ErrValidation)
		}
		o.timeout = d
		return nil
	}
}

// WithRecencyWeight scales the cluster recency bonus.
func WithRecencyWeight(w float64) Option {
	return func(o *Orchestrator) error {
		o.recencyWeight = w
		return nil
	}
}

// WithMaxSupporting caps supporting chunk ids per cluster.
func WithMaxSupporting(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return fmt.Errorf("%w: negative max supporting", core.ErrValidation)
		}
		o.maxSupporting = n
		return nil
	}
}

// WithExpansionCount sets how many sub-queries to request. Values are
// clamped to [2, 3].
func WithExpansionCount(n int) Option {
	return func(o *Orchestrator) error {
		o.expansionCount = min(max(n, minExpansions), maxExpansions)
		return nil
	}
}

// WithFallback selects the profile used for unmapped question types.
func WithFallback(qt core.QuestionType) Option {
	return func(o *Orchestrator) error {
		if _, ok := o.profiles[qt]; !ok {
			return fmt.Errorf("%w: fallback profile %q is not configured", ErrUnknownProfile, qt)
		}
		o.fallback = qt
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// Orchestrator runs searches. It holds no per-query state and is safe for
// concurrent use.
type Orchestrator struct {
	embedder       QueryEmbedder
	store          storage.VectorStore
	chunks         ChunkSource
	profiles       map[core.QuestionType]core.RetrievalProfile
	expander       ai.QueryExpander
	fallback       core.QuestionType
	timeout        time.Duration
	recencyWeight  float64
	maxSupporting  int
	expansionCount int
	logger         *slog.Logger
}

// New creates an orchestrator. A nil profiles map selects
// core.DefaultProfiles.
func New(embedder QueryEmbedder, store storage.VectorStore, chunks ChunkSource, profiles map[core.QuestionType]core.RetrievalProfile, opts ...Option) (*Orchestrator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if chunks == nil {
		return nil, ErrChunkSourceRequired
	}
	if profiles == nil {
		profiles = core.DefaultProfiles()
	}
	for qt, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", qt, err)
		}
	}

	o := &Orchestrator{
		embedder:       embedder,
		store:          store,
		chunks:         chunks,
		profiles:       maps.Clone(profiles),
		fallback:       core.QuestionFactual,
		timeout:        defaultQueryTimeout,
		recencyWeight:  defaultRecency,
		maxSupporting:  defaultMaxSupporting,
		expansionCount: maxExpansions,
		logger:         slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if _, ok := o.profiles[o.fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback profile %q is not configured", ErrUnknownProfile, o.fallback)
	}
	return o, nil
}

// Profile returns the profile a question type resolves to.
func (o *Orchestrator) Profile(questionType string) (core.QuestionType, core.RetrievalProfile) {
	if qt, err := core.ParseQuestionType(questionType); err == nil {
		if p, ok := o.profiles[qt]; ok {
			return qt, p
		}
	}
	o.logger.Warn("no profile for question type; using fallback", "question_type", questionType, "fallback", o.fallback)
	return o.fallback, o.profiles[o.fallback]
}

// Search runs one query.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	return o.SearchWithMonitor(ctx, req, nil)
}

type subQuery struct {
	text   string
	label  string
	vector []float32
}

type job struct {
	coll   core.CollectionName
	topK   int
	query  subQuery
	filter storage.QueryFilter
}

// SearchWithMonitor runs one query, reporting each stage to monitor.
func (o *Orchestrator) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) (*Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", core.ErrValidation)
	}
	_, profile := o.Profile(req.QuestionType)
	topK := profile.TopK
	if req.TopK > 0 {
		topK = req.TopK
	}
	monitor.Start(req, profile)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	queries, err := o.embedQueries(ctx, query, profile)
	if err != nil {
		return nil, o.wrapErr(ctx, err)
	}
	subQueries := make([]string, 0, len(queries)-1)
	for _, q := range queries[1:] {
		subQueries = append(subQueries, q.text)
	}
	monitor.AfterExpansion(subQueries)

	var jobs []job
	for _, q := range queries {
		for _, c := range profile.Collections {
			jobs = append(jobs, job{coll: c.Name, topK: c.TopK, query: q})
		}
	}
	raw, usage, err := o.fanOut(ctx, jobs, monitor)
	if err != nil {
		return nil, o.wrapErr(ctx, err)
	}
	total := 0
	for _, u := range usage {
		total += u.Returned
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %q returned no hits from %d collection queries", core.ErrNoEvidence, query, len(usage))
	}

	merged := mergeHits(o.resolveHits(raw))
	monitor.AfterMerge(merged)

	if profile.MinDocs > 0 {
		if covered := distinctDocs(merged); len(covered) < profile.MinDocs {
			extra, u, err := o.diversify(ctx, profile, queries[0], covered, topK)
			if err != nil {
				return nil, o.wrapErr(ctx, err)
			}
			usage = append(usage, u)
			monitor.DiversityFallback(len(covered), extra)
			merged = mergeHits(append(merged, extra...))
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: no hits resolved to known chunks", core.ErrNoEvidence)
	}

	aggregated := len(merged)
	capped := capHits(merged, topK, profile.MinDocs)

	var clusters []core.EvidenceCluster
	if profile.Clustering != nil {
		clusters = o.cluster(capped, *profile.Clustering)
		monitor.AfterClustering(clusters)
	}

	kept := applyFilters(capped, o.chunks, req.IntentFilters, req.SentimentFilters)
	clusters = narrowClusters(clusters, kept)

	resp := &Response{
		RetrievalMode:   profile.Name,
		CollectionsUsed: usage,
		AggregatedCount: aggregated,
		Chunks:          o.chunkResults(kept),
		SubQueries:      subQueries,
	}
	if profile.Clustering != nil {
		resp.Clusters = o.clusterResults(clusters)
	}
	o.logger.Debug("search complete",
		"mode", profile.Name,
		"aggregated", aggregated,
		"returned", len(resp.Chunks),
		"clusters", len(resp.Clusters))
	monitor.Finish(resp)
	return resp, nil
}

// wrapErr turns a cancelled search context into a timeout error so callers
// can tell a slow search from a failed one.
func (o *Orchestrator) wrapErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("search exceeded %s: %w", o.timeout, context.DeadlineExceeded)
	}
	return err
}

func (o *Orchestrator) embedQueries(ctx context.Context, query string, profile core.RetrievalProfile) ([]subQuery, error) {
	vec, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queries := []subQuery{{text: query, vector: vec}}
	if !profile.ExpandQueries || o.expander == nil {
		return queries, nil
	}

	for _, sq := range o.expand(ctx, query) {
		v, err := o.embedder.EmbedQuery(ctx, sq)
		if err != nil {
			return nil, fmt.Errorf("embed sub-query %q: %w", sq, err)
		}
		queries = append(queries, subQuery{text: sq, label: sq, vector: v})
	}
	return queries, nil
}

// expand asks the expander for sub-queries. Expansion is best effort: on
// failure the search continues with the original query alone.
func (o *Orchestrator) expand(ctx context.Context, query string) []string {
	subs, err := o.expander.ExpandQuery(ctx, query, o.expansionCount)
	if err != nil {
		o.logger.Warn("query expansion failed", "err", err)
		return nil
	}
	seen := map[string]bool{strings.ToLower(query): true}
	var out []string
	for _, s := range subs {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == o.expansionCount {
			break
		}
	}
	return out
}

// fanOut runs every job concurrently and waits for all of them. The first
// failure cancels the rest and no hits are returned.
func (o *Orchestrator) fanOut(ctx context.Context, jobs []job, monitor SearchMonitor) ([]core.SearchHit, []CollectionUsage, error) {
	results := make([][]core.SearchHit, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		g.Go(func() error {
			hits, err := o.store.Query(gctx, j.coll, j.query.vector, j.topK, j.filter)
			if err != nil {
				return fmt.Errorf("query %s: %w", j.coll, err)
			}
			for k := range hits {
				hits[k].VectorSource = j.coll
				hits[k].SubQuery = j.query.label
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []core.SearchHit
	usage := make([]CollectionUsage, len(jobs))
	for i, j := range jobs {
		usage[i] = CollectionUsage{
			Source:    sourceFor(j.coll),
			Name:      j.coll,
			Requested: j.topK,
			Returned:  len(results[i]),
			SubQuery:  j.query.label,
		}
		monitor.AfterCollectionQuery(usage[i], results[i])
		all = append(all, results[i]...)
	}
	return all, usage, nil
}

// diversify issues one extra query against the profile's first collection,
// excluding documents already covered, with a widened top_k.
func (o *Orchestrator) diversify(ctx context.Context, profile core.RetrievalProfile, q subQuery, covered []string, topK int) ([]core.SearchHit, CollectionUsage, error) {
	first := profile.Collections[0]
	j := job{
		coll:   first.Name,
		topK:   max(first.TopK, topK) * 2,
		query:  q,
		filter: storage.QueryFilter{ExcludeDocIDs: covered},
	}
	hits, err := o.store.Query(ctx, j.coll, q.vector, j.topK, j.filter)
	if err != nil {
		return nil, CollectionUsage{}, fmt.Errorf("diversity query %s: %w", j.coll, err)
	}
	for k := range hits {
		hits[k].VectorSource = j.coll
	}
	o.logger.Debug("diversity fallback", "covered_docs", len(covered), "min_docs", profile.MinDocs, "added", len(hits))
	return o.resolveHits(hits), CollectionUsage{
		Source:    sourceFor(j.coll),
		Name:      j.coll,
		Requested: j.topK,
		Returned:  len(hits),
		Fallback:  true,
	}, nil
}

// resolveHits drops hits whose chunk is not in the chunk source. Document
// summary hits keep their doc id as merge identity and borrow the
// document's first chunk for display.
func (o *Orchestrator) resolveHits(hits []core.SearchHit) []core.SearchHit {
	out := make([]core.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.VectorSource == core.CollectionDocSum {
			docID := h.DocID
			if docID == "" {
				docID = h.ChunkID
			}
			first, ok := o.chunks.FirstChunk(docID)
			if !ok {
				o.logger.Warn("document hit has no chunks; dropping", "doc_id", docID)
				continue
			}
			h.DocID = docID
			h.ChunkID = first
		}
		c, err := o.chunks.Get(h.ChunkID)
		if err != nil {
			o.logger.Warn("hit references unknown chunk; dropping", "chunk_id", h.ChunkID, "collection", h.VectorSource)
			continue
		}
		h.DocID = c.DocID
		out = append(out, h)
	}
	return out
}

func sourceFor(coll core.CollectionName) core.SourceField {
	for _, f := range core.SourceFields {
		if f.Collection() == coll {
			return f
		}
	}
	return ""
}
