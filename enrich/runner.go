package enrich

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/storage"
)

const (
	defaultWorkers     = 4
	defaultMaxAttempts = 3
)

// Stats tallies one enrichment pass.
type Stats struct {
	Enriched  int      `json:"enriched"`
	Reused    int      `json:"reused"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

type outcome int

const (
	outcomeEnriched outcome = iota
	outcomeReused
	outcomeFailed
)

// tally is a concurrency-safe Stats accumulator.
type tally struct {
	mu    sync.Mutex
	stats Stats
}

func (t *tally) add(id string, o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o {
	case outcomeEnriched:
		t.stats.Enriched++
	case outcomeReused:
		t.stats.Reused++
	case outcomeFailed:
		t.stats.Failed++
		t.stats.FailedIDs = append(t.stats.FailedIDs, id)
	}
}

func (t *tally) result() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	slices.Sort(s.FailedIDs)
	return s
}

// Option configures an enricher.
type Option func(*runner)

// WithWorkers bounds the number of concurrent extraction calls.
func WithWorkers(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMaxAttempts sets how many times one item is tried before it is
// recorded as failed.
func WithMaxAttempts(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithRateLimit caps extraction calls per second across all workers. Zero or
// less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(r *runner) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		} else {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithForce ignores cached payloads and overwrites them.
func WithForce(force bool) Option {
	return func(r *runner) {
		r.force = force
	}
}

// WithErrorLog records failed items to log.
func WithErrorLog(log *ErrorLog) Option {
	return func(r *runner) {
		r.errors = log
	}
}

// WithVersion overrides the schema version results are cached and stamped
// under.
func WithVersion(v int) Option {
	return func(r *runner) {
		r.version = v
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// runner holds what document and chunk enrichment share: cache lookups,
// bounded concurrency, rate limiting, retries and failure recording.
type runner struct {
	kind        storage.CacheKind
	extractor   ai.Extractor
	cache       storage.EnrichmentCache
	workers     int
	maxAttempts int
	limiter     *rate.Limiter
	force       bool
	version     int
	errors      *ErrorLog
	logger      *slog.Logger
}

func newRunner(kind storage.CacheKind, extractor ai.Extractor, cache storage.EnrichmentCache, version int, opts []Option) (*runner, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	r := &runner{
		kind:        kind,
		extractor:   extractor,
		cache:       cache,
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		version:     version,
		logger:      slog.Default().With("component", "enrich", "kind", string(kind)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// resolve returns the enrichment for id, from cache when possible. A
// returned error is fatal for the batch (context cancellation); per-item
// failures come back as outcomeFailed with a nil error.
func resolve[T any](ctx context.Context, r *runner, id string, input func() string, decode func([]byte) (T, error), encode func(T) ([]byte, error)) (T, outcome, error) {
	var zero T

	if !r.force {
		data, ok, err := r.cache.Get(ctx, r.kind, id, r.version)
		if err != nil {
			r.logger.Warn("cache read failed; regenerating", "id", id, "err", err)
		}
		if ok {
			v, err := decode(data)
			if err == nil {
				return v, outcomeReused, nil
			}
			r.logger.Warn("cached payload violates contract; regenerating", "id", id, "err", err)
		}
	}

	text := input()
	var lastErr error
	attempts := 0
	for attempts < r.maxAttempts {
		attempts++
		if err := r.limiter.Wait(ctx); err != nil {
			return zero, outcomeFailed, err
		}
		payload, err := r.extractor.Extract(ctx, r.instructions(), text)
		var v T
		if err == nil {
			v, err = decode(payload)
		}
		if err == nil {
			stored, encErr := encode(v)
			if encErr == nil {
				_, encErr = r.cache.Put(ctx, r.kind, id, r.version, stored, r.force)
			}
			if encErr != nil {
				r.logger.Warn("cache write failed", "id", id, "err", encErr)
			}
			return v, outcomeEnriched, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, outcomeFailed, ctxErr
		}
		lastErr = err
		r.logger.Debug("enrichment attempt failed", "id", id, "attempt", attempts, "err", err)
	}

	r.logger.Warn("enrichment failed; skipping item", "id", id, "attempts", attempts, "err", lastErr)
	if err := r.errors.Record(r.kind, id, attempts, lastErr); err != nil {
		r.logger.Error("failed to write enrichment error log", "err", err)
	}
	return zero, outcomeFailed, nil
}

func (r *runner) instructions() string {
	if r.kind == storage.CacheDocument {
		return documentInstructions
	}
	return chunkInstructions
}

// each runs fn for every index in [0, n) on a bounded pool and waits for all
// of them. The first error returned by fn is returned after the pool drains.
func (r *runner) each(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	pool, err := ants.NewPool(min(r.workers, n))
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := fn(i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return submitErr
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
