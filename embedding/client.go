package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
)

const (
	defaultBatchSize     = 64
	defaultWorkers       = 4
	defaultMaxRetries    = 5
	defaultRetryDelay    = 2 * time.Second
	defaultMaxRetryDelay = 60 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithBatchSize sets how many texts are sent per embedder call.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithWorkers bounds concurrent batches.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRetry sets attempts per batch and the backoff bounds.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxRetries = maxAttempts
		}
		c.retryDelay = baseDelay
		c.maxRetryDelay = maxDelay
	}
}

// WithRateLimit limits embedder calls per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithProgress writes per-field progress to w.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client embeds items in batches and stamps the resulting records.
type Client struct {
	embedder      ai.Embedder
	model         string
	batchSize     int
	workers       int
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	limiter       *rate.Limiter
	progress      io.Writer
	now           func() time.Time
	logger        *slog.Logger
}

// NewClient creates a client that embeds with embedder and stamps records
// with model.
func NewClient(embedder ai.Embedder, model string, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	c := &Client{
		embedder:      embedder,
		model:         model,
		batchSize:     defaultBatchSize,
		workers:       defaultWorkers,
		maxRetries:    defaultMaxRetries,
		retryDelay:    defaultRetryDelay,
		maxRetryDelay: defaultMaxRetryDelay,
		limiter:       rate.NewLimiter(rate.Inf, 1),
		now:           time.Now,
		logger:        slog.Default().With("component", "embedding"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the embedding model name stamped on records.
func (c *Client) Model() string {
	return c.model
}

// Embed returns one record per item, in item order, with unit-length
// vectors. Any batch that exhausts its retries fails the call with
// core.ErrEmbeddingBatch and no records are returned.
func (c *Client) Embed(ctx context.Context, field core.SourceField, items []Item) ([]core.EmbeddingRecord, error) {
	if len(items) == 0 {
		return []core.EmbeddingRecord{}, nil
	}

	vectors := make([][]float32, len(items))
	batches := (len(items) + c.batchSize - 1) / c.batchSize

	var tracker *ProgressTracker
	if c.progress != nil {
		tracker = NewProgressTracker(c.progress, string(field), len(items), c.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(min(c.workers, batches))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			break
		}
		start := b * c.batchSize
		end := min(start+c.batchSize, len(items))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			out, err := c.embedBatch(ctx, items[start:end])
			if err != nil {
				fail(fmt.Errorf("%w: %s batch %d (items %d-%d): %v", core.ErrEmbeddingBatch, field, b, start, end-1, err))
				return
			}
			copy(vectors[start:end], out)
			if tracker != nil {
				tracker.Increment(end - start)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	createdAt := c.now().UTC()
	records := make([]core.EmbeddingRecord, len(items))
	for i, item := range items {
		records[i] = core.EmbeddingRecord{
			ID:                  item.ID,
			DocID:               item.DocID,
			Vector:              vectors[i],
			SourceField:         field,
			EmbeddingModel:      c.model,
			EmbeddingSetVersion: core.EmbeddingSetVersion,
			CreatedAt:           createdAt,
		}
	}
	c.logger.Info("embedded field", "field", field, "records", len(records), "batches", batches)
	return records, nil
}

// EmbedQuery embeds a single query string with the same retry policy.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	out, err := c.embedBatch(ctx, []Item{{Text: query}})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", core.ErrEmbeddingBatch, err)
	}
	return out[0], nil
}

func (c *Client) embedBatch(ctx context.Context, batch []Item) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.Text
	}

	var embeddings [][]float32
	err := RetryIf(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		embeddings, err = c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(texts), len(embeddings))
		}
		return nil
	}, IsTransient, c.maxRetries, c.retryDelay, c.maxRetryDelay)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(embeddings))
	for i, v := range embeddings {
		out[i] = NormalizeVector(v)
	}
	return out, nil
}
