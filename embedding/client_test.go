package embedding

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/voxdex/ai/mock"
	"github.com/poiesic/voxdex/core"
)

func testItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		id := core.ChunkID("ep1", i)
		items[i] = Item{ID: id, DocID: "ep1", Text: "text of " + id}
	}
	return items
}

func TestClientEmbed(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	})
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(embedder, "text-embedding-3-small", WithBatchSize(3), WithWorkers(2), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	items := testItems(7)
	records, err := client.Embed(context.Background(), core.SourceChunkText, items)
	require.NoError(t, err)
	require.Len(t, records, 7)

	assert.Equal(t, 3, embedder.CallCount(), "7 items in batches of 3")
	for i, r := range records {
		assert.Equal(t, items[i].ID, r.ID)
		assert.Equal(t, "ep1", r.DocID)
		assert.Equal(t, core.SourceChunkText, r.SourceField)
		assert.Equal(t, "text-embedding-3-small", r.EmbeddingModel)
		assert.Equal(t, core.EmbeddingSetVersion, r.EmbeddingSetVersion)
		assert.Equal(t, fixed, r.CreatedAt)
		assert.InDelta(t, 0.6, r.Vector[0], 1e-6)
		assert.InDelta(t, 0.8, r.Vector[1], 1e-6)
	}
}

func TestClientEmbedPreservesOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	client, err := NewClient(embedder, "m", WithBatchSize(2), WithWorkers(4))
	require.NoError(t, err)

	items := testItems(9)
	records, err := client.Embed(context.Background(), core.SourceChunkSummary, items)
	require.NoError(t, err)
	for i, r := range records {
		want := mock.DeterministicVector(items[i].Text, mock.DefaultDimension)
		require.Len(t, r.Vector, len(want))
		for j := range want {
			assert.InDelta(t, want[j], r.Vector[j], 1e-5)
		}
	}
}

func TestClientEmbedUnitLength(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(i + 1), 2, -7, 0.5}
		}
		return out, nil
	})
	client, err := NewClient(embedder, "m")
	require.NoError(t, err)

	records, err := client.Embed(context.Background(), core.SourceChunkText, testItems(4))
	require.NoError(t, err)
	for _, r := range records {
		var sum float64
		for _, v := range r.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	}
}

func TestClientEmbedRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) <= 2 {
			return nil, errors.New("503 service unavailable")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	})
	client, err := NewClient(embedder, "m", WithRetry(3, time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	records, err := client.Embed(context.Background(), core.SourceChunkText, testItems(2))
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientEmbedPermanentErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		return nil, errors.New("API returned unexpected status code: 401: invalid api key")
	})
	client, err := NewClient(embedder, "m", WithWorkers(1), WithRetry(5, time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), core.SourceChunkText, testItems(1))
	assert.ErrorIs(t, err, core.ErrEmbeddingBatch)
	assert.Contains(t, err.Error(), "401")
	assert.EqualValues(t, 1, calls.Load(), "permanent errors are not retried")
}

func TestClientEmbedExhaustionIsFatal(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "ep1::chunk::4") {
			return nil, errors.New("rate limited")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	})
	client, err := NewClient(embedder, "m", WithBatchSize(2), WithRetry(2, time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	records, err := client.Embed(context.Background(), core.SourceChunkIntents, testItems(6))
	assert.ErrorIs(t, err, core.ErrEmbeddingBatch)
	assert.Contains(t, err.Error(), "chunk_intents")
	assert.Nil(t, records)
}

func TestClientEmbedCountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	client, err := NewClient(embedder, "m", WithRetry(1, 0, 0))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), core.SourceChunkText, testItems(3))
	assert.ErrorIs(t, err, core.ErrEmbeddingBatch)
	assert.Contains(t, err.Error(), ErrCountMismatch.Error())
}

func TestClientEmbedEmpty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	client, err := NewClient(embedder, "m")
	require.NoError(t, err)

	records, err := client.Embed(context.Background(), core.SourceDocSummary, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, embedder.CallCount())
}

func TestClientEmbedProgress(t *testing.T) {
	var buf bytes.Buffer
	client, err := NewClient(mock.NewMockEmbedder(), "m", WithBatchSize(2), WithWorkers(1), WithProgress(&buf))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), core.SourceChunkText, testItems(4))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "chunk_text: 4/4")
}

func TestClientEmbedQuery(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0, 2}}, nil
	})
	client, err := NewClient(embedder, "m")
	require.NoError(t, err)

	v, err := client.EmbedQuery(context.Background(), "what is agi")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
	assert.Equal(t, []string{"what is agi"}, embedder.Texts())
}

func TestNewClientRequiresEmbedder(t *testing.T) {
	_, err := NewClient(nil, "m")
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
