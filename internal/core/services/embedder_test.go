package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text %d", i)
	}
	return out
}

func TestEmbedder_EmptyInputMakesNoCall(t *testing.T) {
	p := &mockProvider{}
	e := newTestEmbedder(p)

	vectors, err := e.Embed(context.Background(), nil, domain.EmbedModeDocument)

	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.NotNil(t, vectors)
	assert.Equal(t, 0, p.callCount())
}

func TestEmbedder_BatchesAtMost128(t *testing.T) {
	p := &mockProvider{}
	e := newTestEmbedder(p)

	vectors, err := e.Embed(context.Background(), texts(300), domain.EmbedModeDocument)

	require.NoError(t, err)
	assert.Len(t, vectors, 300)
	require.Len(t, p.calls, 3)
	assert.Len(t, p.calls[0], 128)
	assert.Len(t, p.calls[1], 128)
	assert.Len(t, p.calls[2], 44)
}

func TestEmbedder_PreservesOrder(t *testing.T) {
	p := &mockProvider{embedFn: func(s string) []float32 {
		var n int
		_, _ = fmt.Sscanf(s, "text %d", &n)
		return []float32{float32(n)}
	}, dims: 1}
	e := NewEmbedder(p, domain.EmbeddingConfig{BatchSize: 7}, nil)

	vectors, err := e.Embed(context.Background(), texts(30), domain.EmbedModeDocument)

	require.NoError(t, err)
	require.Len(t, vectors, 30)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Len(t, p.calls, 5)
}

func TestEmbedder_PassesMode(t *testing.T) {
	p := &mockProvider{}
	e := newTestEmbedder(p)

	_, err := e.Embed(context.Background(), []string{"q"}, domain.EmbedModeQuery)

	require.NoError(t, err)
	assert.Equal(t, []domain.EmbedMode{domain.EmbedModeQuery}, p.modes)
}

func TestEmbedder_InvalidMode(t *testing.T) {
	e := newTestEmbedder(&mockProvider{})
	_, err := e.Embed(context.Background(), []string{"q"}, "passage")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbedder_ProviderErrorPropagatesWithoutRetry(t *testing.T) {
	p := &mockProvider{err: errBoom}
	e := newTestEmbedder(p)

	_, err := e.Embed(context.Background(), texts(3), domain.EmbedModeDocument)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, p.callCount())
}

func TestEmbedder_CountMismatchIsError(t *testing.T) {
	e := newTestEmbedder(&mockProvider{short: true})
	_, err := e.Embed(context.Background(), texts(3), domain.EmbedModeDocument)
	assert.ErrorIs(t, err, domain.ErrCountMismatch)
}

func TestEmbedder_DimensionMismatchIsError(t *testing.T) {
	// A provider configured for 1024 values that returns 3 after a model change.
	p := &mockProvider{dims: 1024, embedFn: func(string) []float32 { return []float32{1, 0, 0} }}
	e := newTestEmbedder(p)

	vectors, err := e.Embed(context.Background(), texts(2), domain.EmbedModeQuery)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "provider reports 1024")
}

func TestEmbedder_Unavailable(t *testing.T) {
	e := NewEmbedder(nil, domain.EmbeddingConfig{}, nil)
	assert.False(t, e.Available())
	assert.Equal(t, 0, e.Dimensions())

	_, err := e.Embed(context.Background(), []string{"x"}, domain.EmbedModeDocument)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	var nilEmbedder *Embedder
	assert.False(t, nilEmbedder.Available())
}

func TestEmbedder_DelaysBetweenBatches(t *testing.T) {
	p := &mockProvider{}
	delay := 40 * time.Millisecond
	e := NewEmbedder(p, domain.EmbeddingConfig{BatchSize: 1, BatchDelay: delay}, nil)

	_, err := e.Embed(context.Background(), texts(3), domain.EmbedModeDocument)

	require.NoError(t, err)
	require.Len(t, p.callAt, 3)
	for i := 1; i < len(p.callAt); i++ {
		// allow a little scheduler slack below the configured delay
		assert.GreaterOrEqual(t, p.callAt[i].Sub(p.callAt[i-1]), delay-5*time.Millisecond)
	}
}

func TestEmbedder_ContextCancelledWhileWaiting(t *testing.T) {
	p := &mockProvider{}
	e := NewEmbedder(p, domain.EmbeddingConfig{BatchSize: 1, BatchDelay: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Embed(ctx, texts(2), domain.EmbedModeDocument)

	assert.Error(t, err)
	assert.Equal(t, 1, p.callCount())
}
