package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBreakerEmbedderPassThrough(t *testing.T) {
	inner := NewMockEmbedder(16)
	guarded := NewBreakerEmbedder(inner, zap.NewNop())

	vec, err := guarded.EmbedText(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, vec, 16)

	vecs, err := guarded.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 16, guarded.Dimensions())
}

func TestBreakerEmbedderEmptyBatch(t *testing.T) {
	inner := NewMockEmbedder(16)
	guarded := NewBreakerEmbedder(inner, zap.NewNop())

	vecs, err := guarded.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, inner.Calls(), "empty batches never reach the inner embedder")
}

func TestBreakerEmbedderPropagatesErrors(t *testing.T) {
	inner := NewMockEmbedder(16)
	inner.SetError(errors.New("quota exceeded"))
	guarded := NewBreakerEmbedder(inner, zap.NewNop())

	_, err := guarded.EmbedText(context.Background(), "some text")
	assert.Error(t, err)
}

func TestBreakerEmbedderOpensAfterRepeatedFailures(t *testing.T) {
	inner := NewMockEmbedder(16)
	inner.SetError(errors.New("service down"))
	guarded := NewBreakerEmbedder(inner, zap.NewNop())

	for i := 0; i < 10; i++ {
		_, _ = guarded.EmbedText(context.Background(), "text")
	}

	inner.SetError(nil)
	_, err := guarded.EmbedText(context.Background(), "text")
	assert.Error(t, err, "the open breaker rejects calls without reaching the embedder")
}
