package embedding

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerEmbedder wraps an Embedder with a circuit breaker. Embedding is
// called per candidate and against history corpora, so a degraded backend
// needs to fail fast.
type BreakerEmbedder struct {
	inner  Embedder
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerEmbedder decorates the embedder with a circuit breaker.
func NewBreakerEmbedder(inner Embedder, logger *zap.Logger) *BreakerEmbedder {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &BreakerEmbedder{inner: inner, cb: cb, logger: logger}
}

// EmbedText embeds one text through the circuit breaker.
func (e *BreakerEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	result, err := e.cb.Execute(func() (interface{}, error) {
		return e.inner.EmbedText(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

// EmbedBatch embeds a batch through the circuit breaker.
func (e *BreakerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result, err := e.cb.Execute(func() (interface{}, error) {
		return e.inner.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (e *BreakerEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}
