package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerProvider wraps a Provider with a circuit breaker so a flapping
// generation backend fails fast instead of stalling every slot of a run.
type BreakerProvider struct {
	inner  Provider
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerProvider decorates the provider with a circuit breaker.
func NewBreakerProvider(inner Provider, logger *zap.Logger) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation",
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
	return &BreakerProvider{inner: inner, cb: cb, logger: logger}
}

// IsAvailable reports availability of the wrapped provider while the
// circuit allows requests.
func (p *BreakerProvider) IsAvailable() bool {
	return p.inner.IsAvailable() && p.cb.State() != gobreaker.StateOpen
}

// Complete executes the completion through the circuit breaker.
func (p *BreakerProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Complete(ctx, prompt, options)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
