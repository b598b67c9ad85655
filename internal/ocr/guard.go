package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/invoicescan/invoicescan/internal/document"
)

// Guard wraps an Engine with a circuit breaker and a single local retry.
// Empty recognition is not a failure from the breaker's point of view; only
// invocation errors trip it.
type Guard struct {
	engine  Engine
	breaker *gobreaker.CircuitBreaker[*Result]
}

// NewGuard wraps an engine.
func NewGuard(engine Engine) *Guard {
	settings := gobreaker.Settings{
		Name: "ocr-engine",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Guard{
		engine:  engine,
		breaker: gobreaker.NewCircuitBreaker[*Result](settings),
	}
}

// Recognize invokes the wrapped engine, retrying once on invocation failure
// before surfacing ErrEngineUnavailable.
func (g *Guard) Recognize(ctx context.Context, page document.Page, opts Options) (*Result, error) {
	result, err := g.attempt(ctx, page, opts)
	if err != nil && ctx.Err() == nil {
		result, err = g.attempt(ctx, page, opts)
	}
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if result.Empty() {
		return result, ErrEmptyRecognition
	}
	return result, nil
}

func (g *Guard) attempt(ctx context.Context, page document.Page, opts Options) (*Result, error) {
	return g.breaker.Execute(func() (*Result, error) {
		result, err := g.engine.Recognize(ctx, page, opts)
		if errors.Is(err, ErrEmptyRecognition) {
			// success as far as the breaker is concerned
			return result, nil
		}
		return result, err
	})
}

// Close closes the wrapped engine.
func (g *Guard) Close() error {
	return g.engine.Close()
}
