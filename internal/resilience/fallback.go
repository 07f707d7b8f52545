package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Strategy is one attempt in an ordered fallback chain. Each strategy gets
// its own time budget, independent of the caller's overall deadline.
type Strategy[T any] struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) (T, error)
}

// RunFallbackChain tries each strategy in order until one yields a value.
// A strategy failure is logged at warn level, never surfaced; only when all
// strategies are exhausted does the chain fail, returning the last error.
//
// This is the shape behind the best-effort lookups in the analytics engine:
// contributor counting, the minimal repository fetch, manifest parsing.
func RunFallbackChain[T any](ctx context.Context, name string, strategies []Strategy[T]) (T, error) {
	var zero T
	var lastErr error

	for _, s := range strategies {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		runCtx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}

		value, err := s.Run(runCtx)
		if err == nil {
			return value, nil
		}

		lastErr = err
		slog.Warn("Fallback strategy failed",
			"chain", name,
			"strategy", s.Name,
			"error", err)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fallback chain %s has no strategies", name)
	}

	return zero, lastErr
}

// RunFallbackChainWithDefault is RunFallbackChain with a final implicit
// strategy that always succeeds with def. It never returns an error.
func RunFallbackChainWithDefault[T any](ctx context.Context, name string, def T, strategies []Strategy[T]) T {
	value, err := RunFallbackChain(ctx, name, strategies)
	if err != nil {
		slog.Warn("Fallback chain exhausted, using default", "chain", name, "error", err)
		return def
	}
	return value
}
