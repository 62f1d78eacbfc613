package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/metrics"
	"golang.org/x/time/rate"
)

// slowCompletionThreshold is the duration above which completions are logged at WARN level.
const slowCompletionThreshold = 2 * time.Minute

// Middleware decorates a Completer with a cross-cutting concern.
type Middleware func(Completer) Completer

// Wrap applies middlewares in left-to-right order: Wrap(c, A, B) is A(B(c)).
func Wrap(inner Completer, mws ...Middleware) Completer {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs every completion with its duration and token usage.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
			start := time.Now()
			logger.Debug("completion started", "model", model, "turns", len(turns), "images", countImages(turns))

			resp, err := next.Complete(ctx, model, turns)
			duration := time.Since(start)

			attrs := []any{
				"model", model,
				"turns", len(turns),
				"duration_ms", duration.Milliseconds(),
			}
			switch {
			case err != nil:
				logger.Error("completion failed", append(attrs, "error", err)...)
			case duration > slowCompletionThreshold:
				logger.Warn("slow completion", append(attrs, "input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens)...)
			default:
				logger.Info("completion finished", append(attrs, "input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens)...)
			}
			return resp, err
		})
	}
}

// WithMetrics records timing and token usage of successful completions.
func WithMetrics(c *metrics.Collector) Middleware {
	return func(next Completer) Completer {
		return CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
			start := time.Now()
			resp, err := next.Complete(ctx, model, turns)
			if err != nil {
				c.RecordFailure(metrics.OpCompletion)
				return resp, err
			}
			c.RecordLLMUsage(metrics.OpCompletion, time.Since(start), resp.InputTokens, resp.OutputTokens)
			return resp, nil
		})
	}
}

// WithTimeout bounds each completion. d <= 0 leaves the context untouched.
func WithTimeout(d time.Duration) Middleware {
	return func(next Completer) Completer {
		if d <= 0 {
			return next
		}
		return CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Complete(ctx, model, turns)
		})
	}
}

// RateLimit throttles completions to rps requests per second with a burst.
// rps <= 0 disables the limiter. A wait that cannot finish before the context
// deadline fails immediately.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Completer) Completer {
		if rps <= 0 {
			return next
		}
		rl := rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		return CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
			if err := rl.Wait(ctx); err != nil {
				return Response{}, fmt.Errorf("rate limit: %w", err)
			}
			return next.Complete(ctx, model, turns)
		})
	}
}
