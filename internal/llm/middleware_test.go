package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textTurns(texts ...string) []conversation.Turn {
	turns := make([]conversation.Turn, 0, len(texts))
	for _, s := range texts {
		turns = append(turns, conversation.Turn{Role: conversation.RoleUser, Segments: []conversation.Segment{conversation.TextSegment(s)}})
	}
	return turns
}

func TestWrap_AppliesLeftToRight(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Completer) Completer {
			return CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
				order = append(order, name)
				return next.Complete(ctx, model, turns)
			})
		}
	}

	c := Wrap(NewScripted("ok"), tag("A"), tag("B"))
	_, err := c.Complete(context.Background(), "m", textTurns("hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestWithMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	stub := NewScripted("answer")
	stub.PushError(errors.New("boom"))
	c := Wrap(stub, WithMetrics(collector))

	_, err := c.Complete(context.Background(), "m", textTurns("a", "b"))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "m", textTurns("a"))
	require.Error(t, err)

	snap := collector.Snapshot()
	op := snap.Ops[metrics.OpCompletion]
	require.NotNil(t, op)
	assert.Equal(t, int64(1), op.Count)
	assert.Equal(t, int64(1), op.Failures)
	require.NotNil(t, op.TotalInputTokens)
	assert.Equal(t, int64(2), *op.TotalInputTokens)
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	stub := NewScripted("answer")
	stub.PushError(errors.New("provider down"))
	c := Wrap(stub, WithLogging(logger))

	_, _ = c.Complete(context.Background(), "gemini", textTurns("a"))
	_, _ = c.Complete(context.Background(), "gemini", textTurns("a"))

	out := buf.String()
	assert.Contains(t, out, "completion finished")
	assert.Contains(t, out, "completion failed")
	assert.Contains(t, out, "provider down")
}

func TestWithLogging_CountsImageTurns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := Wrap(NewScripted("answer"), WithLogging(logger))

	turns := append(textTurns("frame"), conversation.Turn{
		Role:     conversation.RoleUser,
		Segments: []conversation.Segment{conversation.ImageSegment("aGVsbG8=", "image/png")},
	})
	_, err := c.Complete(context.Background(), "gemini", turns)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "images=1")
}

func TestWithTimeout(t *testing.T) {
	slow := CompleterFunc(func(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	})

	c := Wrap(slow, WithTimeout(10*time.Millisecond))
	_, err := c.Complete(context.Background(), "m", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	stub := NewScripted("x")
	c := RateLimit(0, 0)(stub)
	assert.Same(t, Completer(stub), c)
}

func TestRateLimit_HonoursContext(t *testing.T) {
	stub := NewScripted("a", "b")
	c := Wrap(stub, RateLimit(0.001, 1))

	_, err := c.Complete(context.Background(), "m", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Complete(ctx, "m", nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "a wait past the deadline fails early")
	assert.Len(t, stub.Calls(), 1)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = c.Complete(cancelled, "m", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimit_BurstPassesWithoutWaiting(t *testing.T) {
	stub := NewScripted("a", "b", "c")
	c := Wrap(stub, RateLimit(0.001, 3))

	for range 3 {
		_, err := c.Complete(context.Background(), "m", nil)
		require.NoError(t, err)
	}
	assert.Len(t, stub.Calls(), 3)
}

func TestScripted(t *testing.T) {
	s := NewScripted("one")
	s.PushError(ErrFatalAPI)

	resp, err := s.Complete(context.Background(), "m", textTurns("a"))
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Text)

	_, err = s.Complete(context.Background(), "m", nil)
	assert.ErrorIs(t, err, ErrFatalAPI)

	_, err = s.Complete(context.Background(), "m", nil)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Len(t, s.Calls(), 3)
	assert.Zero(t, s.Remaining())
}
