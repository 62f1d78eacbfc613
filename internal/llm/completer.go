// Package llm provides completion backends for agent conversations.
package llm

import (
	"context"

	"github.com/raphaelgruber/docforge/internal/conversation"
)

// Response is a single assistant message returned by a backend.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Completer sends a conversation to a model and returns its reply.
// Implementations must accept interleaved text and image segments.
type Completer interface {
	Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, model string, turns []conversation.Turn) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	return f(ctx, model, turns)
}

// mergeConsecutive folds adjacent turns of the same role into one turn, for
// providers that require strictly alternating roles.
func mergeConsecutive(turns []conversation.Turn) []conversation.Turn {
	out := make([]conversation.Turn, 0, len(turns))
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			out[n-1].Segments = append(out[n-1].Segments, t.Segments...)
			continue
		}
		out = append(out, conversation.Turn{Role: t.Role, Segments: append([]conversation.Segment(nil), t.Segments...)})
	}
	return out
}

func countImages(turns []conversation.Turn) int {
	n := 0
	for _, t := range turns {
		if t.HasImage() {
			n++
		}
	}
	return n
}
