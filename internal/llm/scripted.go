package llm

import (
	"context"
	"sync"

	"github.com/raphaelgruber/docforge/internal/conversation"
)

// Scripted replays canned responses in order. It records every request so
// tests can inspect what an agent sent.
type Scripted struct {
	mu    sync.Mutex
	steps []step
	calls []Call
}

type step struct {
	text string
	err  error
}

// Call is one recorded request.
type Call struct {
	Model string
	Turns []conversation.Turn
}

var _ Completer = (*Scripted)(nil)

// NewScripted creates a completer answering with responses in order.
func NewScripted(responses ...string) *Scripted {
	s := &Scripted{}
	for _, r := range responses {
		s.Push(r)
	}
	return s
}

// Push queues a response.
func (s *Scripted) Push(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{text: text})
}

// PushError queues a failure.
func (s *Scripted) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{err: err})
}

// Complete pops the next queued step.
func (s *Scripted) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Model: model, Turns: turns})
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(s.steps) == 0 {
		return Response{}, ErrScriptExhausted
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.err != nil {
		return Response{}, next.err
	}
	return Response{Text: next.text, InputTokens: int64(len(turns)), OutputTokens: int64(len(next.text))}, nil
}

// Calls returns the recorded requests.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Remaining returns the number of queued steps.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
