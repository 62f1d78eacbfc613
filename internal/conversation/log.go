package conversation

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyConversation is returned when the framing turn is replaced before it exists.
var ErrEmptyConversation = errors.New("conversation is empty")

// Log is the ordered turn history owned by a single agent.
// It does no locking; the owner serializes access.
type Log struct {
	turns  []Turn
	images *ImageLoader
	logger *slog.Logger
}

// NewLog creates an empty log. A nil loader reads images without caching.
func NewLog(images *ImageLoader, logger *slog.Logger) *Log {
	if images == nil {
		images = NewImageLoader(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{images: images, logger: logger}
}

// Len returns the number of turns.
func (l *Log) Len() int {
	return len(l.turns)
}

// AddUserText appends a user turn with one text segment.
func (l *Log) AddUserText(text string) {
	l.turns = append(l.turns, Turn{Role: RoleUser, Segments: []Segment{TextSegment(text)}})
}

// AddUserImage appends a user turn with one image segment. ref is a file path
// or a data URI. Unsupported file types are skipped with a warning and
// reported as not added.
func (l *Log) AddUserImage(ref string) (bool, error) {
	seg, err := l.images.Load(ref)
	if errors.Is(err, ErrUnsupportedImage) {
		l.logger.Warn("skipping unsupported image", "ref", truncate(ref, 80))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add image: %w", err)
	}
	l.turns = append(l.turns, Turn{Role: RoleUser, Segments: []Segment{seg}})
	return true, nil
}

// AppendFraming appends the framing text as the first turn of an empty log.
func (l *Log) AppendFraming(text string) error {
	if len(l.turns) != 0 {
		return fmt.Errorf("append framing: log already has %d turns", len(l.turns))
	}
	l.AddUserText(text)
	return nil
}

// ReplaceFramingTurn overwrites turn 0 with a new framing text turn.
func (l *Log) ReplaceFramingTurn(text string) error {
	if len(l.turns) == 0 {
		return ErrEmptyConversation
	}
	l.turns[0] = Turn{Role: RoleUser, Segments: []Segment{TextSegment(text)}}
	return nil
}

// LastRole returns the role of the most recent turn.
func (l *Log) LastRole() (Role, bool) {
	if len(l.turns) == 0 {
		return "", false
	}
	return l.turns[len(l.turns)-1].Role, true
}

// AppendModelResponse appends an assistant turn wrapping the raw response text.
func (l *Log) AppendModelResponse(text string) {
	l.turns = append(l.turns, Turn{Role: RoleAssistant, Segments: []Segment{TextSegment(text)}})
}

// Snapshot returns a copy of the turns for a completion request.
func (l *Log) Snapshot() []Turn {
	out := make([]Turn, len(l.turns))
	for i, t := range l.turns {
		out[i] = t.clone()
	}
	return out
}

// Reset drops every turn.
func (l *Log) Reset() {
	l.turns = nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
