// Package conversation holds the multi-modal turn history an agent exchanges with a model.
package conversation

import (
	"slices"
	"strings"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SegmentKind discriminates the Segment union.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentImage SegmentKind = "image"
)

// Segment is one piece of a turn: text, or a base64-encoded image.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Data     string      `json:"data,omitempty"`
	MIMEType string      `json:"mime_type,omitempty"`
}

// TextSegment builds a text segment.
func TextSegment(text string) Segment {
	return Segment{Kind: SegmentText, Text: text}
}

// ImageSegment builds an image segment from base64 data.
func ImageSegment(data, mimeType string) Segment {
	return Segment{Kind: SegmentImage, Data: data, MIMEType: mimeType}
}

// DataURI renders an image segment as a data URI.
func (s Segment) DataURI() string {
	return "data:" + s.MIMEType + ";base64," + s.Data
}

// Turn is an ordered list of segments from one role.
type Turn struct {
	Role     Role      `json:"role"`
	Segments []Segment `json:"segments"`
}

// Text concatenates the text segments of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, s := range t.Segments {
		if s.Kind == SegmentText {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// HasImage reports whether the turn carries at least one image.
func (t Turn) HasImage() bool {
	return slices.ContainsFunc(t.Segments, func(s Segment) bool { return s.Kind == SegmentImage })
}

func (t Turn) clone() Turn {
	return Turn{Role: t.Role, Segments: slices.Clone(t.Segments)}
}
