package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Variant is the discriminator of an agent and of the artifacts it produces.
type Variant string

const (
	VariantTextDocument Variant = "text"
	VariantDiagram      Variant = "diagram"
	VariantPrototype    Variant = "prototype"
)

// ParseVariant accepts the canonical names plus the agent type names used by API clients.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "doc", "textdocument", "textdocumentagent":
		return VariantTextDocument, nil
	case "diagram", "diagramagent":
		return VariantDiagram, nil
	case "prototype", "prototypeagent":
		return VariantPrototype, nil
	}
	return "", fmt.Errorf("unknown variant: %q", s)
}

// Fence returns the fenced block label the variant's output is extracted from.
func (v Variant) Fence() string {
	switch v {
	case VariantDiagram:
		return "json"
	case VariantPrototype:
		return "html"
	default:
		return "markdown"
	}
}

// Artifact is a generated output handed back to the caller.
type Artifact struct {
	ID      string  `json:"id"`
	Project string  `json:"project"`
	Agent   string  `json:"agent"`
	Variant Variant `json:"variant"`
	// DiagramKind is set for diagram artifacts.
	DiagramKind string    `json:"diagram_kind,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	JSON        any       `json:"json,omitempty"`
	Raw         string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Content returns the persisted representation of the artifact:
// indented JSON for diagrams, the body otherwise.
func (a Artifact) Content() (string, error) {
	if a.Variant != VariantDiagram {
		return a.Body, nil
	}
	data, err := json.MarshalIndent(a.JSON, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diagram: %w", err)
	}
	return string(data), nil
}
