// Package models defines the data structures shared by the docforge generation core.
package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Requirements holds the free-text requirement fields of a project.
type Requirements struct {
	Input    string            `json:"input" yaml:"input"`
	Output   string            `json:"output" yaml:"output"`
	Features map[string]string `json:"features" yaml:"features"`
	Further  string            `json:"further" yaml:"further"`
}

// Complete reports whether every requirement field is populated.
func (r Requirements) Complete() bool {
	if strings.TrimSpace(r.Input) == "" || strings.TrimSpace(r.Output) == "" {
		return false
	}
	if strings.TrimSpace(r.Further) == "" {
		return false
	}
	return len(r.Features) > 0
}

// FeatureNames returns the feature names in sorted order.
func (r Requirements) FeatureNames() []string {
	return slices.Sorted(maps.Keys(r.Features))
}

// ProjectContext is the snapshot of project facts rendered into prompts.
// Agents only write to it to record artifacts they just produced.
type ProjectContext struct {
	ProjectName         string       `json:"project_name"`
	Requirements        Requirements `json:"requirements"`
	TechStack           string       `json:"tech_stack"`
	TabularDescriptions []string     `json:"tabular_descriptions"`
	ReferenceImages     []string     `json:"reference_images"`
	DiagramImages       []string     `json:"diagram_images"`
	GeneratedTextDocs   DocSet       `json:"generated_text_docs"`
	GeneratedDiagrams   DocSet       `json:"generated_diagrams"`
	PrototypeCode       string       `json:"prototype_code,omitempty"`
}

// Ready implements the readiness gate: requirements and tabular data must be present.
func (c *ProjectContext) Ready() bool {
	if c == nil || !c.Requirements.Complete() {
		return false
	}
	if len(c.TabularDescriptions) == 0 {
		return false
	}
	for _, d := range c.TabularDescriptions {
		if strings.TrimSpace(d) != "" {
			return true
		}
	}
	return false
}

// Images returns reference images followed by diagram images.
func (c *ProjectContext) Images() []string {
	out := make([]string, 0, len(c.ReferenceImages)+len(c.DiagramImages))
	out = append(out, c.ReferenceImages...)
	return append(out, c.DiagramImages...)
}

// DiagramKey is the GeneratedDiagrams key of a diagram. Diagrams of
// different kinds may share a name.
func DiagramKey(kind, name string) string {
	if kind == "" {
		return name
	}
	return kind + "/" + name
}

// MergeDiagram records a generated diagram under key (see DiagramKey).
func (c *ProjectContext) MergeDiagram(key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	c.GeneratedDiagrams.Set(key, string(data))
	return nil
}

// Diagram decodes the generated diagram stored under key.
func (c *ProjectContext) Diagram(key string) (any, bool) {
	raw, ok := c.GeneratedDiagrams.Get(key)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return v, true
}

// Clone returns a deep copy so callers can hand out snapshots.
func (c *ProjectContext) Clone() *ProjectContext {
	out := *c
	out.Requirements.Features = maps.Clone(c.Requirements.Features)
	out.TabularDescriptions = slices.Clone(c.TabularDescriptions)
	out.ReferenceImages = slices.Clone(c.ReferenceImages)
	out.DiagramImages = slices.Clone(c.DiagramImages)
	out.GeneratedTextDocs = c.GeneratedTextDocs.Clone()
	out.GeneratedDiagrams = c.GeneratedDiagrams.Clone()
	return &out
}

// KeepGenerated copies the generated artifacts of prev that c does not have.
// Artifacts already in c win.
func (c *ProjectContext) KeepGenerated(prev *ProjectContext) {
	if prev == nil {
		return
	}
	prev.GeneratedTextDocs.Each(func(title, body string) {
		if _, ok := c.GeneratedTextDocs.Get(title); !ok {
			c.GeneratedTextDocs.Set(title, body)
		}
	})
	prev.GeneratedDiagrams.Each(func(key, value string) {
		if _, ok := c.GeneratedDiagrams.Get(key); !ok {
			c.GeneratedDiagrams.Set(key, value)
		}
	})
	if strings.TrimSpace(c.PrototypeCode) == "" {
		c.PrototypeCode = prev.PrototypeCode
	}
}

// Apply records an artifact in the matching generated set.
func (c *ProjectContext) Apply(a Artifact) error {
	switch a.Variant {
	case VariantDiagram:
		return c.MergeDiagram(DiagramKey(a.DiagramKind, a.Title), a.JSON)
	case VariantPrototype:
		c.PrototypeCode = a.Body
	case VariantTextDocument:
		c.GeneratedTextDocs.Set(a.Title, a.Body)
	default:
		return fmt.Errorf("apply artifact: unknown variant %q", a.Variant)
	}
	return nil
}
