// Package store persists generated artifacts as files, objects or database
// records.
package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/parser"
)

// ErrNotFound is returned when an artifact does not exist in a store.
var ErrNotFound = errors.New("artifact not found")

// Sink saves artifacts.
type Sink interface {
	Save(ctx context.Context, a models.Artifact) error
}

// Source lists the stored artifacts of a project.
type Source interface {
	List(ctx context.Context, project string) ([]models.Artifact, error)
}

// Store is a Sink that can read back what it saved.
type Store interface {
	Sink
	Source
}

// Multi saves to every sink and lists from the first.
type Multi []Store

// Save writes a to every store, joining the errors.
func (m Multi) Save(ctx context.Context, a models.Artifact) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List reads from the first store.
func (m Multi) List(ctx context.Context, project string) ([]models.Artifact, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].List(ctx, project)
}

// relPath is the location of an artifact relative to a project's output
// directory. Keys are shared by the file and object stores.
func relPath(a models.Artifact) (string, error) {
	switch a.Variant {
	case models.VariantTextDocument:
		return path.Join("docs", slugOrDefault(a.Title, "document")+".md"), nil
	case models.VariantDiagram:
		return path.Join("diagrams", a.DiagramKind, slugOrDefault(a.Title, "diagram")+".json"), nil
	case models.VariantPrototype:
		return path.Join("prototype", "index.html"), nil
	}
	return "", fmt.Errorf("unknown variant %q", a.Variant)
}

func slugOrDefault(title, fallback string) string {
	if s := models.Slugify(title); s != "" {
		return s
	}
	return fallback
}

func contentType(a models.Artifact) string {
	switch a.Variant {
	case models.VariantDiagram:
		return "application/json"
	case models.VariantPrototype:
		return "text/html; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// encode renders a in its stored form. Documents get frontmatter with their
// position in the project.
func encode(a models.Artifact, order int) ([]byte, error) {
	if a.Variant != models.VariantTextDocument {
		content, err := a.Content()
		if err != nil {
			return nil, err
		}
		return []byte(content), nil
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	out, err := parser.RenderDocument(parser.Frontmatter{
		Title:       a.Title,
		Agent:       a.Agent,
		Order:       order,
		GeneratedAt: createdAt,
	}, a.Body)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// stored is a decoded artifact with its document order.
type stored struct {
	artifact models.Artifact
	order    int
	key      string
}

// decode is the inverse of encode for the object at rel.
func decode(project, rel string, data []byte) (stored, error) {
	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	s := stored{key: rel}
	a := &s.artifact
	a.Project = project

	section, kind, _ := strings.Cut(strings.TrimSuffix(dir, "/"), "/")
	if kind != "" && (section != "diagrams" || strings.Contains(kind, "/")) {
		return s, fmt.Errorf("%s: unknown artifact location", rel)
	}

	switch section {
	case "docs":
		doc, err := parser.ParseDocument(string(data))
		if err != nil {
			return s, fmt.Errorf("%s: %w", rel, err)
		}
		a.Variant = models.VariantTextDocument
		a.Title = cmp.Or(doc.Title, stem)
		a.Body = doc.Body
		a.Agent = doc.Frontmatter.Agent
		a.CreatedAt = doc.Frontmatter.GeneratedAt
		s.order = doc.Frontmatter.Order
	case "diagrams":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return s, fmt.Errorf("%s: %w", rel, err)
		}
		a.Variant = models.VariantDiagram
		a.DiagramKind = kind
		a.Title = stem
		if obj, ok := v.(map[string]any); ok {
			if name, ok := obj["diagramName"].(string); ok && name != "" {
				a.Title = name
			}
		}
		a.JSON = v
	case "prototype":
		a.Variant = models.VariantPrototype
		a.Title = "Prototype"
		a.Body = string(data)
	default:
		return s, fmt.Errorf("%s: unknown artifact location", rel)
	}
	return s, nil
}

var variantRank = map[models.Variant]int{
	models.VariantTextDocument: 0,
	models.VariantDiagram:      1,
	models.VariantPrototype:    2,
}

// sortStored orders documents by their order field, then diagrams by key,
// then the prototype.
func sortStored(items []stored) []models.Artifact {
	slices.SortStableFunc(items, func(a, b stored) int {
		return cmp.Or(
			cmp.Compare(variantRank[a.artifact.Variant], variantRank[b.artifact.Variant]),
			cmp.Compare(a.order, b.order),
			cmp.Compare(a.key, b.key),
		)
	})
	out := make([]models.Artifact, len(items))
	for i, s := range items {
		out[i] = s.artifact
	}
	return out
}
