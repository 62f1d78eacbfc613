// Package schema is the static registry of diagram output schemas.
//
// Each diagram kind has one embedded JSON schema. The same literal text is
// embedded into framing prompts and compiled for validating model output.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed schemas/*.json
var files embed.FS

// ErrUnknownKind is returned for diagram kinds without a schema.
var ErrUnknownKind = errors.New("unknown diagram kind")

// Kind identifies a diagram type.
type Kind string

const (
	ClassDiagram    Kind = "ClassDiagram"
	SequenceDiagram Kind = "SequenceDiagram"
	ActivityDiagram Kind = "ActivityDiagram"
	StateDiagram    Kind = "StateDiagram"
	UseCaseDiagram  Kind = "UseCaseDiagram"
	DatabaseDiagram Kind = "DatabaseDiagram"
)

type entry struct {
	kind    Kind
	file    string
	display string
	aliases []string
}

// entries is ordered; Kinds() returns this order.
var entries = []entry{
	{ClassDiagram, "class.json", "UML Class Diagram", []string{"class"}},
	{SequenceDiagram, "sequence.json", "UML Sequence Diagram", []string{"sequence"}},
	{ActivityDiagram, "activity.json", "UML Activity Diagram", []string{"activity"}},
	{StateDiagram, "state.json", "UML State Diagram", []string{"state", "statemachine"}},
	{UseCaseDiagram, "usecase.json", "UML Use Case Diagram", []string{"usecase", "use-case"}},
	{DatabaseDiagram, "database.json", "Database ER Diagram", []string{"database", "er", "erd"}},
}

// Schema is the output contract of one diagram kind.
type Schema struct {
	kind     Kind
	display  string
	text     string
	compiled *openapi3.Schema
}

var registry = mustLoad()

func mustLoad() map[Kind]*Schema {
	out := make(map[Kind]*Schema, len(entries))
	for _, e := range entries {
		s, err := load(e)
		if err != nil {
			panic(err)
		}
		out[e.kind] = s
	}
	return out
}

func load(e entry) (*Schema, error) {
	data, err := files.ReadFile("schemas/" + e.file)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", e.kind, err)
	}
	var compiled openapi3.Schema
	if err := json.Unmarshal(data, &compiled); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", e.kind, err)
	}
	return &Schema{
		kind:     e.kind,
		display:  e.display,
		text:     strings.TrimSpace(string(data)),
		compiled: &compiled,
	}, nil
}

// Lookup returns the schema registered for kind.
func Lookup(kind Kind) (*Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds lists every registered kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.kind)
	}
	return out
}

// ParseKind resolves a kind from its canonical name, display name or a short alias.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, e := range entries {
		if norm == strings.ToLower(string(e.kind)) || norm == strings.ToLower(e.display) {
			return e.kind, nil
		}
		for _, a := range e.aliases {
			if norm == a {
				return e.kind, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kind returns the diagram kind.
func (s *Schema) Kind() Kind { return s.kind }

// DisplayName returns the human readable diagram type, e.g. "UML Class Diagram".
func (s *Schema) DisplayName() string { return s.display }

// Text returns the literal JSON schema for prompt embedding.
func (s *Schema) Text() string { return s.text }

// Validate checks a decoded JSON value against the schema.
// All violations are reported, not only the first.
func (s *Schema) Validate(value any) error {
	if err := s.compiled.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%s: %w", s.kind, err)
	}
	return nil
}
