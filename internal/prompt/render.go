// Package prompt renders project context into the text sent to a model.
// Every function here is pure: equal inputs give byte-identical output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/schema"
)

// Target names the artifact a prompt asks for.
type Target struct {
	Variant models.Variant
	// Diagram is required when Variant is models.VariantDiagram.
	Diagram schema.Kind
}

// Text targets a textual specification document.
func Text() Target { return Target{Variant: models.VariantTextDocument} }

// Diagram targets a diagram of the given kind.
func Diagram(kind schema.Kind) Target { return Target{Variant: models.VariantDiagram, Diagram: kind} }

// Prototype targets the HTML prototype.
func Prototype() Target { return Target{Variant: models.VariantPrototype} }

// Noun describes the artifact in prose.
func (t Target) Noun() string {
	switch t.Variant {
	case models.VariantDiagram:
		if s, err := schema.Lookup(t.Diagram); err == nil {
			return s.DisplayName()
		}
		return "diagram"
	case models.VariantPrototype:
		return "HTML prototype"
	default:
		return "specification document"
	}
}

// Render builds the framing prompt for target. It returns false when the
// context does not pass the readiness gate; callers skip generation then.
func Render(pc *models.ProjectContext, target Target) (string, bool) {
	if !pc.Ready() {
		return "", false
	}

	var diagram *schema.Schema
	if target.Variant == models.VariantDiagram {
		s, err := schema.Lookup(target.Diagram)
		if err != nil {
			return "", false
		}
		diagram = s
	}

	var b strings.Builder
	b.WriteString(role(target, diagram))
	b.WriteString("\n\n")

	if diagram != nil {
		writeSection(&b, "OUTPUT SCHEMA", "Your JSON output must conform to this schema:\n"+fenced("json", diagram.Text()))
	}

	writeSection(&b, "PROJECT", projectInfo(pc))
	writeSection(&b, "FEATURE TABLES", tables(pc.TabularDescriptions))

	if pc.GeneratedTextDocs.Len() > 0 {
		writeSection(&b, "GENERATED DOCUMENTS",
			"These documents were already produced for this project. Stay consistent with them.\n\n"+
				delimited(pc.GeneratedTextDocs))
	}
	if target.Variant == models.VariantDiagram && pc.GeneratedDiagrams.Len() > 0 {
		writeSection(&b, "GENERATED DIAGRAMS",
			"These diagrams were already produced. Keep names and relationships consistent with them.\n\n"+
				delimited(pc.GeneratedDiagrams))
	}
	if target.Variant == models.VariantPrototype && strings.TrimSpace(pc.PrototypeCode) != "" {
		writeSection(&b, "CURRENT PROTOTYPE", fenced("html", pc.PrototypeCode))
	}

	writeSection(&b, "OUTPUT FORMAT", outputFormat(target))
	return strings.TrimRight(b.String(), "\n") + "\n", true
}

func role(t Target, diagram *schema.Schema) string {
	switch t.Variant {
	case models.VariantDiagram:
		return fmt.Sprintf("You are a %s generator. Based on the project information below, produce a %s "+
			"as JSON that follows the schema exactly.", diagram.DisplayName(), diagram.DisplayName())
	case models.VariantPrototype:
		return "You are a front-end prototyping assistant. Based on the project information and the attached UI " +
			"mockups, build a working single-file prototype using HTML, CSS and vanilla JavaScript."
	default:
		return "You are a software specification writer. Based on the project information and the attached UI " +
			"mockups, write one detailed, professional specification document per request."
	}
}

func projectInfo(pc *models.ProjectContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project Name: %s\n", pc.ProjectName)
	if n, m := len(pc.ReferenceImages), len(pc.DiagramImages); n+m > 0 {
		fmt.Fprintf(&b, "Images: %d UI mockup image(s) and %d diagram image(s) are attached to this conversation.\n", n, m)
	}
	fmt.Fprintf(&b, "Input requirements: %s\n", pc.Requirements.Input)
	fmt.Fprintf(&b, "Output requirements: %s\n", pc.Requirements.Output)
	b.WriteString("Features:\n")
	for _, name := range pc.Requirements.FeatureNames() {
		fmt.Fprintf(&b, "  + %s: %s\n", name, pc.Requirements.Features[name])
	}
	if strings.TrimSpace(pc.TechStack) != "" {
		fmt.Fprintf(&b, "Tech stack: %s\n", pc.TechStack)
	}
	fmt.Fprintf(&b, "Further requirements: %s", pc.Requirements.Further)
	return b.String()
}

func tables(descs []string) string {
	parts := make([]string, 0, len(descs))
	for i, d := range descs {
		name := fmt.Sprintf("table %d", i+1)
		parts = append(parts, block(name, d))
	}
	return strings.Join(parts, "\n\n")
}

func delimited(docs models.DocSet) string {
	parts := make([]string, 0, docs.Len())
	docs.Each(func(title, body string) {
		parts = append(parts, block(title, body))
	})
	return strings.Join(parts, "\n\n")
}

func block(name, body string) string {
	return fmt.Sprintf("=== %s ===\n%s\n=== end %s ===", name, strings.TrimSpace(body), name)
}

func fenced(label, body string) string {
	return "```" + label + "\n" + strings.TrimSpace(body) + "\n```"
}

// writeSection appends "[TITLE]\nbody\n\n" to b.
func writeSection(b *strings.Builder, title, body string) {
	b.WriteString("[")
	b.WriteString(title)
	b.WriteString("]\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
}

func outputFormat(t Target) string {
	label := t.Variant.Fence()
	var what string
	switch t.Variant {
	case models.VariantDiagram:
		what = "the complete JSON document and nothing else"
	case models.VariantPrototype:
		what = "the complete HTML file, from <!DOCTYPE html> to </html>, with all CSS and JavaScript inline"
	default:
		what = "the document, starting with its title on the first line followed by the body"
	}
	return fmt.Sprintf("First write your reasoning. Then output exactly one ```%s fenced block containing %s.\n\n"+
		"Example:\nYour thinking process...\n```%s\n...your %s output...\n```", label, what, label, label)
}
