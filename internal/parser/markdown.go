// Package parser reads and writes the Markdown documents kept in a project's
// output directory: YAML frontmatter followed by the document body.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the metadata block of a stored document.
type Frontmatter struct {
	Title       string    `yaml:"title"`
	Agent       string    `yaml:"agent,omitempty"`
	Order       int       `yaml:"order"`
	GeneratedAt time.Time `yaml:"generated_at,omitempty"`
}

// Document is a parsed Markdown document.
type Document struct {
	Frontmatter Frontmatter
	// Title comes from the frontmatter or, failing that, the first h1.
	Title string
	Body  string
}

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ParseDocument splits content into frontmatter and body. Content without a
// frontmatter block is all body.
func ParseDocument(content string) (*Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	doc := &Document{}

	remaining := content
	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx >= 0 {
			frontmatterYAML := content[4 : 4+endIdx]
			remaining = strings.TrimPrefix(content[4+endIdx+4:], "\n")

			if err := yaml.Unmarshal([]byte(frontmatterYAML), &doc.Frontmatter); err != nil {
				return nil, fmt.Errorf("parse frontmatter: %w", err)
			}
		}
	}

	doc.Body = strings.TrimSpace(remaining)
	doc.Title = extractTitle(doc.Frontmatter, doc.Body)
	return doc, nil
}

// extractTitle gets title from frontmatter or first h1.
func extractTitle(fm Frontmatter, body string) string {
	if fm.Title != "" {
		return fm.Title
	}
	if match := h1Regex.FindStringSubmatch(body); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// RenderDocument writes fm and body in the format ParseDocument reads.
func RenderDocument(fm Frontmatter, body string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(buf.Bytes())
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}
