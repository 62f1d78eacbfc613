package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/docforge/internal/models"
)

// Validator checks a decoded JSON value. schema.Schema.Validate satisfies it.
type Validator func(value any) error

// JSON returns the first ```json block that both parses and validates.
// When blocks parse but none validates, the first offending block is reported
// as ErrSchemaViolation. A nil validator accepts any parsed value.
func JSON(text string, validate Validator) (any, error) {
	var violation *Error
	for _, block := range Blocks(text, "json") {
		var v any
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			continue
		}
		if validate != nil {
			if err := validate(v); err != nil {
				if violation == nil {
					violation = &Error{Kind: ErrSchemaViolation, Raw: block, Cause: err}
				}
				continue
			}
		}
		return v, nil
	}
	if violation != nil {
		return nil, violation
	}
	return nil, noValid(text, fmt.Errorf("no parseable json block"))
}

// Document is a Markdown artifact split into title and body.
type Document struct {
	Title string
	Body  string
}

// Markdown returns the first ```markdown (or ```md) block with a usable title and body.
// The title is the first non-blank line with heading markers removed, reduced
// to letters, digits and spaces.
func Markdown(text string) (Document, error) {
	for _, block := range Blocks(text, "markdown", "md") {
		doc, ok := splitDocument(block)
		if ok {
			return doc, nil
		}
	}
	return Document{}, noValid(text, fmt.Errorf("no markdown block with title and body"))
}

func splitDocument(block string) (Document, bool) {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		title := models.SanitizeTitle(strings.TrimLeft(strings.TrimSpace(line), "#"))
		body := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		if title == "" || body == "" {
			return Document{}, false
		}
		return Document{Title: title, Body: body}, true
	}
	return Document{}, false
}

const (
	doctype = "<!doctype html"
	htmlEnd = "</html>"
)

// HTML returns the first ```html block, trimmed to the <!DOCTYPE html> ... </html>
// span when both markers are present.
func HTML(text string) (string, error) {
	for _, block := range Blocks(text, "html") {
		if page := trimPage(block); page != "" {
			return page, nil
		}
	}
	return "", noValid(text, fmt.Errorf("no html block"))
}

func trimPage(block string) string {
	lower := strings.ToLower(block)
	start := strings.Index(lower, doctype)
	end := strings.LastIndex(lower, htmlEnd)
	if start >= 0 && end > start {
		return block[start : end+len(htmlEnd)]
	}
	return strings.TrimSpace(block)
}
