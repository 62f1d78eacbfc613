package llm

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/raphaelgruber/docforge/internal/conversation"
)

// Placeholder answers every request without calling a model. Each response
// carries a numbered Markdown document, a JSON object that satisfies every
// diagram schema and an HTML page, so any agent can extract its artifact.
// It backs dry runs.
type Placeholder struct {
	n atomic.Int64
}

var _ Completer = (*Placeholder)(nil)

// NewPlaceholder creates a placeholder completer.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

const placeholderDiagram = `{"diagramName": "Draft Diagram %d", "classes": [], "participants": [], "messages": [],
 "nodes": [], "flows": [], "states": [], "transitions": [], "actors": [], "useCases": [], "tables": []}`

// Complete returns the next placeholder response.
func (p *Placeholder) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	n := p.n.Add(1)
	text := fmt.Sprintf("```markdown\n# Draft Document %d\n\nPlaceholder content generated without a model.\n```\n\n"+
		"```json\n"+placeholderDiagram+"\n```\n\n"+
		"```html\n<!DOCTYPE html>\n<html><head><title>Draft %d</title></head><body><h1>Draft %d</h1></body></html>\n```\n",
		n, n, n, n)
	return Response{Text: text, InputTokens: int64(len(turns)), OutputTokens: int64(len(text))}, nil
}
