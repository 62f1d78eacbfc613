package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/docforge/internal/conversation"
	genai "google.golang.org/genai"
)

// Gemini is a Completer over the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

var _ Completer = (*Gemini)(nil)

// NewGemini creates a Gemini completer. An empty apiKey lets the client read
// GEMINI_API_KEY / GOOGLE_API_KEY itself.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{cli: cli, model: model}, nil
}

// Complete sends the turns as contents; system turns become the system instruction.
func (g *Gemini) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	if model == "" {
		model = g.model
	}

	var cfg genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		parts, err := geminiParts(t.Segments)
		if err != nil {
			return Response{}, err
		}
		switch t.Role {
		case conversation.RoleSystem:
			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = &genai.Content{}
			}
			cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, parts...)
		case conversation.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, model, contents, &cfg)
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", wrapFatalError(err))
	}
	if len(resp.Candidates) == 0 {
		return Response{}, fmt.Errorf("no response candidates")
	}

	out := Response{Text: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int64(u.PromptTokenCount)
		out.OutputTokens = int64(u.CandidatesTokenCount)
	}
	return out, nil
}

func geminiParts(segs []conversation.Segment) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(segs))
	for _, s := range segs {
		switch s.Kind {
		case conversation.SegmentText:
			parts = append(parts, &genai.Part{Text: s.Text})
		case conversation.SegmentImage:
			data, err := s.Decode()
			if err != nil {
				return nil, fmt.Errorf("decode image: %w", err)
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: s.MIMEType, Data: data}})
		}
	}
	return parts, nil
}
