package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/docforge/internal/config"
	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM for multi-turn, multi-modal completion.
type Model struct {
	llm       llms.Model
	modelName string
	// imagesAsURL sends images as data URIs instead of binary parts.
	imagesAsURL bool
	// alternate merges adjacent same-role turns before sending.
	alternate bool
}

var _ Completer = (*Model)(nil)

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	m := &Model{modelName: cfg.LLMModel}

	var err error
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		m.llm, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		m.llm, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		m.imagesAsURL = true

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		m.llm, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		m.alternate = true

	default:
		return nil, fmt.Errorf("unsupported langchaingo provider: %s", cfg.LLMProvider)
	}

	return m, nil
}

// Complete sends the turns and returns the first choice.
// An empty model falls back to the configured one.
func (m *Model) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	if m.alternate {
		turns = mergeConsecutive(turns)
	}
	messages, err := m.toMessages(turns)
	if err != nil {
		return Response{}, err
	}

	var opts []llms.CallOption
	if model != "" && model != m.modelName {
		opts = append(opts, llms.WithModel(model))
	}

	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("no response choices")
	}

	choice := resp.Choices[0]
	return Response{
		Text:         choice.Content,
		InputTokens:  tokenCount(choice.GenerationInfo, "PromptTokens", "InputTokens", "input_tokens"),
		OutputTokens: tokenCount(choice.GenerationInfo, "CompletionTokens", "OutputTokens", "output_tokens"),
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

func (m *Model) toMessages(turns []conversation.Turn) ([]llms.MessageContent, error) {
	messages := make([]llms.MessageContent, 0, len(turns))
	for _, t := range turns {
		mc := llms.MessageContent{Role: chatRole(t.Role)}
		for _, s := range t.Segments {
			switch s.Kind {
			case conversation.SegmentText:
				mc.Parts = append(mc.Parts, llms.TextContent{Text: s.Text})
			case conversation.SegmentImage:
				if m.imagesAsURL {
					mc.Parts = append(mc.Parts, llms.ImageURLContent{URL: s.DataURI()})
					continue
				}
				data, err := s.Decode()
				if err != nil {
					return nil, fmt.Errorf("decode image: %w", err)
				}
				mc.Parts = append(mc.Parts, llms.BinaryContent{MIMEType: s.MIMEType, Data: data})
			}
		}
		messages = append(messages, mc)
	}
	return messages, nil
}

func chatRole(r conversation.Role) llms.ChatMessageType {
	switch r {
	case conversation.RoleAssistant:
		return llms.ChatMessageTypeAI
	case conversation.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// tokenCount reads the first integer found under keys; providers disagree on naming.
func tokenCount(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
