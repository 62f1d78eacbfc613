package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/docforge/internal/config"
	"github.com/raphaelgruber/docforge/internal/metrics"
)

// New builds the configured backend wrapped with logging, metrics, timeout and
// rate limiting.
func New(ctx context.Context, cfg config.Config, collector *metrics.Collector, logger *slog.Logger) (Completer, error) {
	var base Completer
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama, config.ProviderOpenAI, config.ProviderAnthropic:
		base, err = NewModel(cfg)
	case config.ProviderGemini:
		base, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	case config.ProviderBedrock:
		base, err = NewBedrock(ctx, cfg.AWSRegion, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}

	return Decorate(base, cfg, collector, logger), nil
}

// Decorate applies the standard middleware stack to any completer.
func Decorate(base Completer, cfg config.Config, collector *metrics.Collector, logger *slog.Logger) Completer {
	mws := []Middleware{WithLogging(logger)}
	if collector != nil {
		mws = append(mws, WithMetrics(collector))
	}
	mws = append(mws, RateLimit(cfg.LLMRPS, cfg.LLMBurst), WithTimeout(cfg.LLMTimeout))
	return Wrap(base, mws...)
}
