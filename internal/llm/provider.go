package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/metrics"
)

// NewProvider builds the completer selected by cfg.Provider, wrapped with retries and metrics.
func NewProvider(ctx context.Context, cfg config.LLMConfig, m *metrics.Metrics, logger *zap.Logger) (Completer, error) {
	var base Completer
	switch cfg.Provider {
	case config.ProviderGemini, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		base = g
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		base = NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case config.ProviderMock:
		base = NewMock()
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: gemini, openai, mock)", cfg.Provider)
	}
	return NewResilient(base, RetryConfig{MaxRetries: cfg.MaxRetries}, m, logger), nil
}
