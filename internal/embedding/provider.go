package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/metrics"
)

// NewProvider builds the embedder selected by cfg.Provider, instrumented and
// wrapped with an LRU cache of cfg.CacheSize entries.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig, m *metrics.Metrics) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case config.ProviderGemini, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini embeddings require an API key")
		}
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions, cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		base = g
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		base = NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.BatchSize)
	case config.ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: gemini, openai, mock)", cfg.Provider)
	}
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}
	instrumented := &observed{next: base, provider: provider, metrics: m}
	if cfg.CacheSize <= 0 {
		return instrumented, nil
	}
	return NewCached(instrumented, cfg.CacheSize), nil
}

type observed struct {
	next     Embedder
	provider string
	metrics  *metrics.Metrics
}

func (o *observed) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := o.next.Embed(ctx, text)
	o.metrics.ObserveLLM(o.provider, "embedding", time.Since(start), err)
	return v, err
}

func (o *observed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := o.next.EmbedBatch(ctx, texts)
	o.metrics.ObserveLLM(o.provider, "embedding", time.Since(start), err)
	return v, err
}

func (o *observed) Dimensions() int { return o.next.Dimensions() }

func (o *observed) Close() error { return o.next.Close() }
