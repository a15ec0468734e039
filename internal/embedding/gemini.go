package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding API.
type Gemini struct {
	client     *genai.Client
	model      string
	dimensions int
	batchSize  int
}

// NewGemini creates a Gemini embedder. dimensions is the expected vector length.
func NewGemini(ctx context.Context, apiKey, model string, dimensions, batchSize int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, dimensions: dimensions, batchSize: batchSize}, nil
}

// Embed embeds a single text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider-sized batches.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, g.batchSize) {
		contents := make([]*genai.Content, len(batch))
		for i, t := range batch {
			contents[i] = genai.NewContentFromText(t, genai.RoleUser)
		}
		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrDimensionMismatch, len(resp.Embeddings), len(batch))
		}
		for _, e := range resp.Embeddings {
			if g.dimensions > 0 && len(e.Values) != g.dimensions {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e.Values), g.dimensions)
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (g *Gemini) Dimensions() int { return g.dimensions }

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *Gemini) Close() error { return nil }
