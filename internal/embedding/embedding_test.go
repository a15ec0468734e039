package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/vidlens/internal/config"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Photosynthesis converts light")
	b, _ := e.Embed(ctx, "photosynthesis converts light")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if math.Abs(cosine(a, b)-1) > 1e-5 {
		t.Errorf("same words should embed identically, cos=%f", cosine(a, b))
	}
	if math.Abs(cosine(a, a)-1) > 1e-5 {
		t.Errorf("not unit length: %f", cosine(a, a))
	}
}

func TestMockEmbedder_Similarity(t *testing.T) {
	e := NewMockEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "how do plants use sunlight")
	near, _ := e.Embed(ctx, "plants turn sunlight into sugar")
	far, _ := e.Embed(ctx, "the stock market closed higher today")
	if cosine(q, near) <= cosine(q, far) {
		t.Errorf("expected shared words to score higher: near=%f far=%f", cosine(q, near), cosine(q, far))
	}
}

func TestMockEmbedder_Empty(t *testing.T) {
	v, err := NewMockEmbedder(0).Embed(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 384 || v[0] != 1 {
		t.Errorf("empty text should yield the unit vector e0, got len=%d v0=%f", len(v), v[0])
	}
}

func TestBatches(t *testing.T) {
	got := batches([]string{"a", "b", "c", "d", "e"}, 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0] != "e" {
		t.Errorf("batches = %v", got)
	}
	if got := batches([]string{"a", "b"}, 0); len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("size 0 should give one batch, got %v", got)
	}
	if got := batches(nil, 3); got != nil {
		t.Errorf("nil input should give nil, got %v", got)
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	e, err := NewProvider(ctx, config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 32, CacheSize: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*Cached); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Dimensions() != 32 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}

	if _, err := NewProvider(ctx, config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewProvider(ctx, config.EmbeddingConfig{Provider: config.ProviderGemini}, nil); err == nil {
		t.Error("expected error for missing key")
	}
}
