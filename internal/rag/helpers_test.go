package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/embedding"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/metrics"
)

// recordingLLM answers every prompt with a fixed text and keeps the prompts.
type recordingLLM struct {
	mu      sync.Mutex
	prompts []llm.Request
	answer  string
	err     error
}

func (r *recordingLLM) Name() string { return "recording" }

func (r *recordingLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, req)
	if r.err != nil {
		return "", r.err
	}
	return r.answer, nil
}

func (r *recordingLLM) calls() []llm.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]llm.Request(nil), r.prompts...)
}

type failingEmbedder struct{ *embedding.MockEmbedder }

func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding quota exceeded")
}

func testConfig(t *testing.T) config.RAGConfig {
	t.Helper()
	return config.RAGConfig{
		ChunkSize:      200,
		ChunkOverlap:   40,
		Temperature:    config.Float64(0.7),
		MaxTokens:      500,
		TopK:           3,
		SimilarK:       3,
		ChainType:      ChainStuff,
		SearchType:     SearchSimilarity,
		WorkDir:        t.TempDir(),
		CleanupRetries: 1,
		CleanupBackoff: time.Millisecond,
	}
}

type fixture struct {
	session *Session
	llm     *recordingLLM
	metrics *metrics.Metrics
	cfg     config.RAGConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig(t)
	fake := &recordingLLM{answer: "Goroutines are multiplexed onto OS threads."}
	m := metrics.New()
	s := NewSession("", cfg, Deps{LLM: fake, Embedder: embedding.NewMockEmbedder(128), Metrics: m, Logger: zap.NewNop()})
	t.Cleanup(s.Close)
	return &fixture{session: s, llm: fake, metrics: m, cfg: cfg}
}

const goTranscript = `Welcome to the talk. Today we look at how the Go scheduler runs goroutines.

Goroutines are cheap. The scheduler multiplexes many goroutines onto a small number of OS threads, and each thread has a local run queue.

Channels are typed conduits. An unbuffered channel synchronizes the sender and the receiver, while a buffered channel decouples them up to its capacity.

The garbage collector is concurrent and uses a tri-color mark and sweep algorithm. Write barriers keep the heap consistent while the program runs.

Finally we profile with pprof. The CPU profile shows where the time goes and the heap profile shows allocations.`

func metricValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}

// skewedEmbedder returns mock vectors scaled by 100 for every text that does
// not mention boosted, so raw inner products favour the wrong chunks.
type skewedEmbedder struct {
	*embedding.MockEmbedder
	boosted string
}

func (s skewedEmbedder) scale(text string, v []float32) []float32 {
	if strings.Contains(text, s.boosted) {
		return v
	}
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[i] * 100
	}
	return out
}

func (s skewedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := s.MockEmbedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.scale(text, v), nil
}

func (s skewedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vs, err := s.MockEmbedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i] = s.scale(texts[i], vs[i])
	}
	return vs, nil
}
