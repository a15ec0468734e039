// Package app wires the vidlens components together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/analysis"
	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/embedding"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/processor"
	"github.com/hyperjump/vidlens/internal/quiz"
	"github.com/hyperjump/vidlens/internal/rag"
	"github.com/hyperjump/vidlens/internal/search"
	"github.com/hyperjump/vidlens/internal/social"
	"github.com/hyperjump/vidlens/internal/videodb"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("services are closed")

// Services holds the configured clients and generators. The analysis store and
// the RAG sessions survive Reconfigure; everything built from credentials is
// replaced.
type Services struct {
	metrics  *metrics.Metrics
	logger   *zap.Logger
	store    *processor.Store
	registry *rag.Registry

	// Overrides used instead of the configured providers.
	completer llm.Completer
	embedder  embedding.Embedder
	videoOpts []videodb.Option

	mu     sync.RWMutex
	closed bool
	cfg    config.Config
	set    *clientSet
}

// clientSet is everything derived from one configuration.
type clientSet struct {
	llm       llm.Completer
	embedder  embedding.Embedder
	videodb   *videodb.Client
	analysis  *analysis.Generator
	social    *social.Generator
	quiz      *quiz.Generator
	searcher  *search.Searcher
	processor *processor.Processor
}

// Option configures Services.
type Option func(*Services)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Services) { s.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Services) { s.metrics = m }
}

// WithCompleter uses c instead of the configured LLM provider.
func WithCompleter(c llm.Completer) Option {
	return func(s *Services) { s.completer = c }
}

// WithEmbedder uses e instead of the configured embedding provider.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Services) { s.embedder = e }
}

// WithVideoDBOptions passes extra options to every VideoDB client.
func WithVideoDBOptions(opts ...videodb.Option) Option {
	return func(s *Services) { s.videoOpts = append(s.videoOpts, opts...) }
}

// New builds all services from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Services, error) {
	s := &Services{store: processor.NewStore()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	set, err := s.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.cfg = *cfg
	s.set = set
	s.registry = rag.NewRegistry(cfg.RAG, s.ragDeps(set))
	s.set.processor = s.newProcessor(cfg, set)
	return s, nil
}

func (s *Services) build(ctx context.Context, cfg *config.Config) (*clientSet, error) {
	set := &clientSet{llm: s.completer, embedder: s.embedder}
	var err error
	if set.llm == nil {
		if set.llm, err = llm.NewProvider(ctx, cfg.LLM, s.metrics, s.logger); err != nil {
			return nil, fmt.Errorf("llm: %w", err)
		}
	}
	if set.embedder == nil {
		if set.embedder, err = embedding.NewProvider(ctx, cfg.Embedding, s.metrics); err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
	}
	videoOpts := append([]videodb.Option{
		videodb.WithLogger(s.logger),
		videodb.WithMetrics(s.metrics),
		videodb.WithUploadLimits(cfg.Upload),
	}, s.videoOpts...)
	if set.videodb, err = videodb.NewClient(cfg.VideoDB, videoOpts...); err != nil {
		return nil, fmt.Errorf("videodb: %w", err)
	}

	structured := cfg.LLM.StructuredOutputOrDefault()
	set.analysis = analysis.NewGenerator(set.llm, cfg.Analysis, structured, s.logger)
	set.social = social.NewGenerator(set.llm, cfg.Social.TemperatureOrDefault(), s.metrics, s.logger)
	set.quiz = quiz.NewGenerator(set.llm, cfg.Quiz,
		quiz.WithLogger(s.logger),
		quiz.WithMetrics(s.metrics),
		quiz.WithStructuredOutput(structured))
	set.searcher = search.NewSearcher(set.videodb, s.logger)
	return set, nil
}

func (s *Services) newProcessor(cfg *config.Config, set *clientSet) *processor.Processor {
	return processor.New(set.videodb, set.analysis, s.store,
		processor.WithIndexer(s.registry),
		processor.WithLogger(s.logger),
		processor.WithTranscriptWait(videodb.PollOptions{
			MaxWait:  cfg.VideoDB.TranscriptTimeout,
			Interval: cfg.VideoDB.PollInterval,
		}))
}

func (s *Services) ragDeps(set *clientSet) rag.Deps {
	return rag.Deps{LLM: set.llm, Embedder: set.embedder, Metrics: s.metrics, Logger: s.logger}
}

// Reconfigure validates cfg, builds new clients and swaps them in. On error the
// current clients stay in place. Running requests finish on the clients they
// started with.
func (s *Services) Reconfigure(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	set, err := s.build(ctx, cfg)
	if err != nil {
		return err
	}
	set.processor = s.newProcessor(cfg, set)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cfg = *cfg
	s.set = set
	s.mu.Unlock()

	s.registry.Reconfigure(cfg.RAG, s.ragDeps(set))
	s.logger.Info("services reconfigured",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_provider", cfg.Embedding.Provider))
	return nil
}

func (s *Services) current() (*clientSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.set, nil
}

// Config returns a copy of the active configuration.
func (s *Services) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Registry returns the RAG session registry.
func (s *Services) Registry() *rag.Registry { return s.registry }

// Metrics returns the metrics registry, which may be nil.
func (s *Services) Metrics() *metrics.Metrics { return s.metrics }

// Process runs the ingestion pipeline for one video.
func (s *Services) Process(ctx context.Context, in processor.Input) (*models.VideoAnalysis, error) {
	set, err := s.current()
	if err != nil {
		return nil, err
	}
	return set.processor.Process(ctx, in)
}

// Analysis returns a processed video's analysis.
func (s *Services) Analysis(videoID string) (*models.VideoAnalysis, error) {
	return s.store.Get(videoID)
}

// Videos lists processed analyses.
func (s *Services) Videos() []*models.VideoAnalysis {
	return s.store.List()
}

// Posts generates social posts for a processed video. No platforms means all four.
func (s *Services) Posts(ctx context.Context, videoID string, platforms []models.Platform) ([]models.SocialMediaPost, error) {
	set, err := s.current()
	if err != nil {
		return nil, err
	}
	a, err := s.store.Get(videoID)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		return set.social.GenerateAll(ctx, a.Summary, a.Topics, a.StreamURL), nil
	}
	posts := make([]models.SocialMediaPost, 0, len(platforms))
	for _, p := range platforms {
		posts = append(posts, set.social.Generate(ctx, a.Summary, a.Topics, a.StreamURL, p))
	}
	return posts, nil
}

// Quiz generates a quiz over a processed video's transcript.
func (s *Services) Quiz(ctx context.Context, videoID string, numQuestions int) (*models.Quiz, error) {
	set, err := s.current()
	if err != nil {
		return nil, err
	}
	a, err := s.store.Get(videoID)
	if err != nil {
		return nil, err
	}
	return set.quiz.Generate(ctx, a.Transcript, a.Title, numQuestions), nil
}

// Score grades answers against the configured pass mark.
func (s *Services) Score(answers map[string]int, q *models.Quiz) (models.QuizResult, error) {
	set, err := s.current()
	if err != nil {
		return models.QuizResult{}, err
	}
	return set.quiz.Score(answers, q), nil
}

// Search finds the time ranges of a video matching query.
func (s *Services) Search(ctx context.Context, videoID, query string) (*models.TimestampSearch, error) {
	set, err := s.current()
	if err != nil {
		return nil, err
	}
	return set.searcher.Search(ctx, videoID, query)
}

// Close releases every RAG workspace and the embedder. It is safe to call twice.
func (s *Services) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	set := s.set
	s.mu.Unlock()

	err := s.registry.Close()
	if set != nil && set.embedder != nil {
		err = errors.Join(err, set.embedder.Close())
	}
	return err
}
