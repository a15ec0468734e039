// Package quiz generates multiple-choice quizzes from video transcripts and
// scores submitted answers.
package quiz

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/pkg/utils"
)

const (
	defaultQuestions    = 5
	defaultMaxQuestions = 10
	defaultMaxChars     = 8000
)

// Generator produces quizzes with an LLM. Generate never fails; any problem
// yields the built-in fallback quiz.
type Generator struct {
	llm        llm.Completer
	cfg        config.QuizConfig
	structured bool
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithMetrics records the source of every generated quiz.
func WithMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithStructuredOutput toggles the schema-constrained JSON attempt. Default true.
func WithStructuredOutput(enabled bool) GeneratorOption {
	return func(g *Generator) { g.structured = enabled }
}

// NewGenerator creates a Generator. Zero config fields take package defaults.
func NewGenerator(c llm.Completer, cfg config.QuizConfig, opts ...GeneratorOption) *Generator {
	if cfg.DefaultQuestions <= 0 {
		cfg.DefaultQuestions = defaultQuestions
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = defaultMaxQuestions
	}
	if cfg.MaxTranscriptLength <= 0 {
		cfg.MaxTranscriptLength = defaultMaxChars
	}
	if cfg.PassingScore <= 0 {
		cfg.PassingScore = PassingPercentage
	}
	g := &Generator{llm: c, cfg: cfg, structured: true}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// Generate returns a quiz of at most numQuestions questions about transcript.
// numQuestions <= 0 uses the configured default, and the result never exceeds
// the configured maximum.
func (g *Generator) Generate(ctx context.Context, transcript, title string, numQuestions int) *models.Quiz {
	limit := g.limit(numQuestions)
	transcript = utils.Prefix(transcript, g.cfg.MaxTranscriptLength)

	if g.llm == nil {
		return g.finish(Fallback(title, "no language model configured"))
	}

	var lastErr error
	if g.structured {
		questions, err := g.generateStructured(ctx, transcript, title, limit)
		if err == nil && len(questions) > 0 {
			return g.finish(build(title, questions, models.QuizSourceStructured))
		}
		if err != nil {
			g.logger.Debug("structured quiz generation failed, using text format", zap.Error(err))
			lastErr = err
		}
		if ctx.Err() != nil {
			return g.finish(Fallback(title, ctx.Err().Error()))
		}
	}

	text, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      textPrompt(transcript, title, limit),
		Temperature: g.cfg.TemperatureOrDefault(),
	})
	if err != nil {
		g.logger.Error("error generating quiz", zap.Error(err))
		return g.finish(Fallback(title, err.Error()))
	}
	questions := Parse(text, limit)
	if len(questions) == 0 {
		reason := "no valid questions in model response"
		if lastErr != nil {
			reason = fmt.Sprintf("%s (structured: %v)", reason, lastErr)
		}
		g.logger.Warn("quiz response could not be parsed, using fallback questions")
		return g.finish(Fallback(title, reason))
	}
	return g.finish(build(title, questions, models.QuizSourceText))
}

// Score grades answers with the configured passing percentage.
func (g *Generator) Score(answers map[string]int, quiz *models.Quiz) models.QuizResult {
	return ScoreWithThreshold(answers, quiz, g.cfg.PassingScore)
}

func (g *Generator) limit(requested int) int {
	if requested <= 0 {
		requested = g.cfg.DefaultQuestions
	}
	if requested > g.cfg.MaxQuestions {
		requested = g.cfg.MaxQuestions
	}
	return requested
}

func (g *Generator) finish(q *models.Quiz) *models.Quiz {
	g.metrics.ObserveQuiz(string(q.Source))
	g.logger.Info("generated quiz",
		zap.String("source", string(q.Source)),
		zap.Int("questions", q.TotalQuestions))
	return q
}

// Title returns the quiz title for a video title.
func Title(videoTitle string) string {
	if strings.TrimSpace(videoTitle) == "" {
		return "Video Quiz"
	}
	return "Quiz: " + videoTitle
}

func build(title string, questions []models.QuizQuestion, source models.QuizSource) *models.Quiz {
	return &models.Quiz{
		Title:          Title(title),
		Questions:      questions,
		TotalQuestions: len(questions),
		Source:         source,
	}
}

// Fallback returns the built-in three-question quiz used when generation fails.
func Fallback(title, reason string) *models.Quiz {
	q := build(title, fallbackQuestions(), models.QuizSourceFallback)
	q.DegradedReason = reason
	return q
}

func fallbackQuestions() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			Question:      "What was the main topic of this video?",
			Options:       []string{"Educational content", "Entertainment", "News update", "Product review"},
			CorrectAnswer: 0,
			Explanation:   "Based on the video analysis",
		},
		{
			Question:      "What type of content was primarily discussed?",
			Options:       []string{"Technical information", "Personal stories", "Historical facts", "General knowledge"},
			CorrectAnswer: 0,
			Explanation:   "Inferred from video content",
		},
		{
			Question:      "What was the overall tone of the video?",
			Options:       []string{"Informative", "Casual", "Formal", "Entertaining"},
			CorrectAnswer: 0,
			Explanation:   "Based on content analysis",
		},
	}
}
