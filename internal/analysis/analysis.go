// Package analysis turns a video transcript into a summary, topics, key quotes,
// sentiment and target audience using an LLM.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// Placeholders used when a step fails.
const (
	SummaryUnavailable = "Unable to generate summary"
	DefaultTopic       = "General Content"
)

const summaryPreview = 200

// ErrNoContent is returned when the model produced nothing usable.
var ErrNoContent = errors.New("analysis produced no content")

// Result is the outcome of Analyze.
type Result struct {
	Summary        string   `json:"summary"`
	Topics         []string `json:"topics"`
	KeyQuotes      []string `json:"key_quotes"`
	Sentiment      string   `json:"sentiment,omitempty"`
	TargetAudience string   `json:"target_audience,omitempty"`
}

// Generator runs analysis prompts.
type Generator struct {
	llm        llm.Completer
	cfg         config.AnalysisConfig
	temperature float64
	structured  bool
	logger     *zap.Logger
}

// NewGenerator creates a Generator. structured enables the schema-constrained
// first attempt. Zero config fields take defaults; an unset temperature is 0.7.
func NewGenerator(c llm.Completer, cfg config.AnalysisConfig, structured bool, logger *zap.Logger) *Generator {
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = 7
	}
	if cfg.MaxTranscriptLength <= 0 {
		cfg.MaxTranscriptLength = 4000
	}
	return &Generator{llm: c, cfg: cfg, temperature: cfg.TemperatureOrDefault(), structured: structured, logger: utils.OrNop(logger)}
}

// Analyze produces the full analysis. It tries structured JSON first and falls
// back to the SUMMARY/TOPICS/QUOTES text format. An LLM error on the text
// attempt is returned; a response that matches neither format still yields its
// first characters as the summary.
func (g *Generator) Analyze(ctx context.Context, transcript, title, description string) (*Result, error) {
	transcript = utils.Prefix(transcript, g.cfg.MaxTranscriptLength)
	if strings.TrimSpace(transcript) == "" {
		transcript = "Content analysis pending"
	}
	if title == "" {
		title = "Untitled Video"
	}
	if description == "" {
		description = "No description provided"
	}

	if g.structured {
		res, err := g.analyzeStructured(ctx, transcript, title, description)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Debug("structured analysis failed, using text format", zap.Error(err))
	}

	out, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(textAnalysisTemplate, title, description, transcript),
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze content: %w", err)
	}
	res := ParseText(out)
	g.finish(res)
	if res.Summary == "" {
		return nil, ErrNoContent
	}
	return res, nil
}

func (g *Generator) analyzeStructured(ctx context.Context, transcript, title, description string) (*Result, error) {
	out, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(structuredAnalysisTemplate, title, description, transcript),
		Temperature: g.temperature,
		Schema:      analysisSchema,
	})
	if err != nil {
		return nil, err
	}
	var res Result
	if err := llm.DecodeJSON(out, &res); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	res.Summary = strings.TrimSpace(res.Summary)
	if res.Summary == "" {
		return nil, ErrNoContent
	}
	res.Topics = cleanList(res.Topics)
	res.KeyQuotes = cleanList(res.KeyQuotes)
	g.finish(&res)
	return &res, nil
}

func (g *Generator) finish(res *Result) {
	if len(res.Topics) > g.cfg.MaxTopics {
		res.Topics = res.Topics[:g.cfg.MaxTopics]
	}
	if res.Topics == nil {
		res.Topics = []string{}
	}
	if res.KeyQuotes == nil {
		res.KeyQuotes = []string{}
	}
}

// Summary asks for a short summary of the transcript.
func (g *Generator) Summary(ctx context.Context, transcript, title string) (string, error) {
	out, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(summaryTemplate, title, utils.Prefix(transcript, g.cfg.MaxTranscriptLength)),
		Temperature: g.temperature,
	})
	if err != nil {
		g.logger.Error("error generating summary", zap.Error(err))
		return "", fmt.Errorf("generate summary: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrNoContent
	}
	return out, nil
}

// Topics asks for a comma-separated topic list, trimmed and capped at MaxTopics.
func (g *Generator) Topics(ctx context.Context, transcript string) ([]string, error) {
	out, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(topicsTemplate, utils.Prefix(transcript, g.cfg.MaxTranscriptLength)),
		Temperature: g.temperature,
	})
	if err != nil {
		g.logger.Error("error extracting topics", zap.Error(err))
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	topics := cleanList(strings.Split(out, ","))
	if len(topics) == 0 {
		return nil, ErrNoContent
	}
	if len(topics) > g.cfg.MaxTopics {
		topics = topics[:g.cfg.MaxTopics]
	}
	return topics, nil
}

// ParseText reads the SUMMARY:/TOPICS:/QUOTES: format. Topics are comma
// separated and quotes are separated by '|'. Without a SUMMARY line the summary
// is the first 200 characters of the response.
func ParseText(out string) *Result {
	res := &Result{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			res.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "TOPICS:"):
			res.Topics = cleanList(strings.Split(unbracket(strings.TrimPrefix(line, "TOPICS:")), ","))
		case strings.HasPrefix(line, "QUOTES:"):
			res.KeyQuotes = cleanList(strings.Split(unbracket(strings.TrimPrefix(line, "QUOTES:")), "|"))
		}
	}
	if res.Summary == "" {
		res.Summary = utils.Truncate(strings.TrimSpace(out), summaryPreview)
	}
	return res
}

func unbracket(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	return s
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.Trim(strings.TrimSpace(item), `"`); item != "" {
			out = append(out, item)
		}
	}
	return out
}
