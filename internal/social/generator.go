// Package social writes platform-specific social media posts about a video.
package social

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/pkg/utils"
)

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// Generator produces social posts with an LLM.
type Generator struct {
	llm         llm.Completer
	temperature float64
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewGenerator creates a Generator. A negative temperature means 0.8.
func NewGenerator(c llm.Completer, temperature float64, m *metrics.Metrics, logger *zap.Logger) *Generator {
	if temperature < 0 {
		temperature = 0.8
	}
	return &Generator{llm: c, temperature: temperature, metrics: m, logger: utils.OrNop(logger)}
}

// Generate writes one post. Unknown platforms are treated as LinkedIn. It never
// fails; on an LLM error the post carries placeholder content and Error.
func (g *Generator) Generate(ctx context.Context, summary string, topics []string, videoURL string, platform models.Platform) models.SocialMediaPost {
	tmpl := TemplateFor(platform)
	content, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      tmpl.Render(summary, topics, videoURL),
		Temperature: g.temperature,
	})
	if err == nil && strings.TrimSpace(content) == "" {
		err = llm.ErrEmptyResponse
	}
	g.metrics.ObserveSocialPost(string(tmpl.Platform), err)
	if err != nil {
		g.logger.Error("error generating post", zap.String("platform", string(tmpl.Platform)), zap.Error(err))
		return models.SocialMediaPost{
			Platform: tmpl.Platform,
			Content:  fmt.Sprintf("Unable to generate %s post", tmpl.Platform),
			Hashtags: []string{},
			Error:    err.Error(),
		}
	}
	content = strings.TrimSpace(content)
	return models.SocialMediaPost{
		Platform:       tmpl.Platform,
		Content:        content,
		Hashtags:       ExtractHashtags(content),
		CharacterCount: utf8.RuneCountInString(content),
	}
}

// GenerateAll writes a post for every platform concurrently and returns them in
// models.Platforms order.
func (g *Generator) GenerateAll(ctx context.Context, summary string, topics []string, videoURL string) []models.SocialMediaPost {
	posts := make([]models.SocialMediaPost, len(models.Platforms))
	var eg errgroup.Group
	for i, p := range models.Platforms {
		eg.Go(func() error {
			posts[i] = g.Generate(ctx, summary, topics, videoURL, p)
			return nil
		})
	}
	_ = eg.Wait()
	return posts
}

// ExtractHashtags returns the distinct hashtags in content in order of first
// occurrence.
func ExtractHashtags(content string) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, tag := range hashtagPattern.FindAllString(content, -1) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
