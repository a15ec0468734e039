// Package processor runs the end-to-end video pipeline: upload, transcript,
// analysis and RAG indexing.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/analysis"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/videodb"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// Transcript placeholders used when no transcript can be obtained.
const (
	SceneOnlyTranscript = "Video has been indexed for scene-based analysis. Use the search feature to query specific content."
	NoIndexTranscript   = "Video uploaded successfully. Analysis capabilities may be limited without transcript or scene indexing."
)

const descriptiveScenePrompt = "Describe the scene in detail, including people, objects, actions, on-screen text and setting."

// Ingester is the part of the VideoDB client the pipeline uses.
type Ingester interface {
	Upload(ctx context.Context, req videodb.UploadRequest) (*videodb.Video, error)
	GenerateStream(ctx context.Context, videoID string) (string, error)
	IndexSpokenWords(ctx context.Context, videoID string) error
	IndexScenes(ctx context.Context, videoID, prompt string) (string, error)
	WaitForTranscript(ctx context.Context, videoID string, opts videodb.PollOptions) (string, error)
}

// Analyzer produces the summary and topics.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, title, description string) (*analysis.Result, error)
	Summary(ctx context.Context, transcript, title string) (string, error)
	Topics(ctx context.Context, transcript string) ([]string, error)
}

// Indexer builds a session's RAG index.
type Indexer interface {
	IndexTranscript(ctx context.Context, sessionID, transcript, title string) error
}

// Input selects the video to process. Exactly one of URL and FilePath is set.
type Input struct {
	URL         string
	FilePath    string
	Title       string
	Description string
	// SessionID names the RAG session to index into; empty means a new UUID.
	SessionID string
}

// Processor wires the pipeline steps together.
type Processor struct {
	ingester Ingester
	analyzer Analyzer
	indexer  Indexer
	store    *Store
	wait     videodb.PollOptions
	logger   *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithTranscriptWait bounds the wait for the transcript.
func WithTranscriptWait(opts videodb.PollOptions) Option {
	return func(p *Processor) { p.wait = opts }
}

// WithIndexer enables RAG indexing of every processed transcript.
func WithIndexer(ix Indexer) Option {
	return func(p *Processor) { p.indexer = ix }
}

// New creates a Processor that records results in store.
func New(ingester Ingester, analyzer Analyzer, store *Store, opts ...Option) *Processor {
	p := &Processor{ingester: ingester, analyzer: analyzer, store: store}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Process ingests and analyzes one video. Only an upload failure is fatal; the
// other steps degrade to placeholders and warnings on the result.
func (p *Processor) Process(ctx context.Context, in Input) (*models.VideoAnalysis, error) {
	start := time.Now()
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}
	log := p.logger.With(zap.String("session_id", in.SessionID))

	video, err := p.ingester.Upload(ctx, videodb.UploadRequest{
		URL:         in.URL,
		FilePath:    in.FilePath,
		Name:        in.Title,
		Description: in.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	log = log.With(zap.String("video_id", video.ID))

	title := in.Title
	if title == "" {
		title = video.Name
	}
	result := &models.VideoAnalysis{
		VideoID:     video.ID,
		Title:       title,
		Description: in.Description,
		Duration:    float64(video.Length),
		StreamURL:   video.StreamURL,
		SessionID:   in.SessionID,
		CreatedAt:   time.Now().UTC(),
	}
	warn := func(msg string, err error) {
		log.Warn(msg, zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	if stream, err := p.ingester.GenerateStream(ctx, video.ID); err != nil {
		warn("stream generation failed", err)
	} else if stream != "" {
		result.StreamURL = stream
	}

	transcript, hasTranscript := p.transcript(ctx, video.ID, warn)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result.Transcript = transcript

	p.analyze(ctx, result, warn)

	if hasTranscript && p.indexer != nil {
		if err := p.indexer.IndexTranscript(ctx, in.SessionID, transcript, title); err != nil {
			warn("rag indexing failed", err)
		} else {
			result.RAGReady = true
		}
	}

	p.store.Put(result)
	log.Info("video processed",
		zap.Bool("transcript", hasTranscript),
		zap.Bool("rag_ready", result.RAGReady),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// transcript indexes spoken words and waits for the transcript. On failure it
// falls back to scene indexing and returns a placeholder.
func (p *Processor) transcript(ctx context.Context, videoID string, warn func(string, error)) (string, bool) {
	err := p.ingester.IndexSpokenWords(ctx, videoID)
	if err == nil {
		var text string
		text, err = p.ingester.WaitForTranscript(ctx, videoID, p.wait)
		if err == nil {
			return text, true
		}
	}
	if errors.Is(err, context.Canceled) {
		return "", false
	}
	warn("transcript unavailable", err)

	if _, err := p.ingester.IndexScenes(ctx, videoID, descriptiveScenePrompt); err != nil {
		warn("scene indexing failed", err)
		return NoIndexTranscript, false
	}
	return SceneOnlyTranscript, false
}

func (p *Processor) analyze(ctx context.Context, result *models.VideoAnalysis, warn func(string, error)) {
	res, err := p.analyzer.Analyze(ctx, result.Transcript, result.Title, result.Description)
	if err == nil {
		result.Summary = res.Summary
		result.Topics = res.Topics
		result.KeyQuotes = res.KeyQuotes
		result.Sentiment = res.Sentiment
		result.TargetAudience = res.TargetAudience
	} else {
		warn("analysis failed", err)
		if result.Summary, err = p.analyzer.Summary(ctx, result.Transcript, result.Title); err != nil {
			result.Summary = analysis.SummaryUnavailable
		}
	}
	if len(result.Topics) == 0 {
		topics, err := p.analyzer.Topics(ctx, result.Transcript)
		if err != nil || len(topics) == 0 {
			topics = []string{analysis.DefaultTopic}
		}
		result.Topics = topics
	}
	if strings.TrimSpace(result.Summary) == "" {
		result.Summary = analysis.SummaryUnavailable
	}
}

// Get returns a processed analysis.
func (p *Processor) Get(videoID string) (*models.VideoAnalysis, error) {
	return p.store.Get(videoID)
}
