// Package videodb is a REST client for the VideoDB video indexing service.
package videodb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/pkg/utils"
)

const maxErrorBody = 4 << 10

// Client calls the VideoDB API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client
	policy     retrypolicy.RetryPolicy[*response]
	poll       PollOptions
	upload     config.UploadConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger

	retries   int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every API call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryBackoff sets the delay bounds between retries.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = maxDelay
	}
}

// WithUploadLimits sets the local file checks applied by Upload.
func WithUploadLimits(u config.UploadConfig) Option {
	return func(c *Client) { c.upload = u }
}

// NewClient creates a client for the collection named in cfg.
func NewClient(cfg config.VideoDBConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.videodb.io"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		http:       &http.Client{Timeout: timeout},
		poll:       PollOptions{MaxWait: cfg.TranscriptTimeout, Interval: cfg.PollInterval},
		retries:    cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		upload: config.UploadConfig{
			MaxFileSizeMB:     500,
			AllowedExtensions: config.DefaultVideoExtensions,
		},
	}
	if c.collection == "" {
		c.collection = "default"
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	c.poll = c.poll.withDefaults()
	if c.retries < 0 {
		c.retries = 0
	}
	if c.maxDelay < c.baseDelay {
		c.maxDelay = c.baseDelay
	}
	c.policy = retrypolicy.NewBuilder[*response]().
		WithBackoff(c.baseDelay, c.maxDelay).
		WithMaxRetries(c.retries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *response, err error) bool { return IsRetryable(err) }).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*response]) {
			c.logger.Debug("retrying videodb request",
				zap.Int("attempt", e.Attempts()),
				zap.Error(e.LastError()))
		}).
		Build()
	return c, nil
}

// Collection returns the collection id the client uploads to.
func (c *Client) Collection() string { return c.collection }

// call sends a JSON request to path (relative to the base URL, or absolute) with
// retries, unwraps the envelope and follows asynchronous jobs to their output.
func (c *Client) call(ctx context.Context, op, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}
	data, err := c.execute(ctx, func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	c.metrics.ObserveVideoDB(op, err)
	if err != nil {
		return fmt.Errorf("videodb %s: %w", op, err)
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode videodb %s response: %w", op, err)
	}
	return nil
}

// response is one unwrapped envelope. OutputURL is set while the job is processing.
type response struct {
	Data      json.RawMessage
	OutputURL string
	pending   bool
}

// execute runs build and send under the retry policy, then follows an
// asynchronous job to its output. A fresh request is built for every attempt
// so bodies can be replayed.
func (c *Client) execute(ctx context.Context, build func(context.Context) (*http.Request, error)) (json.RawMessage, error) {
	resp, err := c.send(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.pending {
		return c.awaitJob(ctx, resp.OutputURL)
	}
	return resp.Data, nil
}

func (c *Client) send(ctx context.Context, build func(context.Context) (*http.Request, error)) (*response, error) {
	return c.sendWith(ctx, build, c.do)
}

func (c *Client) sendWith(ctx context.Context, build func(context.Context) (*http.Request, error), do func(*http.Request) (*response, error)) (*response, error) {
	return failsafe.With[*response](c.policy).WithContext(ctx).Get(func() (*response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return do(req)
	})
}

// do sends one request and unwraps the envelope.
func (c *Client) do(req *http.Request) (*response, error) {
	req.Header.Set("x-access-token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw[:min(len(raw), maxErrorBody)]))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode envelope: %w", decodeErr)
	}
	if env.Status == "processing" {
		var job asyncJob
		_ = json.Unmarshal(env.Data, &job)
		return &response{OutputURL: job.OutputURL, pending: true}, nil
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &response{Data: env.Data}, nil
}

// awaitJob polls an asynchronous job's output URL until it leaves the
// processing state.
func (c *Client) awaitJob(ctx context.Context, outputURL string) (json.RawMessage, error) {
	if outputURL == "" {
		return nil, fmt.Errorf("%w: processing response without output_url", ErrNotReady)
	}
	var result json.RawMessage
	err := poll(ctx, c.poll, ErrJobTimeout, func() error {
		resp, err := c.send(ctx, func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.url(outputURL), nil)
		})
		if err != nil {
			return err
		}
		if resp.pending {
			return ErrNotReady
		}
		result = resp.Data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("await job: %w", err)
	}
	return result, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// GetVideo fetches a video's metadata.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	var v Video
	if err := c.call(ctx, "get_video", http.MethodGet, "/video/"+url.PathEscape(videoID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// IndexSpokenWords starts spoken-word indexing, which also produces the transcript.
func (c *Client) IndexSpokenWords(ctx context.Context, videoID string) error {
	body := map[string]any{"index_type": IndexSpokenWord}
	return c.call(ctx, "index_spoken_words", http.MethodPost, "/video/"+url.PathEscape(videoID)+"/index", body, nil)
}

// IndexScenes starts visual scene indexing and returns the scene index id.
// An empty prompt uses DefaultScenePrompt.
func (c *Client) IndexScenes(ctx context.Context, videoID, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultScenePrompt
	}
	body := map[string]any{
		"extraction_type": "shot",
		"prompt":          prompt,
	}
	var resp sceneIndexResponse
	if err := c.call(ctx, "index_scenes", http.MethodPost, "/video/"+url.PathEscape(videoID)+"/index/scene", body, &resp); err != nil {
		return "", err
	}
	return resp.SceneIndexID, nil
}

// Transcript returns the transcript text. While spoken-word indexing is still
// running the error matches ErrNotReady.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	var resp transcriptResponse
	err := c.call(ctx, "transcript", http.MethodGet, "/video/"+url.PathEscape(videoID)+"/transcription", nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !IsRetryableStatus(apiErr.StatusCode) && isNotReadyMessage(apiErr.Message) {
			return "", fmt.Errorf("%w: %s", ErrNotReady, apiErr.Message)
		}
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: transcript is empty", ErrNotReady)
	}
	return text, nil
}

// Search queries one video's index and compiles the hits into a playable stream.
// A stream that cannot be compiled leaves StreamURL empty.
func (c *Client) Search(ctx context.Context, videoID, query string, opts SearchOptions) (*SearchResult, error) {
	if opts.SearchType == "" {
		opts.SearchType = SearchSemantic
	}
	if opts.IndexType == "" {
		opts.IndexType = IndexSpokenWord
	}
	body := map[string]any{
		"query":       query,
		"search_type": opts.SearchType,
		"index_type":  opts.IndexType,
	}
	if opts.ResultThreshold > 0 {
		body["result_threshold"] = opts.ResultThreshold
	}
	if opts.ScoreThreshold > 0 {
		body["score_threshold"] = opts.ScoreThreshold
	}
	var resp searchResponse
	if err := c.call(ctx, "search", http.MethodPost, "/video/"+url.PathEscape(videoID)+"/search", body, &resp); err != nil {
		return nil, err
	}
	result := &SearchResult{}
	for _, r := range resp.Results {
		for _, shot := range r.Docs {
			if shot.VideoID == "" {
				shot.VideoID = r.VideoID
			}
			result.Shots = append(result.Shots, shot)
		}
	}
	if len(result.Shots) > 0 {
		stream, err := c.compile(ctx, videoID, result.Shots)
		if err != nil {
			c.logger.Warn("could not compile search stream", zap.String("video_id", videoID), zap.Error(err))
		}
		result.StreamURL = stream
	}
	return result, nil
}

func (c *Client) compile(ctx context.Context, videoID string, shots []Shot) (string, error) {
	timeline := make([][2]float64, len(shots))
	for i, s := range shots {
		timeline[i] = [2]float64{s.Start, s.End}
	}
	body := []map[string]any{{
		"video_id":      videoID,
		"collection_id": c.collection,
		"shots":         timeline,
	}}
	var resp streamResponse
	if err := c.call(ctx, "compile", http.MethodPost, "/compile", body, &resp); err != nil {
		return "", err
	}
	return resp.StreamURL, nil
}

// GenerateStream returns a playable stream URL for the whole video.
func (c *Client) GenerateStream(ctx context.Context, videoID string) (string, error) {
	v, err := c.GetVideo(ctx, videoID)
	if err != nil {
		return "", err
	}
	body := map[string]any{"length": float64(v.Length)}
	if v.Length > 0 {
		body["timeline"] = [][2]float64{{0, float64(v.Length)}}
	}
	var resp streamResponse
	if err := c.call(ctx, "stream", http.MethodPost, "/video/"+url.PathEscape(videoID)+"/stream", body, &resp); err != nil {
		return "", err
	}
	if resp.StreamURL == "" {
		return v.StreamURL, nil
	}
	return resp.StreamURL, nil
}
