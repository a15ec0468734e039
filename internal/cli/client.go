package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/vidlens/internal/models"
)

// DefaultServerURL is where the CLI expects a running server.
const DefaultServerURL = "http://localhost:8080"

// Answer is a RAG answer returned by the server.
type Answer struct {
	Text    string               `json:"answer"`
	Sources []models.SourceChunk `json:"sources,omitempty"`
}

// AnalyzeRequest selects the video to analyze.
type AnalyzeRequest struct {
	URL         string `json:"url,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// ServerError is a non-2xx response from the server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the vidlens HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. timeout <= 0 means no
// timeout; ingestion can take several minutes.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Analyze ingests and analyzes a video.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*models.VideoAnalysis, error) {
	var out models.VideoAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/v1/videos", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Video fetches a stored analysis.
func (c *Client) Video(ctx context.Context, videoID string) (*models.VideoAnalysis, error) {
	var out models.VideoAnalysis
	if err := c.do(ctx, http.MethodGet, "/api/v1/videos/"+url.PathEscape(videoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Posts generates social posts. No platforms means all four.
func (c *Client) Posts(ctx context.Context, videoID string, platforms []models.Platform) ([]models.SocialMediaPost, error) {
	var out struct {
		Posts []models.SocialMediaPost `json:"posts"`
	}
	body := map[string]any{"platforms": platforms}
	if err := c.do(ctx, http.MethodPost, "/api/v1/videos/"+url.PathEscape(videoID)+"/posts", body, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// Quiz generates a quiz.
func (c *Client) Quiz(ctx context.Context, videoID string, numQuestions int) (*models.Quiz, error) {
	var out models.Quiz
	body := map[string]any{"num_questions": numQuestions}
	if err := c.do(ctx, http.MethodPost, "/api/v1/videos/"+url.PathEscape(videoID)+"/quiz", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Score grades answers keyed by question index.
func (c *Client) Score(ctx context.Context, q *models.Quiz, answers map[string]int) (models.QuizResult, error) {
	var out models.QuizResult
	body := map[string]any{"quiz": q, "answers": answers}
	err := c.do(ctx, http.MethodPost, "/api/v1/quiz/score", body, &out)
	return out, err
}

// Search finds the moments of a video matching query.
func (c *Client) Search(ctx context.Context, videoID, query string) (*models.TimestampSearch, error) {
	var out models.TimestampSearch
	path := "/api/v1/videos/" + url.PathEscape(videoID) + "/search?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask queries a session's index.
func (c *Client) Ask(ctx context.Context, sessionID, question string, withSources bool) (*Answer, error) {
	var out Answer
	body := map[string]any{"question": question, "return_sources": withSources}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats reports a session's index.
func (c *Client) Stats(ctx context.Context, sessionID string) (models.RAGStats, error) {
	var out models.RAGStats
	err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/stats", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
