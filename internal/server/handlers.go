package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/app"
	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/processor"
	"github.com/hyperjump/vidlens/internal/rag"
	"github.com/hyperjump/vidlens/internal/search"
	"github.com/hyperjump/vidlens/internal/videodb"
)

// AnalyzeRequest is the body of POST /api/v1/videos.
type AnalyzeRequest struct {
	URL         string `json:"url,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// PostsRequest is the body of POST /api/v1/videos/{id}/posts.
type PostsRequest struct {
	Platforms []models.Platform `json:"platforms,omitempty"`
}

// PostsResponse lists generated posts.
type PostsResponse struct {
	VideoID string                   `json:"video_id"`
	Posts   []models.SocialMediaPost `json:"posts"`
}

// QuizRequest is the body of POST /api/v1/videos/{id}/quiz.
type QuizRequest struct {
	NumQuestions int `json:"num_questions,omitempty"`
}

// ScoreRequest is the body of POST /api/v1/quiz/score.
type ScoreRequest struct {
	Quiz    *models.Quiz   `json:"quiz"`
	Answers map[string]int `json:"answers"`
}

// BuildIndexRequest is the body of POST /api/v1/sessions/{sid}/rag. With VideoID
// set the stored transcript of that video is indexed.
type BuildIndexRequest struct {
	Transcript string `json:"transcript,omitempty"`
	Title      string `json:"title,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
}

// QueryRequest is the body of POST /api/v1/sessions/{sid}/query. K or
// SearchType select a one-off retrieval that leaves the stored parameters alone;
// one-off queries do not return sources.
type QueryRequest struct {
	Question      string `json:"question"`
	ReturnSources bool   `json:"return_sources,omitempty"`
	K             int    `json:"k,omitempty"`
	SearchType    string `json:"search_type,omitempty"`
}

// SimilarRequest is the body of POST /api/v1/sessions/{sid}/similar.
type SimilarRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SimilarResponse carries the raw hits and their rendered form.
type SimilarResponse struct {
	Chunks    []models.SourceChunk `json:"chunks"`
	Formatted string               `json:"formatted"`
}

// ReconfigureRequest overrides credentials and models. Empty fields keep the
// current value.
type ReconfigureRequest struct {
	VideoDBAPIKey     string `json:"videodb_api_key,omitempty"`
	LLMProvider       string `json:"llm_provider,omitempty"`
	LLMAPIKey         string `json:"llm_api_key,omitempty"`
	LLMModel          string `json:"llm_model,omitempty"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	EmbeddingAPIKey   string `json:"embedding_api_key,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	Persist           bool   `json:"persist,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SessionID != "" && !rag.ValidSessionID(req.SessionID) {
		s.respondError(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	s.logger.Debug("analyze request", zap.String("url", req.URL), zap.String("file_path", req.FilePath))
	a, err := s.services.Process(r.Context(), processor.Input{
		URL:         req.URL,
		FilePath:    req.FilePath,
		Title:       req.Title,
		Description: req.Description,
		SessionID:   req.SessionID,
	})
	if err != nil {
		s.logger.Error("video processing failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"videos": s.services.Videos()})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	a, err := s.services.Analysis(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	var req PostsRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	posts, err := s.services.Posts(r.Context(), id, req.Platforms)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, PostsResponse{VideoID: id, Posts: posts})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	q, err := s.services.Quiz(r.Context(), chi.URLParam(r, "id"), req.NumQuestions)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Quiz == nil {
		s.respondError(w, http.StatusBadRequest, "quiz is required")
		return
	}
	res, err := s.services.Score(req.Answers, req.Quiz)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.services.Search(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	var req BuildIndexRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.VideoID != "" {
		a, err := s.services.Analysis(req.VideoID)
		if err != nil {
			s.respondFailure(w, err)
			return
		}
		req.Transcript = a.Transcript
		if req.Title == "" {
			req.Title = a.Title
		}
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.CreateVectorDatabase(r.Context(), req.Transcript, req.Title); err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, sess.Stats())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	oneOff := req.K > 0 || req.SearchType != ""
	if oneOff && req.ReturnSources {
		s.respondError(w, http.StatusBadRequest, "return_sources cannot be combined with k or search_type")
		return
	}
	sess, ok := s.existingSession(w, r, rag.OpQuery)
	if !ok {
		return
	}
	var (
		ans *rag.Answer
		err error
	)
	if oneOff {
		ans, err = sess.QueryWithParams(r.Context(), req.Question, req.K, req.SearchType)
	} else {
		ans, err = sess.Query(r.Context(), req.Question, rag.QueryOptions{ReturnSources: req.ReturnSources})
	}
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.existingSession(w, r, rag.OpSimilar)
	if !ok {
		return
	}
	hits, err := sess.Similar(r.Context(), req.Query, req.K)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, SimilarResponse{Chunks: hits, Formatted: rag.FormatSimilar(hits)})
}

func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	var req rag.ParamUpdate
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.existingSession(w, r, rag.OpUpdate)
	if !ok {
		return
	}
	if err := sess.UpdateParameters(req); err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	sess, ok := s.services.Registry().Lookup(sid)
	if !ok {
		s.respondJSON(w, http.StatusOK, models.RAGStats{Status: rag.StatusNone, SessionID: sid})
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.services.Registry().Remove(sid)
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": sid, "status": "deleted"})
}

func (s *Server) handleReconfigure(w http.ResponseWriter, r *http.Request) {
	var req ReconfigureRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg := s.services.Config()
	applyOverrides(&cfg, req)
	if err := s.services.Reconfigure(r.Context(), &cfg); err != nil {
		s.logger.Warn("reconfigure rejected", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	persisted := false
	if req.Persist && s.configPath != "" {
		s.saveMu.Lock()
		err := config.Save(s.configPath, &cfg)
		s.saveMu.Unlock()
		if err != nil {
			s.logger.Warn("failed to persist config", zap.Error(err))
		} else {
			persisted = true
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":             "reconfigured",
		"llm_provider":       cfg.LLM.Provider,
		"llm_model":          cfg.LLM.Model,
		"embedding_provider": cfg.Embedding.Provider,
		"embedding_model":    cfg.Embedding.Model,
		"persisted":          persisted,
	})
}

func applyOverrides(cfg *config.Config, req ReconfigureRequest) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	providerChanged := req.LLMProvider != "" && req.LLMProvider != cfg.LLM.Provider
	set(&cfg.VideoDB.APIKey, req.VideoDBAPIKey)
	set(&cfg.LLM.Provider, strings.ToLower(req.LLMProvider))
	set(&cfg.LLM.APIKey, req.LLMAPIKey)
	set(&cfg.LLM.Model, req.LLMModel)
	set(&cfg.Embedding.Provider, strings.ToLower(req.EmbeddingProvider))
	set(&cfg.Embedding.APIKey, req.EmbeddingAPIKey)
	set(&cfg.Embedding.Model, req.EmbeddingModel)
	if providerChanged && req.LLMModel == "" {
		// The old model name belongs to the old provider.
		cfg.LLM.Model = ""
		config.ApplyDefaults(cfg)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.services.Registry().Len(),
		"videos":   len(s.services.Videos()),
	})
}

// session returns the session named in the URL, creating it if needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*rag.Session, bool) {
	sess, err := s.services.Registry().Get(chi.URLParam(r, "sid"))
	if err != nil {
		s.respondFailure(w, err)
		return nil, false
	}
	return sess, true
}

// existingSession returns the session named in the URL. A session that was
// never built answers with the not-ready message of op.
func (s *Server) existingSession(w http.ResponseWriter, r *http.Request, op string) (*rag.Session, bool) {
	sid := chi.URLParam(r, "sid")
	if !rag.ValidSessionID(sid) {
		s.respondError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	sess, ok := s.services.Registry().Lookup(sid)
	if !ok {
		s.respondFailure(w, &rag.Error{Op: op, Kind: rag.KindNotReady})
		return nil, false
	}
	return sess, true
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var apiErr *videodb.APIError
	switch {
	case errors.Is(err, rag.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, rag.ErrInvalidInput),
		errors.Is(err, videodb.ErrInvalidSource),
		errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrBackend):
		return http.StatusBadGateway
	case errors.Is(err, processor.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrClosed), errors.Is(err, rag.ErrRegistryClosed), errors.Is(err, rag.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, videodb.ErrTranscriptTimeout), errors.Is(err, videodb.ErrJobTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, rag.UserMessage(err))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
