// Package server provides the HTTP API for vidlens.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/app"
	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// Video ingestion waits for the transcript, so requests run much longer than
// a typical API call.
const requestTimeout = 10 * time.Minute

// Server is the HTTP server for the vidlens API.
type Server struct {
	services   *app.Services
	config     config.ServerConfig
	configPath string
	logger     *zap.Logger
	server     *http.Server

	// saveMu serializes writes of the config file.
	saveMu sync.Mutex
}

// NewServer creates a server. configPath, when set, is where reconfigure
// requests with persist=true write the new configuration.
func NewServer(svc *app.Services, cfg config.ServerConfig, logger *zap.Logger, configPath string) *Server {
	return &Server{
		services:   svc,
		config:     cfg,
		configPath: configPath,
		logger:     utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.services.Metrics().Middleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Post("/videos", s.handleAnalyze)
		r.Get("/videos", s.handleListVideos)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Post("/videos/{id}/posts", s.handlePosts)
		r.Post("/videos/{id}/quiz", s.handleQuiz)
		r.Get("/videos/{id}/search", s.handleSearch)
		r.Post("/quiz/score", s.handleScore)

		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Post("/rag", s.handleBuildIndex)
			r.Post("/query", s.handleQuery)
			r.Post("/similar", s.handleSimilar)
			r.Patch("/params", s.handleUpdateParams)
			r.Get("/stats", s.handleStats)
			r.Delete("/", s.handleDeleteSession)
		})

		r.Post("/config/reconfigure", s.handleReconfigure)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.services.Metrics().Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
