// Package rag manages per-session retrieval-augmented question answering over
// a video transcript. Each session owns a temporary workspace holding its
// chunk collection, vector index and keyword index.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/embedding"
	"github.com/hyperjump/vidlens/internal/indexer"
	"github.com/hyperjump/vidlens/internal/keyword"
	"github.com/hyperjump/vidlens/internal/llm"
	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/storage"
	"github.com/hyperjump/vidlens/internal/vector"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClearing
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClearing:
		return "clearing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Stats statuses.
const (
	StatusNone   = "No database created"
	StatusActive = "Active"
	StatusError  = "Error"
)

const (
	mmrLambda      = 0.5
	mmrFetchFactor = 4
	hybridWeight   = 0.5
	previewLength  = 200
	teardownBudget = 10 * time.Second
)

// Deps are the external services a session calls.
type Deps struct {
	LLM      llm.Completer
	Embedder embedding.Embedder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Session is one user's RAG index and retrieval configuration. All methods are
// safe for concurrent use; calls into one session are serialized.
type Session struct {
	id         string
	collection string
	cfg        config.RAGConfig

	mu       sync.Mutex
	deps     Deps
	state    State
	params   models.RetrievalParams
	title    string
	chunks   int
	embedder embedding.Embedder // the embedder the current index was built with

	ws       *Workspace
	store    *storage.SQLiteStorage
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
	indexer  *indexer.Indexer
}

// NewSession creates an uninitialized session. An empty id gets a random UUID.
func NewSession(id string, cfg config.RAGConfig, deps Deps) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	deps.Logger = utils.OrNop(deps.Logger).With(zap.String("session_id", id))
	return &Session{
		id:         id,
		collection: CollectionName(id),
		cfg:        cfg,
		deps:       deps,
	}
}

// CollectionName returns the collection name used for a session.
func CollectionName(sessionID string) string {
	return "video_transcript_" + sessionID
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WorkspaceDir returns the current workspace directory, or "" when none exists.
func (s *Session) WorkspaceDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return ""
	}
	return s.ws.Dir()
}

// SetDeps replaces the session's services. The LLM takes effect immediately; a
// new embedder is used from the next CreateVectorDatabase, because the current
// index was built with the old one.
func (s *Session) SetDeps(deps Deps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deps.Logger = utils.OrNop(deps.Logger).With(zap.String("session_id", s.id))
	s.deps = deps
}

func (s *Session) defaultParams() models.RetrievalParams {
	p := models.RetrievalParams{
		Temperature: s.cfg.TemperatureOrDefault(),
		TopK:        s.cfg.TopK,
		ChainType:   s.cfg.ChainType,
		SearchType:  s.cfg.SearchType,
	}
	if p.TopK <= 0 {
		p.TopK = 5
	}
	if !validChainType(p.ChainType) {
		p.ChainType = ChainStuff
	}
	if !validSearchType(p.SearchType) {
		p.SearchType = SearchSimilarity
	}
	return p
}

// CreateVectorDatabase replaces the session's index with one built from transcript.
// A blank transcript fails with ErrEmptyTranscript and leaves the session as it was.
// Any other failure leaves the session uninitialized with its workspace removed.
func (s *Session) CreateVectorDatabase(ctx context.Context, transcript, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return notReady(OpCreate, ErrSessionClosed)
	}
	if strings.TrimSpace(transcript) == "" {
		s.deps.Logger.Warn("no chunks created from transcript: transcript is empty")
		return invalid(OpCreate, ErrEmptyTranscript)
	}

	s.teardownLocked()
	start := time.Now()
	err := s.buildLocked(ctx, transcript, title)
	s.deps.Metrics.ObserveRAGBuild(err)
	if err != nil {
		s.teardownLocked()
		s.deps.Logger.Error("error creating vector database", zap.Error(err))
		if errors.Is(err, indexer.ErrNoChunks) {
			return invalid(OpCreate, ErrEmptyTranscript)
		}
		return backend(OpCreate, err)
	}
	s.deps.Logger.Info("created vector database",
		zap.Int("chunks", s.chunks),
		zap.String("collection", s.collection),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Session) buildLocked(ctx context.Context, transcript, title string) error {
	if s.deps.Embedder == nil || s.deps.LLM == nil {
		return errors.New("session has no embedder or llm configured")
	}
	ws, err := NewWorkspace(s.id, WorkspaceOptions{
		Root:    s.cfg.WorkDir,
		Retries: s.cfg.CleanupRetries,
		Backoff: s.cfg.CleanupBackoff,
		Logger:  s.deps.Logger,
		Metrics: s.deps.Metrics,
	})
	if err != nil {
		return err
	}
	s.ws = ws

	s.store, err = storage.NewSQLiteStorage(ws.Path("chunks.db"))
	if err != nil {
		return err
	}
	s.vectors, err = vector.NewMemoryIndex(s.deps.Embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	opts := []indexer.IndexerOption{indexer.WithLogger(s.deps.Logger)}
	if s.cfg.KeywordIndexOrDefault() {
		s.keywords, err = keyword.NewBleveIndex(ws.Path("keyword.bleve"))
		if err != nil {
			return err
		}
		opts = append(opts, indexer.WithKeywordIndex(s.keywords))
	}
	s.indexer = indexer.NewIndexer(s.store, s.deps.Embedder, s.vectors,
		indexer.NewChunker(s.cfg.ChunkSize, s.cfg.ChunkOverlap), opts...)

	chunks, err := s.indexer.IndexTranscript(ctx, indexer.Transcript{
		Collection: s.collection,
		SessionID:  s.id,
		Title:      title,
		Text:       transcript,
	})
	if err != nil {
		return err
	}
	if err := s.vectors.Save(ws.Path("index.vec")); err != nil {
		return fmt.Errorf("save vector snapshot: %w", err)
	}

	s.chunks = len(chunks)
	s.title = title
	s.embedder = s.deps.Embedder
	s.params = s.defaultParams()
	s.state = StateReady
	return nil
}

// teardownLocked releases every resource the session holds. It is a no-op when
// nothing is held, so repeated calls are safe.
func (s *Session) teardownLocked() {
	final := StateUninitialized
	if s.state == StateDestroyed {
		final = StateDestroyed
	} else {
		s.state = StateClearing
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownBudget)
	defer cancel()

	if s.indexer != nil {
		if err := s.indexer.DeleteCollection(ctx, s.collection); err != nil {
			s.deps.Logger.Warn("could not delete collection", zap.String("collection", s.collection), zap.Error(err))
		}
	}
	if s.keywords != nil {
		if err := s.keywords.Close(); err != nil {
			s.deps.Logger.Warn("could not close keyword index", zap.Error(err))
		}
	}
	if s.vectors != nil {
		_ = s.vectors.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.deps.Logger.Warn("could not close chunk store", zap.Error(err))
		}
	}
	if s.ws != nil {
		s.ws.Release()
	}
	s.ws, s.store, s.vectors, s.keywords, s.indexer, s.embedder = nil, nil, nil, nil, nil, nil
	s.chunks = 0
	s.title = ""
	s.params = models.RetrievalParams{}
	s.state = final
}

// Cleanup deletes the collection, closes the indexes and removes the workspace.
// The session can be rebuilt afterwards. It never fails and may be called repeatedly.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Close cleans up and marks the session destroyed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.state = StateDestroyed
}
