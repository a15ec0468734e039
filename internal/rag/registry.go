package rag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// ErrRegistryClosed is returned by Get after Close.
var ErrRegistryClosed = errors.New("session registry is closed")

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID reports whether id can name a session. IDs become part of a
// directory name, so only letters, digits, '-' and '_' are accepted.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Registry maps session ids to sessions, creating them on first use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      config.RAGConfig
	deps     Deps
	closed   bool
}

// NewRegistry creates an empty registry. New sessions get cfg and deps.
func NewRegistry(cfg config.RAGConfig, deps Deps) *Registry {
	deps.Logger = utils.OrNop(deps.Logger)
	return &Registry{sessions: make(map[string]*Session), cfg: cfg, deps: deps}
}

// Get returns the session for id, creating it if needed.
func (r *Registry) Get(id string) (*Session, error) {
	if !ValidSessionID(id) {
		return nil, invalid("session", fmt.Errorf("invalid session id %q", id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	s := NewSession(id, r.cfg, r.deps)
	r.sessions[id] = s
	return s, nil
}

// IndexTranscript builds the index of session sessionID from transcript,
// creating the session if needed.
func (r *Registry) IndexTranscript(ctx context.Context, sessionID, transcript, title string) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	return s.CreateVectorDatabase(ctx, transcript, title)
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove cleans up and forgets the session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len returns the number of known sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reconfigure swaps the configuration and services used by new sessions and
// hands the new services to existing ones.
func (r *Registry) Reconfigure(cfg config.RAGConfig, deps Deps) {
	deps.Logger = utils.OrNop(deps.Logger)
	r.mu.Lock()
	r.cfg = cfg
	r.deps = deps
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.SetDeps(deps)
	}
}

// Close cleans up every session. Further Get calls fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	logger := r.deps.Logger
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	logger.Info("rag sessions closed", zap.Int("sessions", len(sessions)))
	return nil
}
