package processor

import (
	"errors"
	"sync"

	"github.com/hyperjump/vidlens/internal/models"
)

// ErrVideoNotFound is returned for a video id that has not been processed.
var ErrVideoNotFound = errors.New("video not found")

// Store keeps processed analyses in memory, keyed by video id.
type Store struct {
	mu     sync.RWMutex
	videos map[string]*models.VideoAnalysis
	order  []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{videos: make(map[string]*models.VideoAnalysis)}
}

// Put stores a copy of a.
func (s *Store) Put(a *models.VideoAnalysis) {
	cp := *a
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[a.VideoID]; !ok {
		s.order = append(s.order, a.VideoID)
	}
	s.videos[a.VideoID] = &cp
}

// Get returns a copy of the analysis for videoID.
func (s *Store) Get(videoID string) (*models.VideoAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.videos[videoID]
	if !ok {
		return nil, ErrVideoNotFound
	}
	cp := *a
	return &cp, nil
}

// List returns every stored analysis in insertion order.
func (s *Store) List() []*models.VideoAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.VideoAnalysis, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.videos[id]
		out = append(out, &cp)
	}
	return out
}

// Len returns the number of stored analyses.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.videos)
}
