// Package storage persists RAG collections: named sets of transcript chunks
// with their metadata and embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/vidlens/internal/models"
)

// ErrNotFound is returned when a collection or chunk does not exist.
var ErrNotFound = errors.New("not found")

// ErrCollectionExists is returned by CreateCollection for a name already in use.
var ErrCollectionExists = errors.New("collection already exists")

// Collection describes a stored chunk collection.
type Collection struct {
	Name       string
	SessionID  string
	VideoTitle string
}

// Storage defines collection and chunk persistence operations.
type Storage interface {
	// Collection operations
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, name string) (*Collection, error)
	DeleteCollection(ctx context.Context, name string) error

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	ListChunks(ctx context.Context, collection string) ([]*models.Chunk, error)
	CountChunks(ctx context.Context, collection string) (int64, error)

	Close() error
}
