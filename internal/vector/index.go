// Package vector holds the in-memory embedding index of a RAG session.
package vector

import "context"

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// SearchMMR selects k results from the fetchK nearest by maximal marginal relevance.
	SearchMMR(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single search hit. ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64 // inner product, equal to cosine similarity for normalized vectors
}
