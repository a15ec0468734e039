// Package keyword provides BM25 keyword search over transcript chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/vidlens/internal/models"
)

// SearchOptions are optional parameters for keyword search. Nil means defaults.
type SearchOptions struct {
	// PhraseBoost multiplies the score of chunks where the query appears as a phrase.
	// Values <= 1 disable the phrase pass.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits, which helps with
	// misspellings in auto-generated transcripts.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default 1.
	Fuzziness int
}

// KeywordIndex defines keyword search operations over chunks.
type KeywordIndex interface {
	Index(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids []string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the chunk ID.
type KeywordResult struct {
	ID    string
	Score float64
}
