// Package indexer chunks transcripts and writes the chunks into a session's
// collection store, vector index and keyword index.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/embedding"
	"github.com/hyperjump/vidlens/internal/keyword"
	"github.com/hyperjump/vidlens/internal/models"
	"github.com/hyperjump/vidlens/internal/storage"
	"github.com/hyperjump/vidlens/internal/vector"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// ErrNoChunks is returned when a transcript produces no chunks.
var ErrNoChunks = errors.New("transcript produced no chunks")

// Indexer indexes transcripts into storage, the vector index and, when set, the keyword index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithKeywordIndex also indexes chunks for keyword retrieval.
func WithKeywordIndex(k keyword.KeywordIndex) IndexerOption {
	return func(idx *Indexer) { idx.keywordIndex = k }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	chunker *Chunker,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:     storage,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		chunker:     chunker,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// Transcript is the input of IndexTranscript.
type Transcript struct {
	Collection string
	SessionID  string
	Title      string
	Text       string
}

// IndexTranscript creates the collection, then chunks, embeds and indexes the transcript.
// It returns the stored chunks in order.
func (idx *Indexer) IndexTranscript(ctx context.Context, in Transcript) ([]*models.Chunk, error) {
	chunks := idx.chunker.Chunk(in.Collection, in.SessionID, in.Title, Preprocess(in.Text))
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if err := idx.storage.CreateCollection(ctx, &storage.Collection{
		Name:       in.Collection,
		SessionID:  in.SessionID,
		VideoTitle: in.Title,
	}); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("failed to generate embeddings: got %d for %d chunks", len(embeddings), len(chunks))
	}
	ids := make([]string, len(chunks))
	for i := range chunks {
		// The vector index ranks by inner product, so it only holds unit vectors.
		embeddings[i] = utils.Normalized(embeddings[i])
		chunks[i].Embedding = embeddings[i]
		ids[i] = chunks[i].ID
	}

	if err := idx.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	if err := idx.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Index(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	idx.logger.Debug("transcript indexed",
		zap.String("collection", in.Collection),
		zap.String("session_id", in.SessionID),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// DeleteCollection removes a collection's chunks from every index and from storage.
func (idx *Indexer) DeleteCollection(ctx context.Context, collection string) error {
	chunks, err := idx.storage.ListChunks(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if idx.keywordIndex != nil && len(ids) > 0 {
		if err := idx.keywordIndex.Delete(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.storage.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	idx.logger.Debug("collection deleted", zap.String("collection", collection), zap.Int("chunks", len(ids)))
	return nil
}
