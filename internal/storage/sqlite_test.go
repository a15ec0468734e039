package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vidlens/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testChunks(collection string, n int) []*models.Chunk {
	chunks := make([]*models.Chunk, n)
	for i := range chunks {
		chunks[i] = &models.Chunk{
			ID:         collection + "-" + string(rune('a'+i)),
			Collection: collection,
			ChunkIndex: i,
			Content:    "chunk text " + string(rune('a'+i)),
			VideoTitle: "Intro to Go",
			SessionID:  "s1",
			Embedding:  []float32{float32(i), 0.5, -1},
		}
	}
	return chunks
}

func TestSQLiteStorage_Collections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := &Collection{Name: "video_transcript_s1", SessionID: "s1", VideoTitle: "Intro to Go"}
	if err := store.CreateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCollection(ctx, c); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}
	got, err := store.GetCollection(ctx, c.Name)
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "s1" || got.VideoTitle != "Intro to Go" {
		t.Errorf("got %+v", got)
	}
	if _, err := store.GetCollection(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Chunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := "video_transcript_s1"
	if err := store.CreateCollection(ctx, &Collection{Name: name, SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	chunks := testChunks(name, 3)
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountChunks(ctx, name)
	if err != nil || n != 3 {
		t.Fatalf("CountChunks = %d, %v", n, err)
	}

	got, err := store.GetChunk(ctx, chunks[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkIndex != 1 || got.VideoTitle != "Intro to Go" || got.SessionID != "s1" {
		t.Errorf("metadata lost: %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[0] != 1 || got.Embedding[2] != -1 {
		t.Errorf("embedding = %v", got.Embedding)
	}

	ordered, err := store.GetChunks(ctx, []string{chunks[2].ID, "unknown", chunks[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(ordered) != 2 || ordered[0].ChunkIndex != 2 || ordered[1].ChunkIndex != 0 {
		t.Errorf("GetChunks order wrong: %+v", ordered)
	}

	list, err := store.ListChunks(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range list {
		if c.ChunkIndex != i {
			t.Errorf("ListChunks[%d].ChunkIndex = %d", i, c.ChunkIndex)
		}
	}

	if _, err := store.GetChunk(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_DeleteCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"video_transcript_a", "video_transcript_b"} {
		if err := store.CreateCollection(ctx, &Collection{Name: name, SessionID: name}); err != nil {
			t.Fatal(err)
		}
		if err := store.BatchCreateChunks(ctx, testChunks(name, 2)); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteCollection(ctx, "video_transcript_a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx, "video_transcript_a"); n != 0 {
		t.Errorf("deleted collection still has %d chunks", n)
	}
	if n, _ := store.CountChunks(ctx, "video_transcript_b"); n != 2 {
		t.Errorf("other collection affected: %d chunks", n)
	}
	if err := store.DeleteCollection(ctx, "video_transcript_a"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestSQLiteStorage_ChunkRequiresCollection(t *testing.T) {
	store := newTestStore(t)
	err := store.BatchCreateChunks(context.Background(), testChunks("orphan", 1))
	if err == nil {
		t.Error("expected foreign key failure for chunk without collection")
	}
}
