package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vidlens/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func chunk(id string, i int, content string) *models.Chunk {
	return &models.Chunk{ID: id, Collection: "video_transcript_s1", ChunkIndex: i, Content: content}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	chunks := []*models.Chunk{
		chunk("c0", 0, "Welcome back. Today we talk about goroutines and channels."),
		chunk("c1", 1, "The Kubernetes scheduler places pods on nodes."),
		chunk("c2", 2, "Channels let goroutines communicate without shared memory."),
	}
	if err := idx.Index(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	n, err := idx.DocCount()
	if err != nil || n != 3 {
		t.Fatalf("DocCount = %d, %v", n, err)
	}

	results, err := idx.Search(ctx, "Kubernetes", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Errorf("results = %+v", results)
	}

	results, _ = idx.Search(ctx, "goroutines", 1, nil)
	if len(results) != 1 {
		t.Errorf("limit not applied: %d results", len(results))
	}

	if results, _ := idx.Search(ctx, "   ", 10, nil); results != nil {
		t.Errorf("blank query should return nil, got %+v", results)
	}
}

func TestBleveIndex_PhraseBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, []*models.Chunk{
		chunk("scattered", 0, "memory is cheap, and shared objects are everywhere in memory"),
		chunk("phrase", 1, "avoid shared memory"),
	})
	results, err := idx.Search(ctx, "shared memory", 10, &SearchOptions{PhraseBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "phrase" {
		t.Errorf("expected phrase match first, got %+v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, []*models.Chunk{chunk("c0", 0, "photosynthesis happens in the chloroplast")})

	exact, _ := idx.Search(ctx, "chloroplsat", 10, nil)
	if len(exact) != 0 {
		t.Fatalf("misspelling should not match exactly: %+v", exact)
	}
	fuzzy, err := idx.Search(ctx, "chloroplsat", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) != 1 {
		t.Errorf("fuzzy search found %d results", len(fuzzy))
	}
}

func TestBleveIndex_DeleteAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = idx.Index(ctx, []*models.Chunk{chunk("a", 0, "alpha"), chunk("b", 1, "beta")})
	if err := idx.Delete(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, _ := reopened.DocCount()
	if n != 1 {
		t.Errorf("DocCount after reopen = %d", n)
	}
	if results, _ := reopened.Search(ctx, "alpha", 10, nil); len(results) != 0 {
		t.Errorf("deleted chunk still found: %+v", results)
	}
}
