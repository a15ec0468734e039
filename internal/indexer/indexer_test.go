package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/embedding"
	"github.com/hyperjump/vidlens/internal/keyword"
	"github.com/hyperjump/vidlens/internal/storage"
	"github.com/hyperjump/vidlens/internal/vector"
)

type testDeps struct {
	idx     *Indexer
	store   *storage.SQLiteStorage
	vectors *vector.MemoryIndex
	kw      *keyword.BleveIndex
}

func newTestIndexer(t *testing.T) *testDeps {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	idx := NewIndexer(store, embedding.NewMockEmbedder(64), vecIndex, NewChunker(100, 20),
		WithKeywordIndex(kwIndex), WithLogger(zap.NewNop()))
	return &testDeps{idx: idx, store: store, vectors: vecIndex, kw: kwIndex}
}

func transcript() string {
	return strings.Repeat("Goroutines are cheap. Channels connect them. ", 10) +
		"\n\n" + strings.Repeat("The garbage collector is concurrent. ", 6)
}

func TestIndexTranscript(t *testing.T) {
	d := newTestIndexer(t)
	ctx := context.Background()
	chunks, err := d.idx.IndexTranscript(ctx, Transcript{
		Collection: "video_transcript_s1", SessionID: "s1", Title: "Go internals", Text: transcript(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}

	n, _ := d.store.CountChunks(ctx, "video_transcript_s1")
	if int(n) != len(chunks) {
		t.Errorf("stored %d chunks, indexed %d", n, len(chunks))
	}
	if d.vectors.Size() != len(chunks) {
		t.Errorf("vector index size %d", d.vectors.Size())
	}
	if kn, _ := d.kw.DocCount(); int(kn) != len(chunks) {
		t.Errorf("keyword index count %d", kn)
	}
	stored, err := d.store.GetChunk(ctx, chunks[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Embedding) != 64 || stored.VideoTitle != "Go internals" {
		t.Errorf("stored chunk = %+v", stored)
	}

	hits, _ := d.kw.Search(ctx, "garbage collector", 3, nil)
	if len(hits) == 0 {
		t.Error("keyword index has no hit for an indexed phrase")
	}
}

func TestIndexTranscript_Empty(t *testing.T) {
	d := newTestIndexer(t)
	_, err := d.idx.IndexTranscript(context.Background(), Transcript{Collection: "c", SessionID: "s", Text: " \n "})
	if !errors.Is(err, ErrNoChunks) {
		t.Errorf("expected ErrNoChunks, got %v", err)
	}
	if _, err := d.store.GetCollection(context.Background(), "c"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("no collection should be created for an empty transcript")
	}
}

func TestDeleteCollection(t *testing.T) {
	d := newTestIndexer(t)
	ctx := context.Background()
	if _, err := d.idx.IndexTranscript(ctx, Transcript{Collection: "video_transcript_s1", SessionID: "s1", Text: transcript()}); err != nil {
		t.Fatal(err)
	}
	if err := d.idx.DeleteCollection(ctx, "video_transcript_s1"); err != nil {
		t.Fatal(err)
	}
	if d.vectors.Size() != 0 {
		t.Errorf("vector index not emptied: %d", d.vectors.Size())
	}
	if n, _ := d.kw.DocCount(); n != 0 {
		t.Errorf("keyword index not emptied: %d", n)
	}
	if n, _ := d.store.CountChunks(ctx, "video_transcript_s1"); n != 0 {
		t.Errorf("chunks remain: %d", n)
	}

	// A collection can be rebuilt after deletion.
	if _, err := d.idx.IndexTranscript(ctx, Transcript{Collection: "video_transcript_s1", SessionID: "s1", Text: "again"}); err != nil {
		t.Errorf("rebuild failed: %v", err)
	}
}
