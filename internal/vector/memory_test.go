package vector

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []string{"a", "b", "c"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}

	all, _ := idx.Search(ctx, []float32{1, 0, 0}, 10)
	if len(all) != 3 {
		t.Errorf("k larger than size should return all, got %d", len(all))
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	err := idx.Add(ctx, []string{"ok", "bad"}, [][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("partial add: size %d", idx.Size())
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected query mismatch, got %v", err)
	}
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Remove(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("expected size 1, got %d", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{1, 0}, 1)
	if res[0].ID != "y" {
		t.Errorf("remaining id = %s", res[0].ID)
	}
}

func TestMemoryIndex_SearchMMR(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	// a and a2 are duplicates; c is less relevant but orthogonal to them.
	_ = idx.Add(ctx, []string{"a", "a2", "c"}, [][]float32{{1, 0}, {1, 0}, {0, 1}})
	q := []float32{0.96, 0.28}

	plain, _ := idx.Search(ctx, q, 2)
	if plain[0].ID != "a" || plain[1].ID != "a2" {
		t.Fatalf("similarity order = %s, %s", plain[0].ID, plain[1].ID)
	}

	mmr, err := idx.SearchMMR(ctx, q, 2, 3, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(mmr) != 2 || mmr[0].ID != "a" || mmr[1].ID != "c" {
		t.Errorf("mmr picked %v", []string{mmr[0].ID, mmr[1].ID})
	}

	same, _ := idx.SearchMMR(ctx, q, 2, 3, 1)
	if same[1].ID != "a2" {
		t.Errorf("lambda=1 should equal similarity, got %s", same[1].ID)
	}
	if _, err := idx.SearchMMR(ctx, q, 2, 3, 1.5); err == nil {
		t.Error("expected error for lambda > 1")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "index.vec")
	ctx := context.Background()

	idx, _ := NewMemoryIndex(3)
	_ = idx.Add(ctx, []string{"chunk-0", "chunk-1"}, [][]float32{{1, 0, 0}, {0, 0.5, 0.5}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size %d", loaded.Size())
	}
	res, _ := loaded.Search(ctx, []float32{0, 1, 1}, 1)
	if res[0].ID != "chunk-1" {
		t.Errorf("top = %s", res[0].ID)
	}

	wrongDim, _ := NewMemoryIndex(2)
	if err := wrongDim.Load(path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if err := loaded.Load(filepath.Join(dir, "missing.vec")); err != nil {
		t.Errorf("missing file should be a no-op, got %v", err)
	}
	if loaded.Size() != 2 {
		t.Error("missing file load must not clear the index")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel = %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector = %f", got)
	}
}
