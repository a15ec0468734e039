package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// snapshotMagic marks a MemoryIndex snapshot file.
const snapshotMagic = "VLVX"

// MemoryIndex is a brute-force inner-product index. A session holds one
// transcript, so the chunk count stays small enough for exhaustive search.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Add appends vectors with the given IDs. Nothing is added when any vector has the wrong dimension.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("%w: %s has %d, expected %d", ErrDimensionMismatch, ids[i], len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product, best first.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := m.rank(query)
	if k > len(order) {
		k = len(order)
	}
	if k <= 0 {
		return nil, nil
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		result[i] = &VectorResult{ID: m.ids[order[i].idx], Score: order[i].score}
	}
	return result, nil
}

// SearchMMR fetches the fetchK nearest vectors and re-ranks them by maximal
// marginal relevance. lambda=1 is plain similarity, lambda=0 maximal diversity.
func (m *MemoryIndex) SearchMMR(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("mmr lambda must be in [0,1], got %f", lambda)
	}
	if fetchK < k {
		fetchK = k
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := m.rank(query)
	if fetchK > len(order) {
		fetchK = len(order)
	}
	if k <= 0 || fetchK == 0 {
		return nil, nil
	}
	candidates := make([]int, fetchK)
	for i := range candidates {
		candidates[i] = order[i].idx
	}
	picked := selectMMR(query, candidates, m.vectors, k, lambda)
	result := make([]*VectorResult, len(picked))
	for i, p := range picked {
		result[i] = &VectorResult{ID: m.ids[p.idx], Score: p.score}
	}
	return result, nil
}

// rank scores every vector against query, best first. Callers hold the read lock.
func (m *MemoryIndex) rank(query []float32) []*scoredIdx {
	scores := make([]*scoredIdx, len(m.vectors))
	for i, vec := range m.vectors {
		scores[i] = &scoredIdx{idx: i, score: InnerProduct(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	return scores
}

// Remove deletes vectors by ID.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removeSet[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keptIDs := m.ids[:0]
	keptVectors := m.vectors[:0]
	for i, id := range m.ids {
		if _, drop := removeSet[id]; !drop {
			keptIDs = append(keptIDs, id)
			keptVectors = append(keptVectors, m.vectors[i])
		}
	}
	m.ids = keptIDs
	m.vectors = keptVectors
	return nil
}

// Save writes a snapshot to path, creating the directory if needed.
// Format: magic (4), dimension (4), n (4), then per vector: idLen (4), id bytes, dimension*4 bytes.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(snapshotMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	header := []uint32{uint32(m.dimensions), uint32(len(m.ids))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.WriteString(id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return f.Sync()
}

// Load replaces the index contents with the snapshot at path. A missing file leaves
// the index unchanged. The snapshot dimension must match.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != snapshotMagic {
		return fmt.Errorf("not a vector index snapshot: %s", path)
	}
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if int(header[0]) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, header[0], m.dimensions)
	}
	n := header[1]
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	m.mu.Lock()
	m.ids, m.vectors = ids, vectors
	m.mu.Unlock()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close releases the vectors.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	m.ids, m.vectors = nil, nil
	m.mu.Unlock()
	return nil
}
