// Package fileid derives stable content keys for video files.
package fileid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

const prefix = "video:"

// sampleBytes bounds how much of a file is hashed. Together with the size this
// tells apart distinct videos without reading multi-gigabyte files in full.
const sampleBytes = 8 << 20

// VideoKey returns a key derived from the file's size and leading content. The
// same bytes under a different name or path yield the same key.
func VideoKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	h := sha256.New()
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(info.Size()))
	h.Write(size[:])
	if _, err := io.CopyN(h, f, sampleBytes); err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Set records keys that have already been handled. Safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{keys: make(map[string]struct{})}
}

// Add records key and reports whether it was new.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Forget removes key so it can be handled again.
func (s *Set) Forget(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}

// Len returns the number of recorded keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
