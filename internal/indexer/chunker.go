package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hyperjump/vidlens/internal/models"
)

// DefaultSeparators are tried in order, from paragraph breaks down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Chunker is a recursive character splitter. It splits on the coarsest separator
// present in the text, recursing into pieces that are still too long, then merges
// adjacent pieces into chunks of at most chunkSize characters that overlap by up
// to chunkOverlap characters.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker with the given size and overlap, in characters.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: DefaultSeparators}
}

// Chunk splits a transcript into chunks tagged with collection, session and title metadata.
func (c *Chunker) Chunk(collection, sessionID, title, text string) []*models.Chunk {
	pieces := c.Split(text)
	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:         uuid.NewString(),
			Collection: collection,
			ChunkIndex: i,
			Content:    p,
			VideoTitle: title,
			SessionID:  sessionID,
		}
	}
	return chunks
}

// Split returns the chunk texts of text, trimmed, with empty chunks dropped.
func (c *Chunker) Split(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep, rest := "", []string(nil)
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep, rest = s, separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = appendTrimmed(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge packs consecutive pieces into chunks no longer than chunkSize, carrying the
// tail of each chunk (at most chunkOverlap characters) into the next one.
func (c *Chunker) merge(pieces []string) []string {
	var out, current []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.chunkSize && len(current) > 0 {
			out = appendTrimmed(out, strings.Join(current, ""))
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if len(current) > 0 {
		out = appendTrimmed(out, strings.Join(current, ""))
	}
	return out
}

// splitKeep splits s after each occurrence of sep, keeping the separator on the
// preceding piece. An empty sep splits into characters.
func splitKeep(s, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
