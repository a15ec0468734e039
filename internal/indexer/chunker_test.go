package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_ShortText(t *testing.T) {
	c := NewChunker(1000, 200)
	got := c.Split("  Hello world.  ")
	if len(got) != 1 || got[0] != "Hello world." {
		t.Errorf("Split = %q", got)
	}
	if got := c.Split("   \n\n  "); len(got) != 0 {
		t.Errorf("blank text should give no chunks, got %q", got)
	}
}

func TestChunker_SizeAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := sb.String()
	c := NewChunker(1000, 200)
	chunks := c.Split(text)
	if len(chunks) < 18 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 1000 {
			t.Errorf("chunk %d has %d characters", i, n)
		}
	}
	// Consecutive chunks share text from the overlap window.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-40:]
		if !strings.Contains(chunks[i], strings.TrimSpace(tail)) {
			t.Errorf("chunk %d does not overlap chunk %d", i, i-1)
			break
		}
	}
}

func TestChunker_PrefersParagraphs(t *testing.T) {
	para := strings.Repeat("a", 300)
	text := para + "\n\n" + strings.Repeat("b", 300) + "\n\n" + strings.Repeat("c", 300)
	chunks := NewChunker(500, 0).Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected one chunk per paragraph, got %d: %q", len(chunks), chunks)
	}
	for i, want := range []string{"a", "b", "c"} {
		if strings.Trim(chunks[i], want) != "" {
			t.Errorf("chunk %d mixes paragraphs", i)
		}
	}
}

func TestChunker_FallsBackToCharacters(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks := NewChunker(10, 0).Split(text)
	if len(chunks) != 3 || chunks[0] != strings.Repeat("x", 10) || chunks[2] != "xxxxx" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestChunker_ChunkMetadata(t *testing.T) {
	chunks := NewChunker(20, 5).Chunk("video_transcript_s1", "s1", "Go talk", "one two three four five six seven eight nine ten")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	seen := map[string]bool{}
	for i, ch := range chunks {
		if ch.ChunkIndex != i || ch.Collection != "video_transcript_s1" || ch.SessionID != "s1" || ch.VideoTitle != "Go talk" {
			t.Errorf("chunk %d metadata = %+v", i, ch)
		}
		if seen[ch.ID] {
			t.Errorf("duplicate id %s", ch.ID)
		}
		seen[ch.ID] = true
	}
}

func TestNewChunker_InvalidOverlap(t *testing.T) {
	c := NewChunker(10, 50)
	if c.chunkOverlap != 0 {
		t.Errorf("overlap >= size should be reset, got %d", c.chunkOverlap)
	}
}

func TestPreprocess(t *testing.T) {
	in := "  Hello   world\r\n\r\n\r\nSecond\x00 paragraph\tline  "
	want := "Hello world\n\nSecond paragraph line"
	if got := Preprocess(in); got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}
