package splitter

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/kotaeru/internal/models"
)

func TestRecursive_SplitEmpty(t *testing.T) {
	s := New(100, 0, nil)
	if got := s.Split(""); got != nil {
		t.Errorf("empty input should yield no chunks, got %v", got)
	}
	if got := s.Split("  \n\t  "); got != nil {
		t.Errorf("whitespace input should yield no chunks, got %v", got)
	}
}

func TestRecursive_SeparatorFallback(t *testing.T) {
	// No paragraph pair fits within 9 characters once the separator is
	// counted, so every paragraph becomes its own chunk.
	s := New(9, 0, []string{"\n\n", " ", ""})
	got := s.Split("aaaa\n\nbbbb\n\ncccc")
	want := []string{"aaaa", "bbbb", "cccc"}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecursive_PacksWithinSize(t *testing.T) {
	s := New(20, 0, []string{"\n\n", "\n", " ", ""})
	text := "one two three\n\nfour five six seven eight\n\nnine"
	for i, chunk := range s.Split(text) {
		if n := utf8.RuneCountInString(chunk); n > 20 {
			t.Errorf("chunk %d has %d runes: %q", i, n, chunk)
		}
	}
}

func TestRecursive_ZeroOverlapReconstruction(t *testing.T) {
	// With no overlap, the concatenated chunks minus separators must
	// reconstruct the original non-blank content.
	s := New(12, 0, []string{"\n\n", "\n", " ", ""})
	text := "alpha beta gamma\ndelta epsilon\n\nzeta eta theta iota"
	chunks := s.Split(text)
	strip := func(v string) string {
		for _, sep := range []string{"\n\n", "\n", " "} {
			v = strings.ReplaceAll(v, sep, "")
		}
		return v
	}
	if got, want := strip(strings.Join(chunks, "")), strip(text); got != want {
		t.Errorf("content lost: got %q, want %q", got, want)
	}
}

func TestRecursive_OverlapPrefix(t *testing.T) {
	s := New(15, 4, []string{"\n\n", " ", ""})
	chunks := s.Split("first paragraph here\n\nsecond paragraph\n\nthird one")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		n := 4
		if len(prev) < n {
			n = len(prev)
		}
		want := string(prev[len(prev)-n:])
		if !strings.HasPrefix(chunks[i], want) {
			t.Errorf("chunk %d %q should start with %q (tail of chunk %d)", i, chunks[i], want, i-1)
		}
	}
}

func TestRecursive_OversizedUnsplittablePiece(t *testing.T) {
	// A word that survives a separator hierarchy with no character
	// fallback must be emitted oversized rather than dropped.
	s := New(5, 0, []string{"\n\n", " "})
	got := s.Split("extraordinary")
	if len(got) != 1 || got[0] != "extraordinary" {
		t.Errorf("expected one oversized chunk, got %v", got)
	}
}

func TestRecursive_CharacterFallback(t *testing.T) {
	s := New(5, 0, []string{" ", ""})
	got := s.Split("abcdefghijkl")
	if len(got) == 0 {
		t.Fatal("expected chunks")
	}
	for i, chunk := range got {
		if utf8.RuneCountInString(chunk) > 5 {
			t.Errorf("chunk %d %q exceeds size after character fallback", i, chunk)
		}
	}
	if joined := strings.Join(got, ""); joined != "abcdefghijkl" {
		t.Errorf("character fallback lost content: %q", joined)
	}
}

func TestRecursive_SplitDocuments(t *testing.T) {
	s := New(9, 0, []string{"\n\n", " ", ""})
	parent := models.NewDocument("aaaa\n\nbbbb\n\ncccc", map[string]interface{}{"source": "a.txt"})
	parent.ID = "doc1"
	chunks := s.SplitDocuments([]models.Document{parent})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		idx, count, ok := c.ChunkInfo()
		if !ok {
			t.Fatalf("chunk %d missing chunk metadata", i)
		}
		if idx != i || count != 3 {
			t.Errorf("chunk %d metadata = %d/%d", i, idx, count)
		}
		if c.Metadata["source"] != "a.txt" {
			t.Errorf("chunk %d lost inherited metadata", i)
		}
		if want := fmt.Sprintf("doc1_%d", i); c.ID != want {
			t.Errorf("chunk %d ID = %q, want %q", i, c.ID, want)
		}
	}
}

func TestRecursive_SplitDocumentsNoID(t *testing.T) {
	s := New(100, 0, nil)
	chunks := s.SplitDocuments([]models.Document{models.NewDocument("short text", nil)})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "" {
		t.Errorf("chunk of parent without ID should have no ID, got %q", chunks[0].ID)
	}
}

func TestRecursive_Defaults(t *testing.T) {
	s := New(0, 0, nil)
	if s.chunkSize != DefaultChunkSize || s.chunkOverlap != DefaultChunkOverlap {
		t.Errorf("defaults not applied: size=%d overlap=%d", s.chunkSize, s.chunkOverlap)
	}
	if len(s.separators) != 5 {
		t.Errorf("default separators not applied: %v", s.separators)
	}
}
