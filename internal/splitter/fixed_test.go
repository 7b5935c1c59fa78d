package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFixed_Split(t *testing.T) {
	s := NewFixed(12, 0, "\n\n")
	got := s.Split("aaaa\n\nbbbb\n\ncccc")
	// "aaaa" + separator + "bbbb" fits in 12; "cccc" starts a new chunk.
	want := []string{"aaaa\n\nbbbb", "cccc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFixed_SplitEmpty(t *testing.T) {
	s := NewFixed(10, 0, "\n\n")
	if got := s.Split("   "); got != nil {
		t.Errorf("whitespace input should yield no chunks, got %v", got)
	}
}

func TestFixed_OversizedPiece(t *testing.T) {
	// A single piece larger than the chunk size is emitted as-is; the
	// fixed splitter has no finer separator to fall back to.
	s := NewFixed(4, 0, "\n\n")
	got := s.Split("elephant")
	if len(got) != 1 || got[0] != "elephant" {
		t.Errorf("expected one oversized chunk, got %v", got)
	}
}

func TestFixed_Overlap(t *testing.T) {
	s := NewFixed(10, 3, "\n\n")
	chunks := s.Split("first part\n\nsecond part\n\nthird part")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		n := 3
		if len(prev) < n {
			n = len(prev)
		}
		if want := string(prev[len(prev)-n:]); !strings.HasPrefix(chunks[i], want) {
			t.Errorf("chunk %d %q should start with %q", i, chunks[i], want)
		}
	}
}

func TestFixed_SizeBound(t *testing.T) {
	s := NewFixed(16, 0, "\n")
	for i, chunk := range s.Split("aaa\nbbb\nccc\nddd\neee\nfff") {
		if n := utf8.RuneCountInString(chunk); n > 16 {
			t.Errorf("chunk %d has %d runes: %q", i, n, chunk)
		}
	}
}
