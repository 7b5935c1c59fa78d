package splitter

import (
	"strings"

	"github.com/hyperjump/kotaeru/internal/models"
)

// Recursive splits text using a priority-ordered separator hierarchy.
// Pieces that still exceed the chunk size after splitting at one level are
// split again with the next, finer separator. The size bound is best-effort:
// a piece that cannot be reduced below chunkSize even at the finest
// separator is emitted oversized rather than failing.
type Recursive struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a recursive splitter. Zero chunkSize/chunkOverlap and a nil
// separator list fall back to the package defaults. Sizes are in characters
// (runes).
func New(chunkSize, chunkOverlap int, separators []string) *Recursive {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
		if chunkOverlap == 0 {
			chunkOverlap = DefaultChunkOverlap
		}
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if len(separators) == 0 {
		separators = DefaultSeparators()
	}
	return &Recursive{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   separators,
	}
}

// Split splits text into chunks of at most the configured size (best-effort)
// with the configured overlap carried from each chunk into the next.
// Empty or whitespace-only input yields no chunks. Split never fails.
func (s *Recursive) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	chunks := s.splitDepth(text, 0)
	return applyOverlap(chunks, s.chunkOverlap)
}

// splitDepth splits text on separators[depth] and packs the pieces greedily.
// Oversized pieces recurse one separator deeper until the last separator,
// which is the base case and guarantees termination.
func (s *Recursive) splitDepth(text string, depth int) []string {
	sep := s.separators[depth]
	// strings.Split with an empty separator yields one piece per rune,
	// which is exactly the character-level fallback the hierarchy ends in.
	pieces := strings.Split(text, sep)
	var recurse func(string) []string
	if depth < len(s.separators)-1 {
		next := depth + 1
		recurse = func(piece string) []string { return s.splitDepth(piece, next) }
	}
	return packPieces(pieces, sep, s.chunkSize, recurse)
}

// SplitDocuments splits each document's content and wraps the chunks as
// documents per the chunk metadata rules.
func (s *Recursive) SplitDocuments(docs []models.Document) []models.Document {
	return splitDocuments(docs, s.Split)
}
