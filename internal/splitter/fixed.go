package splitter

import (
	"strings"

	"github.com/hyperjump/kotaeru/internal/models"
)

// Fixed splits text on a single separator. Pieces larger than the chunk
// size are emitted as oversized chunks; use Recursive when finer fallback
// separators are wanted.
type Fixed struct {
	chunkSize    int
	chunkOverlap int
	separator    string
}

// NewFixed creates a single-separator splitter. Zero chunkSize falls back
// to the package defaults; an empty separator defaults to a paragraph break.
func NewFixed(chunkSize, chunkOverlap int, separator string) *Fixed {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
		if chunkOverlap == 0 {
			chunkOverlap = DefaultChunkOverlap
		}
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if separator == "" {
		separator = "\n\n"
	}
	return &Fixed{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separator:    separator,
	}
}

// Split splits text on the configured separator and packs the pieces into
// chunks of at most the configured size, then applies the overlap pass.
func (s *Fixed) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := strings.Split(text, s.separator)
	chunks := packPieces(pieces, s.separator, s.chunkSize, nil)
	return applyOverlap(chunks, s.chunkOverlap)
}

// SplitDocuments splits each document's content and wraps the chunks as
// documents per the chunk metadata rules.
func (s *Fixed) SplitDocuments(docs []models.Document) []models.Document {
	return splitDocuments(docs, s.Split)
}
