// Package splitter splits documents into bounded, overlapping text chunks.
package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotaeru/internal/models"
)

// Splitter turns a document's content into an ordered sequence of chunks.
type Splitter interface {
	Split(text string) []string
	SplitDocuments(docs []models.Document) []models.Document
}

// Defaults applied by New when the corresponding argument is zero or nil.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// DefaultSeparators is the separator hierarchy tried coarse to fine.
// The empty string means split into individual characters.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", " ", ""}
}

// splitDocuments applies split to each document's content and wraps the
// resulting strings as chunk documents. Chunks copy the parent's metadata
// and add chunk/chunk_count entries; documents yielding no chunks
// contribute nothing.
func splitDocuments(docs []models.Document, split func(string) []string) []models.Document {
	var out []models.Document
	for _, doc := range docs {
		chunks := split(doc.Content)
		for i, text := range chunks {
			out = append(out, models.NewChunk(doc, text, i, len(chunks)))
		}
	}
	return out
}

// applyOverlap prepends trailing context from each chunk into the next.
// Chunk 0 is unchanged; chunk i starts with the last min(overlap, len(prev))
// characters of the final form of chunk i-1. Sizes are in runes so a
// multi-byte character is never cut in half.
func applyOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := []rune(out[i-1])
		if len(prev) > overlap {
			prev = prev[len(prev)-overlap:]
		}
		out[i] = string(prev) + chunks[i]
	}
	return out
}

// packPieces greedily joins pieces into chunks of at most chunkSize runes,
// re-inserting sep between pieces. Pieces that are empty or whitespace-only
// are discarded. When a single piece is itself larger than chunkSize, the
// pending chunk is flushed and recurse is called with the piece; its output
// is spliced directly into the result. recurse is nil at the finest
// separator, in which case the oversized piece becomes a chunk on its own.
func packPieces(pieces []string, sep string, chunkSize int, recurse func(string) []string) []string {
	var chunks []string
	var current []string
	size := 0
	sepLen := utf8.RuneCountInString(sep)
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		pieceLen := utf8.RuneCountInString(piece)
		if size+pieceLen+sepLen <= chunkSize {
			current = append(current, piece)
			size += pieceLen + sepLen
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, sep))
			current = nil
			size = 0
		}
		if pieceLen > chunkSize && recurse != nil {
			chunks = append(chunks, recurse(piece)...)
			continue
		}
		current = []string{piece}
		size = pieceLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}
	return chunks
}
