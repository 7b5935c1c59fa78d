// Package models defines core data structures for documents, chunks, and scored results.
package models

import (
	"fmt"
	"strconv"
)

// Metadata keys written by loaders and the splitter.
const (
	MetaSource     = "source"
	MetaFileName   = "file_name"
	MetaChunk      = "chunk"
	MetaChunkCount = "chunk_count"
)

// Document is one unit of ingested text. Metadata is never nil; construct
// documents through NewDocument so an empty map is substituted for nil.
type Document struct {
	ID       string                 `json:"id,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewDocument creates a document with a guaranteed non-nil metadata map.
func NewDocument(content string, metadata map[string]interface{}) Document {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return Document{Content: content, Metadata: metadata}
}

// NewChunk derives chunk index of count from parent. The chunk copies the
// parent's metadata and adds chunk/chunk_count entries. If the parent has an
// ID the chunk's ID is "<parentID>_<index>"; otherwise the chunk has none.
// Chunks keep no reference to the parent.
func NewChunk(parent Document, content string, index, count int) Document {
	meta := make(map[string]interface{}, len(parent.Metadata)+2)
	for k, v := range parent.Metadata {
		meta[k] = v
	}
	meta[MetaChunk] = index
	meta[MetaChunkCount] = count
	chunk := Document{Content: content, Metadata: meta}
	if parent.ID != "" {
		chunk.ID = fmt.Sprintf("%s_%d", parent.ID, index)
	}
	return chunk
}

// Source returns the document's source label, or fallback when the metadata
// carries none.
func (d Document) Source(fallback string) string {
	if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return fallback
}

// ChunkInfo reports the document's chunk index and count. ok is false when
// the document is not a chunk. Handles values that went through a JSON
// round-trip, where integers come back as float64.
func (d Document) ChunkInfo() (index, count int, ok bool) {
	iv, iok := d.Metadata[MetaChunk]
	cv, cok := d.Metadata[MetaChunkCount]
	if !iok || !cok {
		return 0, 0, false
	}
	return metadataInt(iv), metadataInt(cv), true
}

func metadataInt(v interface{}) int {
	switch n := v.(type) {
	case string:
		x, _ := strconv.Atoi(n)
		return x
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// ScoredDocument pairs a document with its similarity score from one search call.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
