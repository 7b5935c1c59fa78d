// Package snapshot persists embedded chunks to disk so restarts can skip
// re-embedding an unchanged corpus.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotaeru/internal/models"
)

// ErrCorruptSnapshot is returned by Load when the snapshot file does not
// hold a consistent chunk/embedding pairing.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// record is the on-disk shape: chunks and their embeddings, index-aligned.
type record struct {
	Chunks     []models.Document `json:"chunks"`
	Embeddings [][]float32       `json:"embeddings"`
}

// Save writes the snapshot to path atomically: a temp file in the same
// directory is written first, then renamed over path. Parent directories
// are created as needed.
func Save(path string, chunks []models.Document, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrCorruptSnapshot, len(chunks), len(embeddings))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.Marshal(record{Chunks: chunks, Embeddings: embeddings})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save. A snapshot whose chunk and
// embedding counts disagree, or whose embeddings have mixed dimensions,
// fails with ErrCorruptSnapshot.
func Load(path string) ([]models.Document, [][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if len(rec.Chunks) != len(rec.Embeddings) {
		return nil, nil, fmt.Errorf("%w: %d chunks, %d embeddings",
			ErrCorruptSnapshot, len(rec.Chunks), len(rec.Embeddings))
	}
	for i, emb := range rec.Embeddings {
		if len(emb) != len(rec.Embeddings[0]) {
			return nil, nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				ErrCorruptSnapshot, i, len(emb), len(rec.Embeddings[0]))
		}
	}
	return rec.Chunks, rec.Embeddings, nil
}
