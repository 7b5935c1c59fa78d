// Package ingest turns source files into embedded chunks in the vector store.
package ingest

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotaeru/internal/embedding"
	"github.com/hyperjump/kotaeru/internal/loader"
	"github.com/hyperjump/kotaeru/internal/snapshot"
	"github.com/hyperjump/kotaeru/internal/splitter"
	"github.com/hyperjump/kotaeru/internal/vector"
	"go.uber.org/zap"
)

// Stats reports what one ingest pass produced.
type Stats struct {
	Documents int
	Chunks    int
	Hydrated  bool
}

// Ingestor runs the load, split, embed, store pipeline and keeps the
// snapshot on disk in sync with the store.
type Ingestor struct {
	loader       loader.Loader
	splitter     splitter.Splitter
	embedder     embedding.Embedder
	store        vector.Store
	snapshotPath string
	logger       *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithSnapshotPath enables the snapshot cache at path. Without it,
// Rebuild skips the dump and Hydrate always rebuilds.
func WithSnapshotPath(path string) Option {
	return func(in *Ingestor) { in.snapshotPath = path }
}

// WithLogger sets a logger for progress and fallback events.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// New creates an ingestor over the given pipeline stages.
func New(ld loader.Loader, sp splitter.Splitter, emb embedding.Embedder, store vector.Store, opts ...Option) *Ingestor {
	in := &Ingestor{
		loader:   ld,
		splitter: sp,
		embedder: emb,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Rebuild re-ingests from scratch: load, split, embed, then replace the
// store contents and dump the snapshot. A snapshot dump failure is logged
// but does not fail the rebuild; the store is already consistent.
func (in *Ingestor) Rebuild(ctx context.Context) (Stats, error) {
	docs, err := in.loader.Load()
	if err != nil {
		return Stats{}, fmt.Errorf("load documents: %w", err)
	}
	chunks := in.splitter.SplitDocuments(docs)
	in.logger.Info("ingest rebuild",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	stats := Stats{Documents: len(docs), Chunks: len(chunks)}
	if len(chunks) == 0 {
		in.store.Clear()
		return stats, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := in.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return Stats{}, fmt.Errorf("embed chunks: %w", err)
	}

	in.store.Clear()
	if err := in.store.Add(chunks, embeddings); err != nil {
		return Stats{}, fmt.Errorf("store chunks: %w", err)
	}

	if in.snapshotPath != "" {
		if err := snapshot.Save(in.snapshotPath, chunks, embeddings); err != nil {
			in.logger.Warn("snapshot dump failed", zap.String("path", in.snapshotPath), zap.Error(err))
		}
	}
	return stats, nil
}

// Hydrate fills the store from the snapshot when one is usable, and
// falls back to Rebuild on any snapshot problem: missing file, corrupt
// record, or store rejection.
func (in *Ingestor) Hydrate(ctx context.Context) (Stats, error) {
	if in.snapshotPath == "" {
		return in.Rebuild(ctx)
	}
	chunks, embeddings, err := snapshot.Load(in.snapshotPath)
	if err == nil {
		in.store.Clear()
		err = in.store.Add(chunks, embeddings)
	}
	if err != nil {
		in.logger.Info("snapshot unusable, rebuilding",
			zap.String("path", in.snapshotPath), zap.Error(err))
		in.store.Clear()
		return in.Rebuild(ctx)
	}
	in.logger.Info("hydrated from snapshot",
		zap.String("path", in.snapshotPath),
		zap.Int("chunks", len(chunks)))
	return Stats{Chunks: len(chunks), Hydrated: true}, nil
}
