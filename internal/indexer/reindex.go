package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/docsift/internal/vector"
	"go.uber.org/zap"
)

// Reindexer rebuilds the derived indexes from the record store.
type Reindexer struct {
	idx      *Indexer
	progress ProgressReporter
}

// ReindexOption configures a Reindexer.
type ReindexOption func(*Reindexer)

// WithProgress reports one step per document.
func WithProgress(p ProgressReporter) ReindexOption {
	return func(r *Reindexer) {
		if p != nil {
			r.progress = p
		}
	}
}

// NewReindexer returns a reindexer that shares idx's stores, embedder and batch size.
func NewReindexer(idx *Indexer, opts ...ReindexOption) *Reindexer {
	r := &Reindexer{idx: idx, progress: nopProgress{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReindexAll drops and recreates the vector collection with the embedder's current
// dimension, resets the keyword index, and rebuilds every document's points from its
// stored content and summary. Running it twice yields the same points.
func (r *Reindexer) ReindexAll(ctx context.Context) (int, error) {
	idx := r.idx
	docs, err := idx.storage.ListDocuments(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	if err := idx.vectorIndex.Recreate(ctx, idx.embedder.Dimensions()); err != nil {
		return 0, fmt.Errorf("failed to recreate vector collection: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Reset(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset keyword index: %w", err)
		}
	}

	r.progress.Start(len(docs))
	defer r.progress.Finish()
	pending := make([]vector.Point, 0, idx.batchSize)
	skipped := 0
	for _, doc := range docs {
		set, err := idx.BuildPoints(ctx, doc)
		if err != nil {
			return 0, fmt.Errorf("document %d: %w", doc.ID, err)
		}
		skipped += len(set.Skipped)
		pending = append(pending, set.Points...)
		if len(pending) >= idx.batchSize {
			if err := idx.upsert(ctx, pending); err != nil {
				return 0, err
			}
			pending = pending[:0]
		}
		if idx.keywordIndex != nil {
			if err := idx.keywordIndex.Index(ctx, doc); err != nil {
				return 0, err
			}
		}
		r.progress.Advance(1)
	}
	if err := idx.upsert(ctx, pending); err != nil {
		return 0, err
	}
	idx.logger.Info("reindex complete", zap.Int("documents", len(docs)), zap.Int("skipped_points", skipped))
	return len(docs), nil
}
