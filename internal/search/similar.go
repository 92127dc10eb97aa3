package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/vector"
	"github.com/hyperjump/docsift/pkg/utils"
	"go.uber.org/zap"
)

// FindSimilar returns up to topK other documents whose doc-level points are closest to
// the current content of fileID. A document without content has no similar documents.
func (e *Engine) FindSimilar(ctx context.Context, fileID int64, topK int) ([]*models.SimilarDocument, error) {
	return e.similar(ctx, fileID, e.limit(topK))
}

// FindDuplicates returns the documents among the closest DuplicateFanout whose similarity
// to fileID is at least threshold. threshold must lie in [0, 1].
func (e *Engine) FindDuplicates(ctx context.Context, fileID int64, threshold float64) ([]*models.SimilarDocument, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]", models.ErrInvalidArgument, threshold)
	}
	similar, err := e.similar(ctx, fileID, e.config.DuplicateFanout)
	if err != nil {
		return nil, err
	}
	out := similar[:0]
	for _, s := range similar {
		if s.Score >= threshold {
			out = append(out, s)
		}
	}
	return out, nil
}

// DefaultDuplicateThreshold is the configured threshold used when callers pass none.
func (e *Engine) DefaultDuplicateThreshold() float64 {
	if e.config.DuplicateThreshold <= 0 {
		return 0.9
	}
	return e.config.DuplicateThreshold
}

func (e *Engine) similar(ctx context.Context, fileID int64, n int) ([]*models.SimilarDocument, error) {
	doc, err := e.storage.GetDocument(ctx, fileID)
	if err != nil {
		return nil, err
	}
	out := []*models.SimilarDocument{}
	if strings.TrimSpace(doc.Content) == "" {
		return out, nil
	}

	vec, err := e.embedder.Embed(ctx, utils.Prefix(doc.Content, e.docEmbedMaxChars))
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	points, err := e.vectorIndex.Query(ctx, vec, n*e.config.OverFetch)
	if errors.Is(err, vector.ErrNoCollection) {
		e.logger.Warn("vector collection missing, returning no similar documents", zap.Int64("file_id", fileID))
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	best := bestByFile(points, func(p vector.ScoredPoint) bool {
		return p.Payload.IsDocLevel && p.Payload.FileID != fileID
	})
	docs, err := e.storage.GetDocumentsByIDs(ctx, fileIDs(best))
	if err != nil {
		return nil, err
	}
	for _, p := range best {
		if len(out) == n {
			break
		}
		if d, ok := docs[p.Payload.FileID]; ok {
			out = append(out, &models.SimilarDocument{Document: d, Score: p.Score})
		}
	}
	return out, nil
}
