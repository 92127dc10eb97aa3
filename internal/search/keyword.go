package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/docsift/internal/keyword"
	"github.com/hyperjump/docsift/internal/models"
)

// keywordOptions ranks filename matches above body matches and tolerates one typo.
var keywordOptions = &keyword.SearchOptions{FilenameBoost: 2, Fuzziness: 1}

// SearchKeyword returns documents ranked by BM25 relevance to query.
func (e *Engine) SearchKeyword(ctx context.Context, query string, limit int) ([]*models.KeywordHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidArgument)
	}
	if e.keywordIndex == nil {
		return nil, errors.New("keyword index is not configured")
	}
	limit = e.limit(limit)
	results, err := e.keywordIndex.Search(ctx, query, limit, keywordOptions)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	docs, err := e.storage.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]*models.KeywordHit, 0, len(results))
	for _, r := range results {
		if doc, ok := docs[r.ID]; ok {
			hits = append(hits, &models.KeywordHit{Document: doc, Score: r.Score})
		}
	}
	return hits, nil
}

// ListByTag returns documents having a tag that contains tag, case-insensitively.
func (e *Engine) ListByTag(ctx context.Context, tag string) ([]*models.Document, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is empty", models.ErrInvalidArgument)
	}
	return e.storage.ListByTag(ctx, tag)
}
