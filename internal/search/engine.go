// Package search answers retrieval queries against the record store and the derived
// vector and keyword indexes.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/docsift/internal/config"
	"github.com/hyperjump/docsift/internal/embedding"
	"github.com/hyperjump/docsift/internal/keyword"
	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/storage"
	"github.com/hyperjump/docsift/internal/vector"
	"go.uber.org/zap"
)

// Engine runs semantic, word, similarity and keyword retrieval.
type Engine struct {
	storage          storage.Storage
	embedder         embedding.Embedder
	vectorIndex      vector.VectorIndex
	keywordIndex     keyword.KeywordIndex
	config           config.SearchConfig
	docEmbedMaxChars int
	diskPaths        []string
	logger           *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithDocEmbedMaxChars sets the content prefix embedded by FindSimilar. It must match
// the bound used at ingestion so a document's own doc-level point scores near 1.
func WithDocEmbedMaxChars(n int) EngineOption {
	return func(e *Engine) { e.docEmbedMaxChars = n }
}

// WithDiskPaths sets the files and directories summed by Status.
func WithDiskPaths(paths ...string) EngineOption {
	return func(e *Engine) { e.diskPaths = paths }
}

// NewEngine creates a search engine with the given dependencies. keywordIndex may be nil.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg config.SearchConfig,
	opts ...EngineOption,
) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = 5
	}
	if cfg.DuplicateFanout <= 0 {
		cfg.DuplicateFanout = 20
	}
	e := &Engine{
		storage:          storage,
		embedder:         embedder,
		vectorIndex:      vectorIndex,
		keywordIndex:     keywordIndex,
		config:           cfg,
		docEmbedMaxChars: 8000,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// limit applies the default and the ceiling to a caller-supplied result count.
func (e *Engine) limit(n int) int {
	if n <= 0 {
		n = e.config.DefaultLimit
	}
	return min(n, e.config.MaxLimit)
}

// Search embeds query once and returns the topK documents ranked by their best matching
// point, doc-level or chunk. Points whose document row is gone are dropped.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]*models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidArgument)
	}
	topK = e.limit(topK)

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	points, err := e.vectorIndex.Query(ctx, vec, topK*e.config.OverFetch)
	if errors.Is(err, vector.ErrNoCollection) {
		e.logger.Warn("vector collection missing, returning no results")
		return []*models.SearchHit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	best := bestByFile(points, nil)
	docs, err := e.storage.GetDocumentsByIDs(ctx, fileIDs(best))
	if err != nil {
		return nil, err
	}
	hits := make([]*models.SearchHit, 0, len(best))
	for _, p := range best {
		doc, ok := docs[p.Payload.FileID]
		if !ok {
			e.logger.Debug("dropping point without document", zap.Int64("file_id", p.Payload.FileID))
			continue
		}
		hits = append(hits, &models.SearchHit{
			Document:   doc,
			Score:      p.Score,
			Snippet:    p.Payload.Text,
			ChunkIndex: p.Payload.ChunkIndex,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Status reports the size of the record store and both derived indexes.
func (e *Engine) Status(ctx context.Context) (*models.Status, error) {
	docs, err := e.storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	points, err := e.vectorIndex.Count(ctx)
	if err != nil {
		return nil, err
	}
	status := &models.Status{
		Documents:    docs,
		VectorPoints: points,
		IndexType:    e.vectorIndex.Type(),
	}
	if e.keywordIndex != nil {
		if status.KeywordEntries, err = e.keywordIndex.DocCount(); err != nil {
			return nil, err
		}
	}
	if status.DiskUsageBytes, err = storage.DiskUsageBytes(e.diskPaths...); err != nil {
		e.logger.Warn("failed to compute disk usage", zap.Error(err))
	}
	return status, nil
}
