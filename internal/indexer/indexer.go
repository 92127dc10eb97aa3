// Package indexer ingests documents into the record store and keeps the derived
// vector and keyword indexes in step with it.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/docsift/internal/config"
	"github.com/hyperjump/docsift/internal/embedding"
	"github.com/hyperjump/docsift/internal/extract"
	"github.com/hyperjump/docsift/internal/keyword"
	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/storage"
	"github.com/hyperjump/docsift/internal/summarize"
	"github.com/hyperjump/docsift/internal/tagger"
	"github.com/hyperjump/docsift/internal/vector"
	"github.com/hyperjump/docsift/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EmptyDocumentText is embedded as the doc-level vector of documents without text.
const EmptyDocumentText = "empty document"

// Extractor returns the raw text of a file. Unsupported files yield extract.ErrUnsupportedType.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Indexer runs the ingestion pipeline and the delete and reprocess flows.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	extractor    Extractor
	summaries    *summarize.Controller
	chunker      *Chunker
	config       config.IngestConfig
	batchSize    int
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for pipeline events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithUpsertBatchSize bounds the number of points sent per vector upsert.
func WithUpsertBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies. keywordIndex may be nil.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	extractor Extractor,
	summaries *summarize.Controller,
	cfg config.IngestConfig,
	opts ...IndexerOption,
) *Indexer {
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = 1
	}
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		extractor:    extractor,
		summaries:    summaries,
		chunker:      NewChunker(cfg.MaxChunkChars),
		config:       cfg,
		batchSize:    64,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// ChunkOutcome records a point that could not be built. Index is the chunk index,
// vector.DocLevelChunkIndex for the doc-level point.
type ChunkOutcome struct {
	Index  int
	Reason error
}

// IngestResult describes one ingestion.
type IngestResult struct {
	ID          int64
	Chunks      int
	Points      int
	Placeholder bool
	Skipped     []ChunkOutcome
	// Unchanged is set when IngestFile found the file already ingested with the same
	// modification time and size and kept the existing document.
	Unchanged bool
}

// Ingest extracts, stores and indexes the file at filePath and returns the new document id.
func (idx *Indexer) Ingest(ctx context.Context, filePath, filename string) (int64, error) {
	res, err := idx.IngestWithResult(ctx, filePath, filename)
	if res == nil {
		return 0, err
	}
	return res.ID, err
}

// IngestWithResult is Ingest with per-chunk detail.
//
// Unsupported files fail with models.ErrUnsupportedInput before anything is written.
// Otherwise a record is always stored; if a derived index write then fails the result
// is returned together with an error wrapping models.ErrIndexIncomplete.
func (idx *Indexer) IngestWithResult(ctx context.Context, filePath, filename string) (*IngestResult, error) {
	if filename == "" {
		filename = filepath.Base(filePath)
	}
	raw, err := idx.extractor.Extract(ctx, filePath)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrUnsupportedInput, filename, err)
		}
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	doc := idx.prepare(ctx, filePath, filename, raw)
	if info, statErr := os.Stat(filePath); statErr == nil {
		doc.SourceMtime = info.ModTime().UnixNano()
		doc.SourceSize = info.Size()
	}
	id, err := idx.storage.InsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	res := &IngestResult{ID: id, Placeholder: doc.IsPlaceholder()}
	if err := idx.indexDocument(ctx, doc, res); err != nil {
		idx.logger.Error("document stored but index write failed", zap.Int64("file_id", id), zap.Error(err))
		return res, fmt.Errorf("document %d: %w: %w", id, models.ErrIndexIncomplete, err)
	}
	idx.logger.Info("document ingested",
		zap.Int64("file_id", id),
		zap.String("filename", filename),
		zap.String("summary_kind", string(doc.SummaryKind)),
		zap.Int("chunks", res.Chunks),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// prepare normalizes raw text and derives summary and tags.
func (idx *Indexer) prepare(ctx context.Context, filePath, filename, raw string) *models.Document {
	doc := &models.Document{Filename: filename, SourcePath: filePath}
	normalized := Normalize(raw)
	if strings.TrimSpace(raw) == "" && normalized == "" {
		doc.Summary = models.PlaceholderSummary
		doc.SummaryKind = models.SummaryPlaceholder
		return doc
	}
	doc.Content = normalized
	if doc.Content == "" {
		doc.Content = raw
	}
	doc.Summary, doc.SummaryKind = idx.summaries.IngestSummary(ctx, doc.Content)
	source := doc.Summary
	if strings.TrimSpace(source) == "" {
		source = doc.Content
	}
	doc.Tags = tagger.Extract(source)
	return doc
}

// indexDocument writes the vector points and the keyword entry of a stored document.
func (idx *Indexer) indexDocument(ctx context.Context, doc *models.Document, res *IngestResult) error {
	set, err := idx.BuildPoints(ctx, doc)
	if err != nil {
		return err
	}
	res.Chunks = set.Chunks
	res.Points = len(set.Points)
	res.Skipped = set.Skipped
	if err := idx.upsert(ctx, set.Points); err != nil {
		return err
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Index(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// PointSet is the outcome of BuildPoints.
type PointSet struct {
	// Points holds the doc-level point first, then chunk points in chunk order.
	Points []vector.Point
	// Chunks is the number of content chunks, including skipped ones.
	Chunks  int
	Skipped []ChunkOutcome
}

// BuildPoints embeds a stored document into its points. Points whose embedding failed
// are left out and reported in Skipped. Placeholder documents get only the doc-level point.
func (idx *Indexer) BuildPoints(ctx context.Context, doc *models.Document) (*PointSet, error) {
	if doc.ID <= 0 {
		return nil, fmt.Errorf("%w: document has no id", models.ErrInvalidArgument)
	}
	docText := EmptyDocumentText
	var chunks []string
	if !doc.IsPlaceholder() && strings.TrimSpace(doc.Content) != "" {
		docText = utils.Prefix(doc.Content, idx.config.DocEmbedMaxChars)
		chunks = idx.chunker.SplitBounded(doc.Content, vector.MaxChunksPerDocument)
	}

	// Slot 0 is the doc-level point, slot i+1 is chunk i.
	texts := make([]string, len(chunks)+1)
	texts[0] = docText
	copy(texts[1:], chunks)
	vectors := make([][]float32, len(texts))
	reasons := make([]error, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.EmbedWorkers)
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := idx.embedder.Embed(gctx, text)
			if err != nil {
				reasons[i] = err
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &PointSet{Points: make([]vector.Point, 0, len(texts)), Chunks: len(chunks)}
	for i, text := range texts {
		chunkIndex := i - 1
		if reasons[i] != nil {
			idx.logger.Warn("skipping point, embedding failed",
				zap.Int64("file_id", doc.ID), zap.Int("chunk_index", chunkIndex), zap.Error(reasons[i]))
			set.Skipped = append(set.Skipped, ChunkOutcome{Index: chunkIndex, Reason: reasons[i]})
			continue
		}
		id, err := vector.PointID(doc.ID, chunkIndex)
		if err != nil {
			return nil, err
		}
		payload := vector.ChunkPayload(doc.ID, doc.Filename, chunkIndex, text)
		if chunkIndex == vector.DocLevelChunkIndex {
			payload = vector.DocLevelPayload(doc.ID, doc.Filename, doc.Summary)
		}
		set.Points = append(set.Points, vector.Point{ID: id, Vector: vectors[i], Payload: payload})
	}
	return set, nil
}

// upsert writes points in batches.
func (idx *Indexer) upsert(ctx context.Context, points []vector.Point) error {
	for start := 0; start < len(points); start += idx.batchSize {
		end := min(start+idx.batchSize, len(points))
		if err := idx.vectorIndex.Upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocument removes a document from the record store, then its vector points and
// keyword entry. Unknown ids yield models.ErrNotFound. When the record is gone but a
// derived index could not be cleaned, the error wraps models.ErrIndexIncomplete.
func (idx *Indexer) DeleteDocument(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return nil, err
	}
	var errs []error
	if err := idx.vectorIndex.DeleteByFileID(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		idx.logger.Warn("document deleted but index cleanup failed", zap.Int64("file_id", id), zap.Error(err))
		return doc, fmt.Errorf("document %d: %w: %w", id, models.ErrIndexIncomplete, err)
	}
	idx.logger.Info("document deleted", zap.Int64("file_id", id), zap.String("filename", doc.Filename))
	return doc, nil
}

// Reprocess recomputes the summary and tags of a stored document from its content and
// rebuilds its points. Placeholder documents keep their placeholder summary.
func (idx *Indexer) Reprocess(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsPlaceholder() {
		doc.Summary, doc.SummaryKind = idx.summaries.IngestSummary(ctx, doc.Content)
		doc.Tags = tagger.Extract(doc.Summary)
		if err := idx.storage.UpdateDerived(ctx, id, doc.Summary, doc.SummaryKind, doc.Tags); err != nil {
			return nil, err
		}
	}
	if err := idx.vectorIndex.DeleteByFileID(ctx, id); err != nil {
		return doc, fmt.Errorf("document %d: %w: %w", id, models.ErrIndexIncomplete, err)
	}
	if err := idx.indexDocument(ctx, doc, &IngestResult{ID: id}); err != nil {
		return doc, fmt.Errorf("document %d: %w: %w", id, models.ErrIndexIncomplete, err)
	}
	idx.logger.Info("document reprocessed", zap.Int64("file_id", id), zap.String("summary_kind", string(doc.SummaryKind)))
	return doc, nil
}
