package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/docsift/internal/models"
)

// indexedDocument is the shape stored in Bleve.
type indexedDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	Tags     string `json:"tags"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	path  string
	mu    sync.RWMutex
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index in memory.
// If you change the index mapping in code, run a reindex to rebuild the directory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{path: path, index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match the exact word.
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"filename", "content", "summary", "tags"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

func openOrCreate(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return idx, nil
	}
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return idx, nil
	}
	idx, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return idx, nil
}

func docKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Index adds or replaces the entry for doc.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	err := b.index.Index(docKey(doc.ID), indexedDocument{
		Filename: doc.Filename,
		Content:  doc.Content,
		Summary:  doc.Summary,
		Tags:     models.JoinTags(doc.Tags),
	})
	if err != nil {
		return fmt.Errorf("failed to index document %d: %w", doc.ID, err)
	}
	return nil
}

// Search runs a match query over all fields and returns up to limit results.
// With opts.FilenameBoost > 1 a filename-only pass is added to the score.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	scores := make(map[string]float64)
	if err := b.collect(ctx, buildQuery(query, o.Fuzziness, ""), limit*2, 1, scores); err != nil {
		return nil, err
	}
	if o.FilenameBoost > 1 {
		if err := b.collect(ctx, buildQuery(query, o.Fuzziness, "filename"), limit*2, o.FilenameBoost, scores); err != nil {
			return nil, err
		}
	}

	out := make([]*KeywordResult, 0, len(scores))
	for key, score := range scores {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &KeywordResult{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *BleveIndex) collect(ctx context.Context, q blevequery.Query, size int, weight float64, scores map[string]float64) error {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("Bleve search failed: %w", err)
	}
	for _, hit := range results.Hits {
		scores[hit.ID] += hit.Score * weight
	}
	return nil
}

// buildQuery creates a match query, or a disjunction of fuzzy queries per term when
// fuzziness > 0. An empty field searches all fields.
func buildQuery(query string, fuzziness int, field string) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a document from the index. Deleting a missing id is not an error.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.index.Delete(docKey(id)); err != nil {
		return fmt.Errorf("failed to delete document %d from keyword index: %w", id, err)
	}
	return nil
}

// Reset drops the index and recreates it empty with the current mapping.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	if b.path != "" {
		if err := os.RemoveAll(b.path); err != nil {
			return fmt.Errorf("failed to remove Bleve index: %w", err)
		}
	}
	idx, err := openOrCreate(b.path)
	if err != nil {
		return err
	}
	b.index = idx
	return nil
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
