// Package keyword provides the BM25 keyword index over stored documents.
package keyword

import (
	"context"

	"github.com/hyperjump/docsift/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FilenameBoost multiplies the score contribution from matches in the filename field.
	// Values > 1 make filename matches rank higher. 1.0 or less disables the separate pass.
	FilenameBoost float64
	// Fuzziness enables typo-tolerant matching with the given Levenshtein distance (1 or 2).
	Fuzziness int
}

// KeywordIndex is a derived, rebuildable full-text index keyed by document id.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id int64) error
	// Reset removes every entry.
	Reset(ctx context.Context) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    int64
	Score float64
}
