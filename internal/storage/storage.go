// Package storage defines the canonical record store for ingested documents.
package storage

import (
	"context"

	"github.com/hyperjump/docsift/internal/models"
)

// Storage is the record store. It owns document identity and lifetime; the vector
// and keyword indexes are derived from it.
type Storage interface {
	// InsertDocument stores doc, assigns doc.ID and doc.CreatedAt, and returns the new id.
	InsertDocument(ctx context.Context, doc *models.Document) (int64, error)
	// GetDocument returns models.ErrNotFound when id is absent.
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	// ListDocuments returns documents most recent first. limit <= 0 means all.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// GetDocumentsByIDs returns the rows that exist, keyed by id. Missing ids are omitted.
	GetDocumentsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Document, error)
	// DeleteDocument returns models.ErrNotFound when id is absent.
	DeleteDocument(ctx context.Context, id int64) error
	// ScanDocuments calls fn for every document in ListDocuments order until fn returns an error.
	ScanDocuments(ctx context.Context, fn func(*models.Document) error) error
	ListByTag(ctx context.Context, tag string) ([]*models.Document, error)
	FindBySourcePath(ctx context.Context, sourcePath string) ([]*models.Document, error)
	// UpdateDerived rewrites summary, summary kind and tags during reprocessing.
	UpdateDerived(ctx context.Context, id int64, summary string, kind models.SummaryKind, tags []string) error
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
