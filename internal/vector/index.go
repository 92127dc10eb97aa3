// Package vector provides the derived vector index: keyed points with typed payloads,
// nearest-neighbor search and deletion by file id.
package vector

import (
	"context"
	"errors"
)

// ErrNoCollection is returned when the collection has not been created yet.
var ErrNoCollection = errors.New("vector collection does not exist")

// VectorIndex is a single shared collection of points. All documents' points coexist in it,
// disambiguated by Payload.FileID.
type VectorIndex interface {
	// EnsureCollection creates the collection with the given dimension if it is missing.
	EnsureCollection(ctx context.Context, dimensions int) error
	// Recreate drops the collection and creates it empty with the given dimension.
	Recreate(ctx context.Context, dimensions int) error
	Exists(ctx context.Context) (bool, error)
	Drop(ctx context.Context) error
	// Upsert inserts or replaces points by id.
	Upsert(ctx context.Context, points []Point) error
	// Query returns up to limit points ordered by cosine similarity, highest first.
	Query(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error)
	// DeleteByFileID removes every point whose payload file_id equals fileID.
	DeleteByFileID(ctx context.Context, fileID int64) error
	Count(ctx context.Context) (int64, error)
	Type() string
	Close() error
}

// Point is one vector with its payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a query hit.
type ScoredPoint struct {
	ID      uint64
	Score   float64
	Payload Payload
}
