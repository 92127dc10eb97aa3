package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search persisted to a local snapshot.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeQdrant stores points in a Qdrant collection.
	IndexTypeQdrant IndexType = "qdrant"
)

// Options configures NewVectorIndex.
type Options struct {
	// Path is the memory index snapshot file; empty keeps the index volatile.
	Path   string
	Qdrant QdrantOptions
	Logger *zap.Logger
}

// Open creates a vector index of the given type without touching its collection.
// Callers that rebuild the collection use it together with Recreate.
func Open(indexType string, opts Options) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(opts.Path)
	case IndexTypeQdrant:
		return NewQdrantIndex(opts.Qdrant, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, qdrant)", indexType)
	}
}

// NewVectorIndex creates a vector index of the given type and ensures its collection
// exists with the given dimension.
func NewVectorIndex(ctx context.Context, indexType string, dimensions int, opts Options) (VectorIndex, error) {
	idx, err := Open(indexType, opts)
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureCollection(ctx, dimensions); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}
