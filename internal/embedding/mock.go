package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/docsift/pkg/utils"
)

// ErrMockFailure is returned by MockEmbedder for texts containing its failure marker.
var ErrMockFailure = errors.New("mock embedding failure")

// MockEmbedder is a deterministic embedder for tests. It returns a fixed-dimension
// vector derived from the text hash so that the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
	failOn     string
	calls      atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// FailOn makes Embed return ErrMockFailure for any text containing marker.
func (e *MockEmbedder) FailOn(marker string) *MockEmbedder {
	e.failOn = marker
	return e
}

// Calls returns how many times Embed ran.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, ErrMockFailure
	}
	h := int(featureHash(text) >> 40)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
