package vector

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/docsift/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// When constructed with a path it loads its points on creation and persists them on Save and Close.
type MemoryIndex struct {
	path       string
	dimensions int
	exists     bool
	points     map[uint64]memoryPoint
	mu         sync.RWMutex
}

type memoryPoint struct {
	Vector  []float32
	Payload Payload
}

// memorySnapshot is the on-disk form of a MemoryIndex.
type memorySnapshot struct {
	Dimensions int
	Points     map[uint64]memoryPoint
}

// NewMemoryIndex creates an in-memory vector index. path may be empty for a purely volatile index.
// If path names an existing snapshot, its collection is restored.
func NewMemoryIndex(path string) (*MemoryIndex, error) {
	m := &MemoryIndex{path: path, points: make(map[uint64]memoryPoint)}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// EnsureCollection creates the collection if missing. An existing collection with another
// dimension is an error; use Recreate to change it.
func (m *MemoryIndex) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists {
		if m.dimensions != dimensions {
			return fmt.Errorf("collection dimension is %d, embedder produces %d; reindex required", m.dimensions, dimensions)
		}
		return nil
	}
	m.dimensions = dimensions
	m.exists = true
	m.points = make(map[uint64]memoryPoint)
	return nil
}

// Recreate drops every point and sets a new dimension.
func (m *MemoryIndex) Recreate(ctx context.Context, dimensions int) error {
	if err := m.Drop(ctx); err != nil {
		return err
	}
	return m.EnsureCollection(ctx, dimensions)
}

// Exists reports whether the collection has been created.
func (m *MemoryIndex) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists, nil
}

// Drop removes the collection.
func (m *MemoryIndex) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.dimensions = 0
	m.points = make(map[uint64]memoryPoint)
	return nil
}

// Upsert stores normalized copies of the point vectors, replacing existing ids.
func (m *MemoryIndex) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return ErrNoCollection
	}
	for _, p := range points {
		if len(p.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(p.Vector), m.dimensions)
		}
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("point %d: %w", p.ID, err)
		}
	}
	for _, p := range points {
		vec := make([]float32, m.dimensions)
		copy(vec, p.Vector)
		utils.NormalizeL2(vec)
		m.points[p.ID] = memoryPoint{Vector: vec, Payload: p.Payload}
	}
	return nil
}

// Query returns the top points by cosine similarity. Ties are broken by ascending id.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, ErrNoCollection
	}
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	if limit <= 0 || len(m.points) == 0 {
		return nil, nil
	}
	query := make([]float32, len(vector))
	copy(query, vector)
	utils.NormalizeL2(query)

	scored := make([]ScoredPoint, 0, len(m.points))
	for id, p := range m.points {
		scored = append(scored, ScoredPoint{ID: id, Score: InnerProduct(query, p.Vector), Payload: p.Payload})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if limit > len(scored) {
		limit = len(scored)
	}
	return scored[:limit], nil
}

// DeleteByFileID removes all points of one document.
func (m *MemoryIndex) DeleteByFileID(ctx context.Context, fileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return ErrNoCollection
	}
	for id, p := range m.points {
		if p.Payload.FileID == fileID {
			delete(m.points, id)
		}
	}
	return nil
}

// Count returns the number of points.
func (m *MemoryIndex) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.points)), nil
}

// Points returns a copy of every stored point ordered by id.
func (m *MemoryIndex) Points() []Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Point, 0, len(m.points))
	for id, p := range m.points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		out = append(out, Point{ID: id, Vector: vec, Payload: p.Payload})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save persists the collection to the index path. Directory is created if needed.
// A dropped collection removes the snapshot.
func (m *MemoryIndex) Save() error {
	if m.path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove index file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(memorySnapshot{Dimensions: m.dimensions, Points: m.points}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func (m *MemoryIndex) load() error {
	if m.path == "" {
		return nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var snap memorySnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	for id, p := range snap.Points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("point %d: %w", id, err)
		}
	}
	m.dimensions = snap.Dimensions
	m.points = snap.Points
	if m.points == nil {
		m.points = make(map[uint64]memoryPoint)
	}
	m.exists = true
	return nil
}

// Close persists the index when it has a path.
func (m *MemoryIndex) Close() error {
	return m.Save()
}
