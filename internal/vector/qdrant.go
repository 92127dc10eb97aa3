package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantOptions holds the connection settings for a Qdrant server.
type QdrantOptions struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex stores points in a Qdrant collection using cosine distance.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// NewQdrantIndex connects to Qdrant over gRPC.
func NewQdrantIndex(opts QdrantOptions, logger *zap.Logger) (*QdrantIndex, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantIndex{client: client, collection: opts.Collection, logger: logger}, nil
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

// EnsureCollection creates the collection when it is missing.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := q.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return q.create(ctx, dimensions)
}

// Recreate drops and recreates the collection.
func (q *QdrantIndex) Recreate(ctx context.Context, dimensions int) error {
	if err := q.Drop(ctx); err != nil {
		return err
	}
	return q.create(ctx, dimensions)
}

func (q *QdrantIndex) create(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	q.logger.Info("created qdrant collection", zap.String("collection", q.collection), zap.Int("dimensions", dimensions))
	return nil
}

// Exists reports whether the collection exists.
func (q *QdrantIndex) Exists(ctx context.Context) (bool, error) {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == q.collection {
			return true, nil
		}
	}
	return false, nil
}

// Drop deletes the collection if it exists.
func (q *QdrantIndex) Drop(ctx context.Context) error {
	exists, err := q.Exists(ctx)
	if err != nil || !exists {
		return err
	}
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert writes points and waits for the operation to be applied.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("point %d: %w", p.ID, err)
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload.Map()),
		}
	}
	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query searches the collection and decodes every payload. A hit with a malformed
// payload fails the whole query.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		return nil, nil
	}
	l := uint64(limit)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &l,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoCollection, q.collection)
		}
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}
	out := make([]ScoredPoint, 0, len(hits))
	for _, hit := range hits {
		payload, err := PayloadFromQdrant(hit.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", hit.GetId().GetNum(), err)
		}
		out = append(out, ScoredPoint{ID: hit.GetId().GetNum(), Score: float64(hit.GetScore()), Payload: payload})
	}
	return out, nil
}

// DeleteByFileID removes every point whose file_id matches.
func (q *QdrantIndex) DeleteByFileID(ctx context.Context, fileID int64) error {
	wait := true
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: fileIDFilter(fileID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points of file %d: %w", fileID, err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int64, error) {
	exact := true
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int64(n), nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func fileIDFilter(fileID int64) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInt(KeyFileID, fileID),
		},
	}
}

// PayloadFromQdrant decodes a point payload, failing on the first missing key.
func PayloadFromQdrant(m map[string]*qdrant.Value) (Payload, error) {
	var p Payload
	for _, key := range []string{KeyFileID, KeyFilename, KeyIsDocLevel, KeyChunkIndex, KeyText} {
		if _, ok := m[key]; !ok {
			return Payload{}, missingField(key)
		}
	}
	p.FileID = intValue(m[KeyFileID])
	p.Filename = m[KeyFilename].GetStringValue()
	p.IsDocLevel = m[KeyIsDocLevel].GetBoolValue()
	p.ChunkIndex = int(intValue(m[KeyChunkIndex]))
	p.Text = m[KeyText].GetStringValue()
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func intValue(v *qdrant.Value) int64 {
	if _, ok := v.GetKind().(*qdrant.Value_DoubleValue); ok {
		return int64(v.GetDoubleValue())
	}
	return v.GetIntegerValue()
}
