package vector

import (
	"context"
	"testing"
)

func BenchmarkMemoryIndexQuery(b *testing.B) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex("")
	_ = idx.EnsureCollection(ctx, 384)
	points := make([]Point, 0, 1000)
	for i := 0; i < 1000; i++ {
		vec := make([]float32, 384)
		vec[0] = float32(i+1) / 1000
		vec[i%384] += 1
		id, _ := PointID(int64(i/10+1), i%10)
		points = append(points, Point{ID: id, Vector: vec, Payload: ChunkPayload(int64(i/10+1), "doc.txt", i%10, "text")})
	}
	_ = idx.Upsert(ctx, points)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Query(ctx, query, 50)
	}
}
