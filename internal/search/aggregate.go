package search

import (
	"github.com/hyperjump/docsift/internal/vector"
)

// bestByFile keeps the highest scoring point of each file, in first-seen order.
// Points rejected by keep are ignored; a nil keep accepts all.
func bestByFile(points []vector.ScoredPoint, keep func(vector.ScoredPoint) bool) []vector.ScoredPoint {
	index := make(map[int64]int)
	var out []vector.ScoredPoint
	for _, p := range points {
		if keep != nil && !keep(p) {
			continue
		}
		if i, ok := index[p.Payload.FileID]; ok {
			if p.Score > out[i].Score {
				out[i] = p
			}
			continue
		}
		index[p.Payload.FileID] = len(out)
		out = append(out, p)
	}
	return out
}

func fileIDs(points []vector.ScoredPoint) []int64 {
	ids := make([]int64, len(points))
	for i, p := range points {
		ids[i] = p.Payload.FileID
	}
	return ids
}
