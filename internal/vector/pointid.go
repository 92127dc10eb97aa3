package vector

import (
	"errors"
	"fmt"
)

// MaxChunksPerDocument is the number of content chunks a document may own in the index.
const MaxChunksPerDocument = 10000

// pointStride is the id range reserved per document: one doc-level point plus the chunks.
const pointStride = MaxChunksPerDocument + 1

var (
	// ErrChunkCeiling is returned for chunk indexes at or beyond MaxChunksPerDocument.
	ErrChunkCeiling = errors.New("chunk index exceeds per-document ceiling")
	// ErrInvalidPoint is returned for ids that cannot be mapped to a point.
	ErrInvalidPoint = errors.New("invalid point identity")
)

// PointID derives the point id for (fileID, chunkIndex). The doc-level point
// (chunkIndex -1) takes offset 0 of the document's range and chunk i takes offset i+1,
// so ids never collide across documents or between a document's own points.
func PointID(fileID int64, chunkIndex int) (uint64, error) {
	if fileID <= 0 || chunkIndex < DocLevelChunkIndex {
		return 0, fmt.Errorf("%w: file %d chunk %d", ErrInvalidPoint, fileID, chunkIndex)
	}
	if chunkIndex >= MaxChunksPerDocument {
		return 0, fmt.Errorf("%w: file %d chunk %d", ErrChunkCeiling, fileID, chunkIndex)
	}
	return uint64(fileID)*pointStride + uint64(chunkIndex+1), nil
}

// SplitPointID is the inverse of PointID.
func SplitPointID(id uint64) (fileID int64, chunkIndex int) {
	return int64(id / pointStride), int(id%pointStride) - 1
}
