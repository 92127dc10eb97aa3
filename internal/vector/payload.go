package vector

import (
	"errors"
	"fmt"
)

// Payload keys as stored in the index.
const (
	KeyFileID     = "file_id"
	KeyFilename   = "filename"
	KeyIsDocLevel = "is_doc_level"
	KeyChunkIndex = "chunk_index"
	KeyText       = "text"
)

// DocLevelChunkIndex is the chunk index reserved for the whole-document point.
const DocLevelChunkIndex = -1

// ErrMissingPayloadField is returned when a stored point lacks a required payload key.
var ErrMissingPayloadField = errors.New("missing payload field")

// Payload is the typed metadata carried by every point.
type Payload struct {
	FileID     int64
	Filename   string
	IsDocLevel bool
	ChunkIndex int
	Text       string
}

// DocLevelPayload builds the payload of a document's summary-level point.
func DocLevelPayload(fileID int64, filename, summary string) Payload {
	return Payload{FileID: fileID, Filename: filename, IsDocLevel: true, ChunkIndex: DocLevelChunkIndex, Text: summary}
}

// ChunkPayload builds the payload of a content chunk point.
func ChunkPayload(fileID int64, filename string, chunkIndex int, text string) Payload {
	return Payload{FileID: fileID, Filename: filename, ChunkIndex: chunkIndex, Text: text}
}

// Validate checks the invariants shared by all backends.
func (p Payload) Validate() error {
	if p.FileID <= 0 {
		return fmt.Errorf("invalid payload: file_id %d", p.FileID)
	}
	if p.ChunkIndex < DocLevelChunkIndex {
		return fmt.Errorf("invalid payload: chunk_index %d", p.ChunkIndex)
	}
	if p.IsDocLevel != (p.ChunkIndex == DocLevelChunkIndex) {
		return fmt.Errorf("invalid payload: is_doc_level=%v with chunk_index %d", p.IsDocLevel, p.ChunkIndex)
	}
	return nil
}

// Map returns the payload as a plain key/value map.
func (p Payload) Map() map[string]any {
	return map[string]any{
		KeyFileID:     p.FileID,
		KeyFilename:   p.Filename,
		KeyIsDocLevel: p.IsDocLevel,
		KeyChunkIndex: int64(p.ChunkIndex),
		KeyText:       p.Text,
	}
}

func missingField(key string) error {
	return fmt.Errorf("%w: %s", ErrMissingPayloadField, key)
}
