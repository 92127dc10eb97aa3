// Package models defines core data structures for documents and retrieval results.
package models

import (
	"strings"
	"time"
)

// SummaryKind records how a document summary was produced.
type SummaryKind string

const (
	SummaryAI          SummaryKind = "ai"
	SummaryFallback    SummaryKind = "fallback"
	SummaryPlaceholder SummaryKind = "placeholder"
)

// PlaceholderSummary is stored for documents with no extractable text.
const PlaceholderSummary = "No extractable text found in this document."

// Document is the canonical record of one ingested file.
type Document struct {
	ID          int64       `json:"id" db:"id"`
	Filename    string      `json:"filename" db:"filename"`
	SourcePath  string      `json:"source_path" db:"source_path"`
	Content     string      `json:"content,omitempty" db:"content"`
	Summary     string      `json:"summary" db:"summary"`
	SummaryKind SummaryKind `json:"summary_kind" db:"summary_kind"`
	Tags        []string    `json:"tags" db:"tags"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`

	// Source file state at ingestion, used to skip unchanged files. Zero when the
	// source could not be stat'ed.
	SourceMtime int64 `json:"-" db:"source_mtime"`
	SourceSize  int64 `json:"-" db:"source_size"`
}

// SameSource reports whether the document was ingested from a file with the given
// modification time (UnixNano) and size.
func (d *Document) SameSource(mtime, size int64) bool {
	return d.SourceMtime != 0 && d.SourceMtime == mtime && d.SourceSize == size
}

// IsPlaceholder reports whether the document was stored without extractable text.
func (d *Document) IsPlaceholder() bool {
	return d.SummaryKind == SummaryPlaceholder
}

// JoinTags encodes tags for the single tags column.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags decodes the tags column; an empty column yields no tags.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
