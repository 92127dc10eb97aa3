package models

// SearchHit is one document returned by semantic search, scored by its best matching point.
type SearchHit struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
	// Snippet is the payload text of the best matching point.
	Snippet    string `json:"snippet"`
	ChunkIndex int    `json:"chunk_index"`
}

// WordMatch is the result of word-occurrence search.
type WordMatch struct {
	Document *Document `json:"document"`
	Count    int       `json:"count"`
}

// SimilarDocument is a document whose doc-level vector is close to a target document.
type SimilarDocument struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// KeywordHit is one BM25 match from the keyword index.
type KeywordHit struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// Status summarizes the state of both stores.
type Status struct {
	Documents      int64  `json:"documents"`
	VectorPoints   int64  `json:"vector_points"`
	KeywordEntries uint64 `json:"keyword_entries"`
	IndexType      string `json:"index_type"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}
