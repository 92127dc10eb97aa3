package config

import "time"

const defaultDataDir = "/usr/local/var/docsift/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite3"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDataDir + "/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = defaultDataDir + "/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = defaultDataDir + "/indices/vectors.gob"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = defaultDataDir + "/uploads"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Provider == "onnx" && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = defaultDataDir + "/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}

	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.UpsertBatchSize == 0 {
		cfg.Vector.UpsertBatchSize = 64
	}
	if cfg.Vector.Qdrant.Host == "" {
		cfg.Vector.Qdrant.Host = "localhost"
	}
	if cfg.Vector.Qdrant.Port == 0 {
		cfg.Vector.Qdrant.Port = 6334
	}
	if cfg.Vector.Qdrant.Collection == "" {
		cfg.Vector.Qdrant.Collection = "files"
	}

	if cfg.Summarizer.Provider == "" {
		cfg.Summarizer.Provider = "frequency"
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "gpt-4o-mini"
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 30 * time.Second
	}
	if cfg.Summarizer.MaxInputTokens == 0 {
		cfg.Summarizer.MaxInputTokens = 800
	}
	if cfg.Summarizer.IngestMaxChars == 0 {
		cfg.Summarizer.IngestMaxChars = 4000
	}

	if cfg.Ingest.MaxChunkChars == 0 {
		cfg.Ingest.MaxChunkChars = 1000
	}
	if cfg.Ingest.DocEmbedMaxChars == 0 {
		cfg.Ingest.DocEmbedMaxChars = 8000
	}
	if cfg.Ingest.EmbedWorkers == 0 {
		cfg.Ingest.EmbedWorkers = 4
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".docx", ".png", ".jpg", ".jpeg", ".txt", ".md", ".xlsx", ".odt", ".rtf"}
	}
	if cfg.Ingest.Ignore == nil {
		cfg.Ingest.Ignore = []string{"**/.git/**", "**/node_modules/**", "**/.*"}
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.OverFetch == 0 {
		cfg.Search.OverFetch = 5
	}
	if cfg.Search.DuplicateFanout == 0 {
		cfg.Search.DuplicateFanout = 20
	}
	if cfg.Search.DuplicateThreshold == 0 {
		cfg.Search.DuplicateThreshold = 0.9
	}

	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
