package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/docsift/internal/config"
	"github.com/hyperjump/docsift/internal/embedding"
	"github.com/hyperjump/docsift/internal/extract"
	"github.com/hyperjump/docsift/internal/indexer"
	"github.com/hyperjump/docsift/internal/keyword"
	"github.com/hyperjump/docsift/internal/search"
	"github.com/hyperjump/docsift/internal/storage"
	"github.com/hyperjump/docsift/internal/summarize"
	"github.com/hyperjump/docsift/internal/vector"
	"github.com/hyperjump/docsift/pkg/utils"
	"go.uber.org/zap"
)

// Components holds initialized application components.
type Components struct {
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex *keyword.BleveIndex
	Summaries    *summarize.Controller
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// Close releases all resources. The vector index is closed first so a memory
// snapshot is written even if a later close fails.
func (c *Components) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.VectorIndex != nil {
		keep(c.VectorIndex.Close())
	}
	if c.KeywordIndex != nil {
		keep(c.KeywordIndex.Close())
	}
	if c.Embedder != nil {
		keep(c.Embedder.Close())
	}
	if c.Storage != nil {
		keep(c.Storage.Close())
	}
	return firstErr
}

// componentOptions tunes initializeComponents.
type componentOptions struct {
	// rebuild opens the vector index without checking the stored dimension, for reindex.
	rebuild bool
}

// initializeComponents wires the stores, embedder, summarizer, indexer and search
// engine described by cfg.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	c := &Components{}
	fail := func(err error) (*Components, error) {
		_ = c.Close()
		return nil, err
	}

	store, err := storage.OpenSQLite(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedder: %w", err))
	}
	c.Embedder = embedder

	vecOpts := vector.Options{
		Path: cfg.Storage.VectorIndexPath,
		Qdrant: vector.QdrantOptions{
			Host:       cfg.Vector.Qdrant.Host,
			Port:       cfg.Vector.Qdrant.Port,
			APIKey:     cfg.Vector.Qdrant.APIKey,
			UseTLS:     cfg.Vector.Qdrant.UseTLS,
			Collection: cfg.Vector.Qdrant.Collection,
		},
		Logger: logger,
	}
	var vectorIndex vector.VectorIndex
	if opts.rebuild {
		vectorIndex, err = vector.Open(cfg.Vector.IndexType, vecOpts)
	} else {
		vectorIndex, err = vector.NewVectorIndex(ctx, cfg.Vector.IndexType, embedder.Dimensions(), vecOpts)
	}
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	c.VectorIndex = vectorIndex
	logger.Debug("vector index initialized",
		zap.String("type", vectorIndex.Type()),
		zap.Int("dimensions", embedder.Dimensions()))

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}
	c.KeywordIndex = keywordIndex

	summarizer, err := summarize.New(cfg.Summarizer)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize summarizer: %w", err))
	}
	c.Summaries = summarize.NewController(summarizer,
		summarize.WithTimeout(cfg.Summarizer.Timeout),
		summarize.WithIngestMaxChars(cfg.Summarizer.IngestMaxChars),
		summarize.WithLogger(logger),
	)

	c.Indexer = indexer.NewIndexer(
		store,
		embedder,
		vectorIndex,
		keywordIndex,
		extract.NewExtractor(extract.WithLogger(logger)),
		c.Summaries,
		cfg.Ingest,
		indexer.WithLogger(logger),
		indexer.WithUpsertBatchSize(cfg.Vector.UpsertBatchSize),
	)
	c.Engine = search.NewEngine(
		store,
		embedder,
		vectorIndex,
		keywordIndex,
		cfg.Search,
		search.WithLogger(logger),
		search.WithDocEmbedMaxChars(cfg.Ingest.DocEmbedMaxChars),
		search.WithDiskPaths(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath),
	)
	return c, nil
}

// openComponents loads config, builds a logger and initializes components, exiting on failure.
func openComponents(ctx context.Context, configPath string, opts componentOptions) (*config.Config, *Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(ctx, cfg, logger, opts)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, components, logger
}
