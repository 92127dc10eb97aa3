package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/docsift/internal/cli"
	"github.com/hyperjump/docsift/internal/indexer"
	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/server"
	"github.com/hyperjump/docsift/internal/summarize"
	"github.com/hyperjump/docsift/internal/watcher"
	"github.com/hyperjump/docsift/pkg/utils"
	"go.uber.org/zap"
)

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, componentOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Warn("close components failed", zap.Error(err))
		}
	}()

	idx := components.Indexer
	watchSvc := watcher.NewWatcher(
		idx,
		cfg.Watch.Directories,
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithFilter(func(rel string) bool {
			return idx.Allowed(rel) && !idx.Ignored(rel)
		}),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		components.Summaries,
		cfg,
		logger,
		server.WithWatch(watchSvc, resolvedConfigPath),
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() != 1 {
		fatalf("Usage: docsift ingest [flags] <file|dir>")
	}
	format := mustFormat(*outputFormat)
	path := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isGlob(path) {
		matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
		if err != nil {
			fatalf("Invalid pattern %s: %v", path, err)
		}
		if len(matches) == 0 {
			fatalf("No files match %s", path)
		}
		_, components, logger := openComponents(ctx, *configPath, componentOptions{})
		defer logger.Sync()
		defer components.Close()
		ingestFiles(ctx, components.Indexer, matches, format)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fatalf("Cannot ingest %s: %v", path, err)
	}
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	if info.IsDir() {
		res, err := components.Indexer.IngestDirectory(ctx, path, cli.NewProgress("ingesting"))
		if err != nil {
			fatalf("Ingest failed: %v", err)
		}
		if format == cli.OutputJSON {
			failed := make(map[string]string, len(res.Failed))
			for p, ferr := range res.Failed {
				failed[p] = ferr.Error()
			}
			_ = cli.WriteJSON(os.Stdout, map[string]any{
				"ingested":    res.Ingested,
				"unsupported": res.Unsupported,
				"failed":      failed,
			})
			return
		}
		fmt.Printf("Ingested %d files (%d unsupported, %d failed)\n", len(res.Ingested), res.Unsupported, len(res.Failed))
		for p, ferr := range res.Failed {
			fmt.Printf("  %s: %v\n", p, ferr)
		}
		return
	}

	res, err := components.Indexer.IngestFile(ctx, path)
	if res == nil {
		fatalf("Ingest failed: %v", err)
	}
	if format == cli.OutputJSON {
		out := map[string]any{"id": res.ID, "chunks": res.Chunks, "points": res.Points, "placeholder": res.Placeholder, "unchanged": res.Unchanged}
		if err != nil {
			out["warning"] = err.Error()
		}
		_ = cli.WriteJSON(os.Stdout, out)
		return
	}
	if res.Unchanged {
		fmt.Printf("%s unchanged since last ingest (document %d)\n", path, res.ID)
		return
	}
	fmt.Printf("Ingested %s as %d (%d chunks, %d points)\n", path, res.ID, res.Chunks, res.Points)
	if res.Placeholder {
		fmt.Println("  no extractable text; stored with placeholder summary")
	}
	for _, s := range res.Skipped {
		fmt.Printf("  skipped chunk %d: %v\n", s.Index, s.Reason)
	}
	if err != nil {
		fmt.Printf("  warning: %v\n", err)
	}
}

// ingestFiles ingests each path, reporting per-file outcomes. Unsupported files are counted.
func ingestFiles(ctx context.Context, idx *indexer.Indexer, paths []string, format cli.OutputFormat) {
	progress := cli.NewProgress("ingesting")
	progress.Start(len(paths))
	var ingested []int64
	unsupported := 0
	failed := make(map[string]string)
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		res, err := idx.IngestFile(ctx, p)
		switch {
		case errors.Is(err, models.ErrUnsupportedInput):
			unsupported++
		case res == nil:
			failed[p] = err.Error()
		default:
			ingested = append(ingested, res.ID)
			if err != nil {
				failed[p] = err.Error()
			}
		}
		progress.Advance(1)
	}
	progress.Finish()
	if format == cli.OutputJSON {
		_ = cli.WriteJSON(os.Stdout, map[string]any{"ingested": ingested, "unsupported": unsupported, "failed": failed})
		return
	}
	fmt.Printf("Ingested %d files (%d unsupported, %d failed)\n", len(ingested), unsupported, len(failed))
	for p, msg := range failed {
		fmt.Printf("  %s: %s\n", p, msg)
	}
}

// isGlob reports whether path contains doublestar pattern syntax.
func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the stores directly)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fatalf("Usage: docsift search [flags] <query>")
	}
	format := mustFormat(*outputFormat)

	var hits []*models.SearchHit
	if *serverURL != "" {
		var err error
		hits, err = newAPIClient(*serverURL).Search(query, *limit)
		if err != nil {
			fatalf("Search failed: %v", err)
		}
	} else {
		ctx := context.Background()
		_, components, logger := openComponents(ctx, *configPath, componentOptions{})
		defer logger.Sync()
		defer components.Close()
		var err error
		hits, err = components.Engine.Search(ctx, query, *limit)
		if err != nil {
			fatalf("Search failed: %v", err)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, query, hits, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runWord() {
	fs := flag.NewFlagSet("word", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() != 1 {
		fatalf("Usage: docsift word [flags] <word>")
	}
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	match, err := components.Engine.SearchByWord(ctx, fs.Arg(0))
	if err != nil {
		fatalf("Word search failed: %v", err)
	}
	if err := cli.WriteWordMatch(os.Stdout, fs.Arg(0), match, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runKeyword() {
	fs := flag.NewFlagSet("keyword", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fatalf("Usage: docsift keyword [flags] <query>")
	}
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	hits, err := components.Engine.SearchKeyword(ctx, query, *limit)
	if err != nil {
		fatalf("Keyword search failed: %v", err)
	}
	if err := cli.WriteKeywordResults(os.Stdout, query, hits, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSimilar() {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	id := fileIDArg(fs, "similar")
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	docs, err := components.Engine.FindSimilar(ctx, id, *limit)
	if err != nil {
		fatalf("Similar search failed: %v", err)
	}
	if err := cli.WriteSimilar(os.Stdout, id, docs, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDuplicates() {
	fs := flag.NewFlagSet("duplicates", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	threshold := fs.Float64("threshold", 0, "minimum similarity in [0,1] (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	id := fileIDArg(fs, "duplicates")
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	t := *threshold
	if t == 0 {
		t = components.Engine.DefaultDuplicateThreshold()
	}
	docs, err := components.Engine.FindDuplicates(ctx, id, t)
	if err != nil {
		fatalf("Duplicate search failed: %v", err)
	}
	if err := cli.WriteSimilar(os.Stdout, id, docs, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSummary() {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	modeName := fs.String("mode", "medium", "summary length: short, medium or long")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	id := fileIDArg(fs, "summary")
	format := mustFormat(*outputFormat)
	mode, err := summarize.ParseMode(*modeName)
	if err != nil {
		fatalf("%v", err)
	}

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	summary, err := components.Summaries.SummarizeDocument(ctx, components.Storage, id, mode)
	if err != nil {
		fatalf("Summary failed: %v", err)
	}
	if format == cli.OutputJSON {
		_ = cli.WriteJSON(os.Stdout, map[string]any{"id": id, "mode": mode, "summary": summary})
		return
	}
	fmt.Println(summary)
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	tag := fs.String("tag", "", "only documents with a tag containing this text")
	offset := fs.Int("offset", 0, "number of documents to skip")
	limit := fs.Int("limit", 50, "number of documents (0 = all)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	var docs []*models.Document
	var err error
	if *tag != "" {
		docs, err = components.Engine.ListByTag(ctx, *tag)
	} else {
		docs, err = components.Storage.ListDocuments(ctx, *offset, *limit)
	}
	if err != nil {
		fatalf("List failed: %v", err)
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	id := fileIDArg(fs, "delete")

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	doc, err := components.Indexer.DeleteDocument(ctx, id)
	if doc == nil {
		fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted %d (%s)\n", doc.ID, doc.Filename)
	if err != nil {
		fmt.Printf("  warning: %v\n", err)
	}
}

func runReprocess() {
	fs := flag.NewFlagSet("reprocess", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	id := fileIDArg(fs, "reprocess")
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{})
	defer logger.Sync()
	defer components.Close()

	doc, err := components.Indexer.Reprocess(ctx, id)
	if doc == nil {
		fatalf("Reprocess failed: %v", err)
	}
	if format == cli.OutputJSON {
		_ = cli.WriteDocuments(os.Stdout, []*models.Document{doc}, format)
	} else {
		fmt.Printf("Reprocessed %d (%s)\nSummary: %s\nTags: %v\n", doc.ID, doc.Filename, doc.Summary, doc.Tags)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, components, logger := openComponents(ctx, *configPath, componentOptions{rebuild: true})
	defer logger.Sync()
	defer components.Close()

	start := time.Now()
	n, err := indexer.NewReindexer(components.Indexer,
		indexer.WithProgress(cli.NewProgress("reindexing")),
	).ReindexAll(ctx)
	if err != nil {
		fatalf("Reindex failed: %v", err)
	}
	fmt.Printf("Reindexed %d documents in %s\n", n, time.Since(start).Round(time.Millisecond))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the stores directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	var status *models.Status
	if *serverURL != "" {
		var err error
		status, err = newAPIClient(*serverURL).Status()
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		ctx := context.Background()
		_, components, logger := openComponents(ctx, *configPath, componentOptions{})
		defer logger.Sync()
		defer components.Close()
		var err error
		status, err = components.Engine.Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fatalf("Usage: docsift watch <list|add|remove> [flags] [path]")
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch "+sub, flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	noSync := fs.Bool("no-sync", false, "do not ingest files already in an added directory")
	_ = fs.Parse(searchArgsReorder(os.Args[3:]))
	client := newAPIClient(*serverURL)

	switch sub {
	case "list":
		dirs, err := client.WatchDirectories()
		if err != nil {
			fatalf("Watch list failed: %v", err)
		}
		if len(dirs) == 0 {
			fmt.Println("No watched directories")
			return
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	case "add", "remove":
		if fs.NArg() != 1 {
			fatalf("Usage: docsift watch %s [flags] <path>", sub)
		}
		// The server resolves relative paths against its own working directory.
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path %s: %v", fs.Arg(0), err)
		}
		if sub == "add" {
			err = client.AddWatchDirectory(path, !*noSync)
		} else {
			err = client.RemoveWatchDirectory(path)
		}
		if err != nil {
			fatalf("Watch %s failed: %v", sub, err)
		}
		fmt.Printf("Watch %s: %s\n", sub, path)
	default:
		fatalf("Unknown watch command: %s (supported: list, add, remove)", sub)
	}
}

func mustFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func fileIDArg(fs *flag.FlagSet, command string) int64 {
	if fs.NArg() != 1 {
		fatalf("Usage: docsift %s [flags] <id>", command)
	}
	id, err := parseFileID(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	return id
}
