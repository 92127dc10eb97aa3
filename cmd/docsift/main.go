// Package main is the docsift CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/docsift/internal/config"
	"github.com/joho/godotenv"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docsift/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; if that exists it is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env file next to the working directory.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "word":
		runWord()
	case "keyword":
		runKeyword()
	case "similar":
		runSimilar()
	case "duplicates":
		runDuplicates()
	case "summary":
		runSummary()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "reprocess":
		runReprocess()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("docsift version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse sees them. Go's flag package
// stops at the first non-flag argument, so "docsift search invoice -limit 3" would
// otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseFileID parses a positional document id.
func parseFileID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", s)
	}
	return id, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`docsift - Local document indexing and retrieval engine

Usage:
  docsift server [flags]                 Start the HTTP server and directory watcher
  docsift ingest [flags] <file|dir>      Ingest a file or every supported file under a directory
  docsift search [flags] <query>         Semantic search, best documents first
  docsift word [flags] <word>            Document with the most occurrences of a word
  docsift keyword [flags] <query>        BM25 keyword search over filename, content and tags
  docsift similar [flags] <id>           Documents similar to a stored document
  docsift duplicates [flags] <id>        Near duplicates of a stored document
  docsift summary [flags] <id>           Summarize a stored document (short, medium, long)
  docsift list [flags]                   List documents, optionally by tag
  docsift delete [flags] <id>            Delete a document and its index entries
  docsift reprocess [flags] <id>         Recompute summary, tags and vectors of a document
  docsift reindex [flags]                Rebuild the vector and keyword indexes from stored documents
  docsift status [flags]                 Show document, point and index counts
  docsift watch <list|add|remove> [path] Manage watched directories on a running server
  docsift version                        Show version
  docsift help                           Show this help

Common flags:
  -config string   config file path (default "` + defaultConfigPath + `")
  -output string   output format: text or json (default "text")

Environment:
  ` + config.EnvEmbeddingAPIKey + `, ` + config.EnvSummarizerAPIKey + `, ` + config.EnvQdrantAPIKey + `
  override the matching secrets in the config file; a .env file in the working
  directory is loaded first.`)
}
