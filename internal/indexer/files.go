package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/docsift/internal/models"
	"go.uber.org/zap"
)

// ProgressReporter receives progress of long-running batch operations.
type ProgressReporter interface {
	Start(total int)
	Advance(n int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)   {}
func (nopProgress) Advance(int) {}
func (nopProgress) Finish()     {}

// DirectoryResult summarizes an IngestDirectory run.
type DirectoryResult struct {
	Ingested []int64
	// Unsupported counts files rejected by the extractor.
	Unsupported int
	Failed      map[string]error
}

// Allowed reports whether path has one of the configured extensions. An empty list allows all.
func (idx *Indexer) Allowed(path string) bool {
	if len(idx.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	return slices.ContainsFunc(idx.config.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// Ignored reports whether rel, a slash-separated path relative to an ingested root,
// matches one of the configured ignore patterns.
func (idx *Indexer) Ignored(rel string) bool {
	for _, pattern := range idx.config.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// CollectFiles walks root and returns the regular files that have an allowed extension
// and match no ignore pattern, in lexical order.
func (idx *Indexer) CollectFiles(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}
	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if idx.Ignored(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !idx.Allowed(path) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IngestDirectory ingests every file CollectFiles finds under dir. Unsupported files are
// counted and other failures recorded per path; neither stops the walk.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, progress ProgressReporter) (*DirectoryResult, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	files, err := idx.CollectFiles(dir)
	if err != nil {
		return nil, err
	}
	res := &DirectoryResult{Failed: make(map[string]error)}
	progress.Start(len(files))
	defer progress.Finish()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, err := idx.IngestFile(ctx, path)
		progress.Advance(1)
		switch {
		case errors.Is(err, models.ErrUnsupportedInput):
			res.Unsupported++
		case err != nil && r == nil:
			res.Failed[path] = err
		default:
			if err != nil {
				res.Failed[path] = err
			}
			res.Ingested = append(res.Ingested, r.ID)
		}
	}
	idx.logger.Info("directory ingested",
		zap.String("dir", dir),
		zap.Int("ingested", len(res.Ingested)),
		zap.Int("unsupported", res.Unsupported),
		zap.Int("failed", len(res.Failed)))
	return res, nil
}

// IngestFile ingests path under its base name and, on success, removes documents
// previously ingested from the same path. A file whose modification time and size
// match the latest document from that path is not ingested again.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	previous, err := idx.storage.FindBySourcePath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(absPath); statErr == nil && len(previous) > 0 {
		latest := previous[0]
		if latest.SameSource(info.ModTime().UnixNano(), info.Size()) {
			idx.logger.Debug("file unchanged, skipping", zap.String("path", absPath), zap.Int64("file_id", latest.ID))
			return &IngestResult{ID: latest.ID, Placeholder: latest.IsPlaceholder(), Unchanged: true}, nil
		}
	}
	res, err := idx.IngestWithResult(ctx, absPath, filepath.Base(absPath))
	if res == nil {
		return nil, err
	}
	for _, doc := range previous {
		if _, delErr := idx.DeleteDocument(ctx, doc.ID); delErr != nil && !errors.Is(delErr, models.ErrNotFound) {
			idx.logger.Warn("failed to remove previous version", zap.Int64("file_id", doc.ID), zap.Error(delErr))
		}
	}
	return res, err
}

// RemoveFile deletes every document ingested from path and returns how many were removed.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	docs, err := idx.storage.FindBySourcePath(ctx, absPath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		if _, err := idx.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, models.ErrIndexIncomplete) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
