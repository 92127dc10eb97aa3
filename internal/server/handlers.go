package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/docsift/internal/config"
	"github.com/hyperjump/docsift/internal/extract"
	"github.com/hyperjump/docsift/internal/indexer"
	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/summarize"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	topK, ok := s.intParam(w, r, "top_k")
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("top_k", topK))
	hits, err := s.engine.Search(r.Context(), query, topK)
	if err != nil {
		s.respondErr(w, "search failed", err)
		return
	}
	for _, h := range hits {
		h.Document = docWithoutContent(h.Document)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (s *Server) handleSearchWord(w http.ResponseWriter, r *http.Request) {
	word := r.URL.Query().Get("word")
	match, err := s.engine.SearchByWord(r.Context(), word)
	if err != nil {
		s.respondErr(w, "word search failed", err)
		return
	}
	if match == nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("no document contains %q", word))
		return
	}
	s.respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleSearchKeyword(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, ok := s.intParam(w, r, "limit")
	if !ok {
		return
	}
	hits, err := s.engine.SearchKeyword(r.Context(), query, limit)
	if err != nil {
		s.respondErr(w, "keyword search failed", err)
		return
	}
	for _, h := range hits {
		h.Document = docWithoutContent(h.Document)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	offset, ok := s.intParam(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := s.intParam(w, r, "limit")
	if !ok {
		return
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, "list documents failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"files": withoutContent(docs)})
}

func (s *Server) handleListByTag(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	docs, err := s.engine.ListByTag(r.Context(), tag)
	if err != nil {
		s.respondErr(w, "list by tag failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"tag": tag, "files": withoutContent(docs)})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondErr(w, "get document failed", err)
		return
	}
	doc.Content = ""
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondErr(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": doc.ID, "filename": doc.Filename, "content": doc.Content})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	mode, err := summarize.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.summaries.SummarizeDocument(r.Context(), s.storage, id, mode)
	if err != nil {
		s.respondErr(w, "summarize failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "mode": mode, "summary": summary})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	topK, ok := s.intParam(w, r, "top_k")
	if !ok {
		return
	}
	similar, err := s.engine.FindSimilar(r.Context(), id, topK)
	if err != nil {
		s.respondErr(w, "find similar failed", err)
		return
	}
	for _, d := range similar {
		d.Document = docWithoutContent(d.Document)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "similar": similar})
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	threshold := s.engine.DefaultDuplicateThreshold()
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		if t != 0 {
			threshold = t
		}
	}
	dups, err := s.engine.FindDuplicates(r.Context(), id, threshold)
	if err != nil {
		s.respondErr(w, "find duplicates failed", err)
		return
	}
	for _, d := range dups {
		d.Document = docWithoutContent(d.Document)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "threshold": threshold, "duplicates": dups})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	doc, err := s.indexer.Reprocess(r.Context(), id)
	if err != nil && !errors.Is(err, models.ErrIndexIncomplete) {
		s.respondErr(w, "reprocess failed", err)
		return
	}
	resp := map[string]any{"id": id, "summary": doc.Summary, "summary_kind": doc.SummaryKind, "tags": doc.Tags}
	if err != nil {
		resp["warning"] = err.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	s.logger.Debug("delete document request", zap.Int64("file_id", id))
	doc, err := s.indexer.DeleteDocument(r.Context(), id)
	if err != nil && !errors.Is(err, models.ErrIndexIncomplete) {
		s.respondErr(w, "deletion failed", err)
		return
	}
	resp := map[string]any{"id": id, "filename": doc.Filename, "status": "deleted"}
	if err != nil {
		resp["warning"] = err.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadMB << 20
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !extract.Supported(filename) {
		s.respondErr(w, "upload rejected", fmt.Errorf("%w: %s", models.ErrUnsupportedInput, filename))
		return
	}
	if err := os.MkdirAll(s.config.Storage.UploadDir, 0755); err != nil {
		s.respondErr(w, "upload failed", err)
		return
	}
	dest := filepath.Join(s.config.Storage.UploadDir, uuid.New().String()+"_"+filename)
	if err := saveFile(dest, file); err != nil {
		s.respondErr(w, "upload failed", err)
		return
	}

	res, err := s.indexer.IngestWithResult(r.Context(), dest, filename)
	if res == nil {
		_ = os.Remove(dest)
		s.respondErr(w, "ingestion failed", err)
		return
	}
	resp := map[string]any{
		"id":          res.ID,
		"filename":    filename,
		"chunks":      res.Chunks,
		"skipped":     len(res.Skipped),
		"placeholder": res.Placeholder,
	}
	if err != nil {
		resp["warning"] = err.Error()
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func saveFile(dest string, src io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := indexer.NewReindexer(s.indexer).ReindexAll(r.Context())
	if err != nil {
		s.respondErr(w, "reindex failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "reindexed", "documents": n})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.respondErr(w, "status failed", err)
		return
	}
	resp := map[string]any{
		"status": status,
		"config": map[string]any{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"summarizer_provider":  s.config.Summarizer.Provider,
			"max_chunk_chars":      s.config.Ingest.MaxChunkChars,
			"database_path":        s.config.Storage.DatabasePath,
		},
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.respondErr(w, "watch add directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.respondErr(w, "watch remove directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func withoutContent(docs []*models.Document) []*models.Document {
	out := make([]*models.Document, len(docs))
	for i, d := range docs {
		out[i] = docWithoutContent(d)
	}
	return out
}

// docWithoutContent returns a copy of d with its content cleared. Hits carry a
// snippet; full text is served by the content endpoint.
func docWithoutContent(d *models.Document) *models.Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Content = ""
	return &c
}

func (s *Server) fileID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid file id")
		return 0, false
	}
	return id, true
}

// intParam reads an optional non-negative integer query parameter; absent means 0.
func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnsupportedInput):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, summarize.ErrInvalidMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
