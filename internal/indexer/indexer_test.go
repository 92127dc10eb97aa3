package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/hyperjump/docsift/internal/config"
	"github.com/hyperjump/docsift/internal/embedding"
	"github.com/hyperjump/docsift/internal/extract"
	"github.com/hyperjump/docsift/internal/keyword"
	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/internal/storage"
	"github.com/hyperjump/docsift/internal/summarize"
	"github.com/hyperjump/docsift/internal/vector"
)

type testEnv struct {
	idx      *Indexer
	store    storage.Storage
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
	dir      string
}

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		MaxChunkChars:    1000,
		DocEmbedMaxChars: 8000,
		EmbedWorkers:     4,
		Extensions:       []string{".txt", ".md"},
		Ignore:           []string{"**/node_modules/**", "**/.*"},
	}
}

func newTestEnv(t *testing.T, embedder embedding.Embedder, summarizer summarize.Summarizer, cfg config.IngestConfig) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex("")
	if err != nil {
		t.Fatal(err)
	}
	if err := vecIndex.EnsureCollection(context.Background(), embedder.Dimensions()); err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	if summarizer == nil {
		summarizer = summarize.NewFrequencySummarizer()
	}
	idx := NewIndexer(store, embedder, vecIndex, kwIndex, extract.NewExtractor(), summarize.NewController(summarizer), cfg, WithUpsertBatchSize(2))
	return &testEnv{idx: idx, store: store, vectors: vecIndex, keywords: kwIndex, dir: t.TempDir()}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func pointIDs(points []vector.Point) []uint64 {
	ids := make([]uint64, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	return ids
}

func mustPointID(t *testing.T, fileID int64, chunk int) uint64 {
	t.Helper()
	id, err := vector.PointID(fileID, chunk)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestIngest_textDocument(t *testing.T) {
	cfg := testIngestConfig()
	cfg.MaxChunkChars = 30
	env := newTestEnv(t, embedding.NewHashingEmbedder(64), nil, cfg)
	ctx := context.Background()

	path := env.write(t, "notes.txt", "Invoices are due monthly.\r\n\r\n\r\nPayments   arrive late.\n\nInvoices pile up.")
	res, err := env.idx.IngestWithResult(ctx, path, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Chunks != 3 || res.Points != 4 || len(res.Skipped) != 0 || res.Placeholder {
		t.Errorf("unexpected result: %+v", res)
	}

	doc, err := env.store.GetDocument(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Filename != "notes.txt" || doc.SourcePath != path {
		t.Errorf("filename=%q source=%q", doc.Filename, doc.SourcePath)
	}
	if doc.Content != "Invoices are due monthly.\n\nPayments arrive late.\n\nInvoices pile up." {
		t.Errorf("content not normalized: %q", doc.Content)
	}
	if doc.SummaryKind != models.SummaryAI || doc.Summary == "" {
		t.Errorf("summary kind=%q summary=%q", doc.SummaryKind, doc.Summary)
	}
	if len(doc.Tags) == 0 || doc.Tags[0] != "invoices" {
		t.Errorf("tags = %v", doc.Tags)
	}

	points := env.vectors.Points()
	want := []uint64{mustPointID(t, res.ID, -1), mustPointID(t, res.ID, 0), mustPointID(t, res.ID, 1), mustPointID(t, res.ID, 2)}
	if got := pointIDs(points); !reflect.DeepEqual(got, want) {
		t.Fatalf("point ids = %v, want %v", got, want)
	}
	if p := points[0].Payload; !p.IsDocLevel || p.Text != doc.Summary || p.Filename != "notes.txt" {
		t.Errorf("doc-level payload = %+v", p)
	}
	if p := points[2].Payload; p.IsDocLevel || p.ChunkIndex != 1 || p.Text != "Payments arrive late." {
		t.Errorf("chunk payload = %+v", p)
	}
	if n, _ := env.keywords.DocCount(); n != 1 {
		t.Errorf("keyword entries = %d, want 1", n)
	}
}

func TestIngest_placeholder(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()

	id, err := env.idx.Ingest(ctx, env.write(t, "blank.txt", " \n\t\n "), "scan.txt")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	doc, err := env.store.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "" || doc.Summary != models.PlaceholderSummary || !doc.IsPlaceholder() || doc.Filename != "scan.txt" {
		t.Errorf("unexpected placeholder document: %+v", doc)
	}
	points := env.vectors.Points()
	if len(points) != 1 || points[0].ID != mustPointID(t, id, -1) {
		t.Fatalf("points = %v", pointIDs(points))
	}
	emptyVec, _ := embedding.NewHashingEmbedder(16).Embed(ctx, EmptyDocumentText)
	if sim := vector.InnerProduct(points[0].Vector, emptyVec); sim < 0.9999 {
		t.Error("placeholder point should embed the empty-document text")
	}
}

func TestIngest_unsupportedHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()

	_, err := env.idx.Ingest(ctx, env.write(t, "archive.zip", "PK"), "")
	if !errors.Is(err, models.ErrUnsupportedInput) {
		t.Fatalf("err = %v, want ErrUnsupportedInput", err)
	}
	if n, _ := env.store.CountDocuments(ctx); n != 0 {
		t.Errorf("documents = %d, want 0", n)
	}
	if n, _ := env.vectors.Count(ctx); n != 0 {
		t.Errorf("points = %d, want 0", n)
	}
}

func TestIngest_skipsFailedChunks(t *testing.T) {
	cfg := testIngestConfig()
	cfg.MaxChunkChars = 20
	cfg.DocEmbedMaxChars = 10
	env := newTestEnv(t, embedding.NewMockEmbedder(8).FailOn("POISON"), nil, cfg)
	ctx := context.Background()

	path := env.write(t, "mixed.txt", "first paragraph here\n\nPOISON paragraph\n\nthird paragraph here")
	res, err := env.idx.IngestWithResult(ctx, path, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Chunks != 3 || res.Points != 3 {
		t.Errorf("chunks=%d points=%d, want 3 and 3", res.Chunks, res.Points)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 1 || !errors.Is(res.Skipped[0].Reason, embedding.ErrMockFailure) {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	want := []uint64{mustPointID(t, res.ID, -1), mustPointID(t, res.ID, 0), mustPointID(t, res.ID, 2)}
	if got := pointIDs(env.vectors.Points()); !reflect.DeepEqual(got, want) {
		t.Errorf("point ids = %v, want %v", got, want)
	}
}

func TestIngest_summarizerFailureFallsBack(t *testing.T) {
	failing := summarize.Func(func(ctx context.Context, text string, n int) (string, error) {
		return "", errors.New("model offline")
	})
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), failing, testIngestConfig())
	ctx := context.Background()

	id, err := env.idx.Ingest(ctx, env.write(t, "a.txt", "Short body text."), "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	doc, _ := env.store.GetDocument(ctx, id)
	if doc.SummaryKind != models.SummaryFallback || doc.Summary != "Short body text." {
		t.Errorf("kind=%q summary=%q", doc.SummaryKind, doc.Summary)
	}
}

type failingUpsertIndex struct {
	*vector.MemoryIndex
}

func (f failingUpsertIndex) Upsert(context.Context, []vector.Point) error {
	return errors.New("vector service unavailable")
}

func TestIngest_indexFailureKeepsRecord(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	env.idx.vectorIndex = failingUpsertIndex{env.vectors}
	ctx := context.Background()

	res, err := env.idx.IngestWithResult(ctx, env.write(t, "a.txt", "Some text."), "")
	if !errors.Is(err, models.ErrIndexIncomplete) {
		t.Fatalf("err = %v, want ErrIndexIncomplete", err)
	}
	if res == nil || res.ID == 0 {
		t.Fatal("result should carry the stored id")
	}
	if _, err := env.store.GetDocument(ctx, res.ID); err != nil {
		t.Errorf("record should remain: %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()

	keep, err := env.idx.Ingest(ctx, env.write(t, "keep.txt", "Keep this one."), "")
	if err != nil {
		t.Fatal(err)
	}
	drop, err := env.idx.Ingest(ctx, env.write(t, "drop.txt", "Drop this one."), "")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := env.idx.DeleteDocument(ctx, drop)
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if doc.Filename != "drop.txt" {
		t.Errorf("deleted filename = %q", doc.Filename)
	}
	if _, err := env.store.GetDocument(ctx, drop); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetDocument after delete: %v", err)
	}
	for _, p := range env.vectors.Points() {
		if p.Payload.FileID == drop {
			t.Errorf("point %d of deleted document remains", p.ID)
		}
	}
	if n, _ := env.vectors.Count(ctx); n != 2 {
		t.Errorf("points = %d, want 2 for the kept document", n)
	}
	if n, _ := env.keywords.DocCount(); n != 1 {
		t.Errorf("keyword entries = %d, want 1", n)
	}
	if _, err := env.idx.DeleteDocument(ctx, drop); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, err := env.store.GetDocument(ctx, keep); err != nil {
		t.Errorf("kept document: %v", err)
	}
}

func TestReprocess(t *testing.T) {
	healthy := false
	s := summarize.Func(func(ctx context.Context, text string, n int) (string, error) {
		if !healthy {
			return "", errors.New("warming up")
		}
		return "Fresh contract summary.", nil
	})
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), s, testIngestConfig())
	ctx := context.Background()

	id, err := env.idx.Ingest(ctx, env.write(t, "c.txt", "Contract terms.\n\nPayment schedule."), "")
	if err != nil {
		t.Fatal(err)
	}
	before := env.vectors.Points()

	healthy = true
	doc, err := env.idx.Reprocess(ctx, id)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if doc.SummaryKind != models.SummaryAI || doc.Summary != "Fresh contract summary." {
		t.Errorf("kind=%q summary=%q", doc.SummaryKind, doc.Summary)
	}
	stored, _ := env.store.GetDocument(ctx, id)
	if stored.Summary != doc.Summary || !reflect.DeepEqual(stored.Tags, []string{"contract", "fresh", "summary"}) {
		t.Errorf("stored summary=%q tags=%v", stored.Summary, stored.Tags)
	}
	after := env.vectors.Points()
	if !reflect.DeepEqual(pointIDs(before), pointIDs(after)) {
		t.Errorf("point ids changed: %v -> %v", pointIDs(before), pointIDs(after))
	}
	if after[0].Payload.Text != "Fresh contract summary." {
		t.Errorf("doc-level text = %q", after[0].Payload.Text)
	}

	if _, err := env.idx.Reprocess(ctx, id+100); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Reprocess unknown id: %v", err)
	}
}

type countingProgress struct {
	total, advanced int
	finished        bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Advance(n int)   { p.advanced += n }
func (p *countingProgress) Finish()         { p.finished = true }

func TestReindexAll_repairsAndIsIdempotent(t *testing.T) {
	cfg := testIngestConfig()
	cfg.MaxChunkChars = 25
	env := newTestEnv(t, embedding.NewHashingEmbedder(32), nil, cfg)
	ctx := context.Background()

	a, err := env.idx.Ingest(ctx, env.write(t, "a.txt", "Alpha paragraph one.\n\nAlpha paragraph two.\n\nAlpha paragraph three."), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.idx.Ingest(ctx, env.write(t, "b.txt", ""), ""); err != nil {
		t.Fatal(err)
	}
	original := env.vectors.Points()

	// Drift: lose one document's points and the keyword index.
	if err := env.vectors.DeleteByFileID(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := env.keywords.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	progress := &countingProgress{}
	n, err := NewReindexer(env.idx, WithProgress(progress)).ReindexAll(ctx)
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 2 {
		t.Errorf("reindexed %d documents, want 2", n)
	}
	if progress.total != 2 || progress.advanced != 2 || !progress.finished {
		t.Errorf("progress = %+v", progress)
	}
	first := env.vectors.Points()
	if !reflect.DeepEqual(first, original) {
		t.Errorf("reindex did not restore the ingested points")
	}
	if c, _ := env.keywords.DocCount(); c != 2 {
		t.Errorf("keyword entries = %d, want 2", c)
	}

	if _, err := NewReindexer(env.idx).ReindexAll(ctx); err != nil {
		t.Fatalf("second ReindexAll: %v", err)
	}
	if second := env.vectors.Points(); !reflect.DeepEqual(first, second) {
		t.Error("second reindex changed the points")
	}
}

func TestReindexAll_adoptsEmbedderDimension(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(8), nil, testIngestConfig())
	ctx := context.Background()
	if _, err := env.idx.Ingest(ctx, env.write(t, "a.txt", "Dimension change."), ""); err != nil {
		t.Fatal(err)
	}

	env.idx.embedder = embedding.NewHashingEmbedder(24)
	if _, err := NewReindexer(env.idx).ReindexAll(ctx); err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	for _, p := range env.vectors.Points() {
		if len(p.Vector) != 24 {
			t.Fatalf("point %d has dimension %d, want 24", p.ID, len(p.Vector))
		}
	}
}

func TestIngestDirectory(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()
	env.write(t, "a.txt", "Alpha.")
	env.write(t, "sub/b.md", "Bravo.")
	env.write(t, "c.zip", "PK")
	env.write(t, ".hidden.txt", "Hidden.")
	env.write(t, "node_modules/pkg/readme.md", "Vendored.")

	files, err := env.idx.CollectFiles(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	rel := make([]string, len(files))
	for i, f := range files {
		rel[i], _ = filepath.Rel(env.dir, f)
	}
	sort.Strings(rel)
	if want := []string{"a.txt", filepath.Join("sub", "b.md")}; !reflect.DeepEqual(rel, want) {
		t.Fatalf("collected %v, want %v", rel, want)
	}

	progress := &countingProgress{}
	res, err := env.idx.IngestDirectory(ctx, env.dir, progress)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if len(res.Ingested) != 2 || res.Unsupported != 0 || len(res.Failed) != 0 {
		t.Errorf("result = %+v", res)
	}
	if progress.total != 2 || progress.advanced != 2 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestIngestDirectory_countsUnsupported(t *testing.T) {
	cfg := testIngestConfig()
	cfg.Extensions = nil
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, cfg)
	env.write(t, "a.txt", "Alpha.")
	env.write(t, "c.zip", "PK")

	res, err := env.idx.IngestDirectory(context.Background(), env.dir, nil)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if len(res.Ingested) != 1 || res.Unsupported != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestIngestFile_replacesPreviousVersion(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()
	path := env.write(t, "doc.txt", "First version.")

	first, err := env.idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	env.write(t, "doc.txt", "Second version.")
	second, err := env.idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("re-ingestion should create a new record")
	}
	docs, err := env.store.FindBySourcePath(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != second.ID || docs[0].Content != "Second version." {
		t.Errorf("documents for path = %+v", docs)
	}
	for _, p := range env.vectors.Points() {
		if p.Payload.FileID == first.ID {
			t.Error("points of the previous version remain")
		}
	}

	removed, err := env.idx.RemoveFile(ctx, path)
	if err != nil || removed != 1 {
		t.Errorf("RemoveFile = %d, %v", removed, err)
	}
	if n, _ := env.store.CountDocuments(ctx); n != 0 {
		t.Errorf("documents = %d after RemoveFile", n)
	}
}

func TestIngestFile_skipsUnchangedFile(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	ctx := context.Background()
	path := env.write(t, "stable.txt", "Nothing about this file changes.")

	first, err := env.idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Unchanged {
		t.Fatal("first ingest reported unchanged")
	}
	pointsBefore := len(env.vectors.Points())

	again, err := env.idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || !again.Unchanged {
		t.Errorf("second ingest = %+v, want unchanged document %d", again, first.ID)
	}
	if n, _ := env.store.CountDocuments(ctx); n != 1 {
		t.Errorf("documents = %d, want 1", n)
	}
	if got := len(env.vectors.Points()); got != pointsBefore {
		t.Errorf("points = %d, want %d", got, pointsBefore)
	}

	// Same size, new modification time.
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	touched, err := env.idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if touched.Unchanged || touched.ID == first.ID {
		t.Errorf("touched file result = %+v, want a new document", touched)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := env.store.FindBySourcePath(ctx, path)
	if len(docs) != 1 || docs[0].ID != touched.ID || docs[0].SourceMtime != info.ModTime().UnixNano() {
		t.Errorf("documents for path = %+v", docs)
	}
}

func TestBuildPoints_requiresID(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	if _, err := env.idx.BuildPoints(context.Background(), &models.Document{Content: "x"}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestAllowedAndIgnored(t *testing.T) {
	env := newTestEnv(t, embedding.NewHashingEmbedder(16), nil, testIngestConfig())
	tests := []struct {
		path    string
		allowed bool
	}{
		{"a.txt", true},
		{"A.MD", true},
		{"b.pdf", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := env.idx.Allowed(tt.path); got != tt.allowed {
			t.Errorf("Allowed(%q) = %v", tt.path, got)
		}
	}
	for _, rel := range []string{".git", "docs/.env", "node_modules/x/y.md"} {
		if !env.idx.Ignored(rel) {
			t.Errorf("Ignored(%q) = false", rel)
		}
	}
	if env.idx.Ignored("docs/readme.md") {
		t.Error("docs/readme.md should not be ignored")
	}
}
