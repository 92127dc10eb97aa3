package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docsift/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	doc := &models.Document{
		ID:       7,
		Filename: "Monthly Report 17 - May 2023.docx",
		Content:  "This report mentions Omnisyan and other findings. The Bayes app is also referenced.",
	}
	if err := idx.Index(ctx, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	for _, q := range []string{"Omnisyan", "bayes"} {
		results, err := idx.Search(ctx, q, 10, nil)
		if err != nil {
			t.Fatalf("Search %q: %v", q, err)
		}
		if len(results) == 0 {
			t.Fatalf("expected a keyword result for %q", q)
		}
		if results[0].ID != doc.ID {
			t.Errorf("first result ID = %d, want %d", results[0].ID, doc.ID)
		}
	}
}

func TestBleveIndex_SearchFindsFilenameAndTags(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	doc := &models.Document{ID: 1, Filename: "quarterly-budget.pdf", Content: "Some body text.", Tags: []string{"finance", "planning"}}
	if err := idx.Index(ctx, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	for _, q := range []string{"budget", "finance"} {
		results, err := idx.Search(ctx, q, 10, nil)
		if err != nil {
			t.Fatalf("Search %q: %v", q, err)
		}
		if len(results) != 1 || results[0].ID != 1 {
			t.Errorf("Search %q = %v, want document 1", q, results)
		}
	}
}

func TestBleveIndex_FilenameBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	inContent := &models.Document{ID: 1, Filename: "notes.txt", Content: "the invoice arrived late"}
	inName := &models.Document{ID: 2, Filename: "invoice.txt", Content: "the payment arrived late"}
	for _, d := range []*models.Document{inContent, inName} {
		if err := idx.Index(ctx, d); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	results, err := idx.Search(ctx, "invoice", 10, &SearchOptions{FilenameBoost: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != 2 {
		t.Errorf("boosted filename match should rank first, got %d", results[0].ID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, &models.Document{ID: 3, Filename: "a.txt", Content: "kubernetes deployment"}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	exact, err := idx.Search(ctx, "kubernetse", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(exact) != 0 {
		t.Errorf("exact search for a typo should miss, got %v", exact)
	}
	fuzzy, err := idx.Search(ctx, "kubernetse", 10, &SearchOptions{Fuzziness: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(fuzzy) != 1 || fuzzy[0].ID != 3 {
		t.Errorf("fuzzy search = %v, want document 3", fuzzy)
	}
}

func TestBleveIndex_ReopenKeepsEntries(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx1, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx1.Index(ctx, &models.Document{ID: 1, Content: "uniqueword"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex (reopen): %v", err)
	}
	defer func() { _ = idx2.Close() }()
	results, err := idx2.Search(ctx, "uniqueword", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen, want 1", len(results))
	}
}

func TestBleveIndex_DeleteAndReset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		if err := idx.Index(ctx, &models.Document{ID: i, Content: "shared term"}); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	if err := idx.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := idx.Delete(ctx, 99); err != nil {
		t.Errorf("Delete missing id: %v", err)
	}
	if n, _ := idx.DocCount(); n != 2 {
		t.Errorf("DocCount after delete = %d, want 2", n)
	}

	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("DocCount after reset = %d, want 0", n)
	}
	if err := idx.Index(ctx, &models.Document{ID: 4, Content: "after reset"}); err != nil {
		t.Fatalf("Index after reset: %v", err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
}

func TestBleveIndex_inMemory(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()
	if err := idx.Index(ctx, &models.Document{ID: 1, Content: "volatile"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	results, err := idx.Search(ctx, "volatile", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after reset", len(results))
	}
	if results, _ := idx.Search(ctx, "  ", 5, nil); results != nil {
		t.Error("blank query should return nil")
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "sub", "bleve")
	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.Close()
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}
}
