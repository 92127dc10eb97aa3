// Package cli formats command output for the docsift CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or the empty string.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes semantic search hits.
func WriteSearchResults(w io.Writer, query string, hits []*models.SearchHit, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]any{"query": query, "results": hits})
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. [%d] %s | Score: %.4f\n", i+1, h.Document.ID, h.Document.Filename, h.Score)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Snippet, 200))
	}
	return nil
}

// WriteWordMatch writes the result of a word search. A nil match reports that no document matched.
func WriteWordMatch(w io.Writer, word string, match *models.WordMatch, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]any{"word": word, "match": match})
	}
	if match == nil {
		fmt.Fprintf(w, "No document contains %q\n", word)
		return nil
	}
	fmt.Fprintf(w, "%q occurs %d times in [%d] %s\n", word, match.Count, match.Document.ID, match.Document.Filename)
	if match.Document.SourcePath != "" {
		fmt.Fprintf(w, "Path: %s\n", match.Document.SourcePath)
	}
	return nil
}

// WriteSimilar writes similar or duplicate documents.
func WriteSimilar(w io.Writer, id int64, docs []*models.SimilarDocument, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]any{"id": id, "similar": docs})
	}
	if len(docs) == 0 {
		fmt.Fprintf(w, "No similar documents for %d\n", id)
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "[%d] %s | Score: %.4f\n", d.Document.ID, d.Document.Filename, d.Score)
	}
	return nil
}

// WriteKeywordResults writes BM25 keyword hits.
func WriteKeywordResults(w io.Writer, query string, hits []*models.KeywordHit, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]any{"query": query, "results": hits})
	}
	fmt.Fprintf(w, "\nFound %d keyword results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "%d. [%d] %s | Score: %.4f\n", i+1, h.Document.ID, h.Document.Filename, h.Score)
	}
	return nil
}

// WriteDocuments writes a document listing without content.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		out := make([]models.Document, len(docs))
		for i, d := range docs {
			out[i] = *d
			out[i].Content = ""
		}
		return WriteJSON(w, map[string]any{"files": out})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Filename, d.CreatedAt.Format("2006-01-02 15:04"))
		if len(d.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(d.Tags, ", "))
		}
		fmt.Fprintf(w, "    %s\n", TruncateWords(d.Summary, 30))
	}
	return nil
}

// WriteStatus writes store and index sizes.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, status)
	}
	fmt.Fprintf(w, "Documents:       %d\n", status.Documents)
	fmt.Fprintf(w, "Vector points:   %d (%s)\n", status.VectorPoints, status.IndexType)
	fmt.Fprintf(w, "Keyword entries: %d\n", status.KeywordEntries)
	fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(status.DiskUsageBytes))
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
