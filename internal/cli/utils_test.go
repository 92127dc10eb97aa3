package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docsift/internal/models"
)

func sampleDoc() *models.Document {
	return &models.Document{
		ID:         7,
		Filename:   "report.pdf",
		SourcePath: "/docs/report.pdf",
		Content:    "full content",
		Summary:    "Quarterly revenue grew.",
		Tags:       []string{"quarterly", "revenue"},
		CreatedAt:  time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	hits := []*models.SearchHit{{Document: sampleDoc(), Score: 0.91, Snippet: "revenue grew", ChunkIndex: 0}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, "revenue", hits, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded struct {
		Query   string              `json:"query"`
		Results []*models.SearchHit `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "revenue" || len(decoded.Results) != 1 || decoded.Results[0].Document.ID != 7 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	hits := []*models.SearchHit{{Document: sampleDoc(), Score: 0.5, Snippet: strings.Repeat("a", 300)}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, "q", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results", "[7] report.pdf", "Score: 0.5000", strings.Repeat("a", 200) + "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteWordMatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWordMatch(&buf, "revenue", nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No document contains") {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	if err := WriteWordMatch(&buf, "revenue", &models.WordMatch{Document: sampleDoc(), Count: 3}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "occurs 3 times in [7] report.pdf") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteDocuments_JSONOmitsContent(t *testing.T) {
	doc := sampleDoc()
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, []*models.Document{doc}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "full content") {
		t.Errorf("listing should not include content: %s", buf.String())
	}
	if doc.Content != "full content" {
		t.Error("WriteDocuments must not modify its input")
	}
}

func TestWriteStatus_Text(t *testing.T) {
	var buf bytes.Buffer
	status := &models.Status{Documents: 3, VectorPoints: 9, KeywordEntries: 3, IndexType: "memory", DiskUsageBytes: 2048}
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Documents:       3", "9 (memory)", "2.0 KiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("a b", 5); got != "a b" {
		t.Errorf("got %q", got)
	}
}

func TestProgress_nilIsSilent(t *testing.T) {
	var p *Progress
	p.Start(3)
	p.Advance(1)
	p.Finish()
}
