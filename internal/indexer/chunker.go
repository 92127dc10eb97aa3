package indexer

import (
	"strings"
	"unicode/utf8"
)

// ParagraphSeparator delimits paragraphs in normalized content and joins them inside a chunk.
const ParagraphSeparator = "\n\n"

// DefaultMaxChunkChars is the chunk size bound used when none is configured.
const DefaultMaxChunkChars = 1000

// Chunker splits normalized text into paragraph-aligned chunks of bounded size.
type Chunker struct {
	maxChars int
}

// NewChunker creates a chunker that emits a chunk before it would exceed maxChars characters.
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars returns the configured bound.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Split accumulates paragraphs into chunks. A chunk is emitted when appending the next
// paragraph would exceed the bound; a single oversized paragraph becomes its own chunk.
// Joining the result with ParagraphSeparator reproduces text exactly.
// Empty text yields no chunks; any other text yields at least one.
func (c *Chunker) Split(text string) []string {
	return split(text, c.maxChars)
}

// SplitBounded is Split with a ceiling on the number of chunks. When the ceiling would be
// exceeded the text is re-chunked with a doubled size bound until it fits.
func (c *Chunker) SplitBounded(text string, maxChunks int) []string {
	limit := c.maxChars
	chunks := split(text, limit)
	for maxChunks > 0 && len(chunks) > maxChunks {
		limit *= 2
		chunks = split(text, limit)
	}
	return chunks
}

func split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	sepLen := utf8.RuneCountInString(ParagraphSeparator)

	var chunks []string
	var cur strings.Builder
	curLen := 0
	started := false
	for _, para := range strings.Split(text, ParagraphSeparator) {
		paraLen := utf8.RuneCountInString(para)
		if !started {
			cur.WriteString(para)
			curLen = paraLen
			started = true
			continue
		}
		if curLen > 0 && paraLen > 0 && curLen+sepLen+paraLen > maxChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
			cur.WriteString(para)
			curLen = paraLen
			continue
		}
		cur.WriteString(ParagraphSeparator)
		cur.WriteString(para)
		curLen += sepLen + paraLen
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
