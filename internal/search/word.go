package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/docsift/internal/models"
)

// WordPattern matches case-insensitive occurrences of word. Boundaries are checked
// separately by CountWord, since RE2 \b only knows ASCII word characters.
func WordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
}

// CountWord counts whole-word occurrences of re in text. A match counts when a word
// boundary sits at both of its ends, where letters, numbers and underscore in any
// script are word characters. A rejected candidate resumes one rune later so an
// overlapping occurrence is still found.
func CountWord(re *regexp.Regexp, text string) int {
	n := 0
	for pos := 0; pos < len(text); {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && atBoundary(text, start) && atBoundary(text, end) {
			n++
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + max(size, 1)
	}
	return n
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// atBoundary reports whether the word-ness of the runes on either side of i differs.
func atBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

// SearchByWord scans every document, most recent first, and returns the one with the
// most whole-word occurrences of word. Ties keep the earlier document. A word found
// nowhere yields nil without error.
func (e *Engine) SearchByWord(ctx context.Context, word string) (*models.WordMatch, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("%w: word is empty", models.ErrInvalidArgument)
	}
	re := WordPattern(word)
	var best *models.WordMatch
	err := e.storage.ScanDocuments(ctx, func(doc *models.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := CountWord(re, doc.Content)
		if n > 0 && (best == nil || n > best.Count) {
			best = &models.WordMatch{Document: doc, Count: n}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}
