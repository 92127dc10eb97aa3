package summarize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hyperjump/docsift/pkg/utils"
)

// FallbackChars is the length of the content prefix used when no summary is available.
const FallbackChars = 400

// DuplicateOverlap is the share of the shorter sentence's words that marks two sentences as near duplicates.
const DuplicateOverlap = 0.8

var sentenceWord = regexp.MustCompile(`\w+`)

// Fallback returns the first FallbackChars runes of content, with "..." appended when truncated.
func Fallback(content string) string {
	return utils.Truncate(strings.TrimSpace(content), FallbackChars)
}

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace.
// Text after the last terminator is kept as a final sentence.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// TrimSentences keeps the first n sentences of text.
func TrimSentences(text string, n int) string {
	if n <= 0 {
		n = 1
	}
	parts := SplitSentences(text)
	if len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, " ")
}

// DedupeSentences drops sentences that repeat an earlier one, keeping order.
func DedupeSentences(text string) string {
	var kept []string
	var keptWords []map[string]struct{}
	for _, s := range SplitSentences(text) {
		words := wordSet(s)
		dup := false
		for _, prev := range keptWords {
			if nearDuplicate(words, prev) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
			keptWords = append(keptWords, words)
		}
	}
	return strings.Join(kept, " ")
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range sentenceWord.FindAllString(strings.ToLower(s), -1) {
		set[w] = struct{}{}
	}
	return set
}

func nearDuplicate(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared)/float64(min(len(a), len(b))) >= DuplicateOverlap
}
