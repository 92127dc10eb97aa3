// Package tagger derives keyword tags from document text.
package tagger

import (
	"regexp"
	"sort"
	"strings"
)

// MaxTags is the number of tags Extract returns at most.
const MaxTags = 8

var wordPattern = regexp.MustCompile(`[a-z]{4,}`)

var stopwords = map[string]struct{}{
	"about": {}, "also": {}, "because": {}, "been": {}, "cannot": {}, "cant": {},
	"could": {}, "doesnt": {}, "dont": {}, "from": {}, "have": {}, "into": {},
	"isnt": {}, "just": {}, "like": {}, "more": {}, "most": {}, "only": {},
	"over": {}, "shall": {}, "should": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "their": {}, "them": {}, "then": {}, "there": {}, "they": {},
	"this": {}, "very": {}, "wasnt": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {},
}

// Extract returns up to MaxTags of the most frequent words in text.
// Words are ASCII letter runs of four or more, lower-cased, with stop words removed.
// Ties on frequency are ordered alphabetically. Empty input yields nil.
func Extract(text string) []string {
	return ExtractN(text, MaxTags)
}

// ExtractN is Extract with a caller-chosen limit.
func ExtractN(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	freq := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		freq[w]++
	}
	if len(freq) == 0 {
		return nil
	}
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}
