package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/docsift/pkg/utils"
)

// HashingEmbedder maps text to a signed feature-hashed bag of lowercase words.
// It needs no model file and is deterministic. Texts sharing most of their words
// score close to 1.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder with the given dimension (default 384).
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the normalized hashed term-frequency vector of text.
// Text without words maps to a fixed unit vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	words := Words(text)
	if len(words) == 0 {
		vec[0] = 1
		return vec, nil
	}
	for _, w := range words {
		sum := featureHash(w)
		bucket := int(sum % uint64(e.dimensions))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}

// Words splits text into lowercase runs of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func featureHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// BERT special token ids and the vocabulary range hashed words are folded into.
const (
	tokenCLS   = 101
	tokenSEP   = 102
	vocabStart = 1000
	vocabSize  = 30522
)

// modelInput is one encoded sequence for a BERT-style ONNX model.
type modelInput struct {
	ids, mask, types []int64
}

// encodeForModel lays out [CLS] words... [SEP] padded to maxTokens, mapping each word
// to a vocabulary slot by feature hash. Words past maxTokens-2 are dropped.
func encodeForModel(text string, maxTokens int) modelInput {
	in := modelInput{
		ids:   make([]int64, maxTokens),
		mask:  make([]int64, maxTokens),
		types: make([]int64, maxTokens),
	}
	if maxTokens < 2 {
		return in
	}
	words := Words(text)
	if len(words) > maxTokens-2 {
		words = words[:maxTokens-2]
	}
	in.ids[0] = tokenCLS
	for i, w := range words {
		in.ids[i+1] = vocabStart + int64(featureHash(w)%(vocabSize-vocabStart))
	}
	in.ids[len(words)+1] = tokenSEP
	for i := 0; i < len(words)+2; i++ {
		in.mask[i] = 1
	}
	return in
}
