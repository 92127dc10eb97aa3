// Package summarize produces document summaries and controls their length.
package summarize

import (
	"context"
	"fmt"

	"github.com/hyperjump/docsift/internal/config"
)

// Summarizer condenses text into roughly the given number of sentences.
// Implementations may fail or return an empty string; callers fall back.
type Summarizer interface {
	Summarize(ctx context.Context, text string, sentences int) (string, error)
}

// Func adapts an ordinary function to the Summarizer interface.
type Func func(ctx context.Context, text string, sentences int) (string, error)

// Summarize calls f.
func (f Func) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	return f(ctx, text, sentences)
}

// New creates the summarizer selected by cfg.Provider.
func New(cfg config.SummarizerConfig) (Summarizer, error) {
	switch cfg.Provider {
	case "frequency", "":
		return NewFrequencySummarizer(), nil
	case "llm":
		return NewLLMSummarizer(LLMOptions{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			Timeout:        cfg.Timeout,
			MaxInputTokens: cfg.MaxInputTokens,
		})
	default:
		return nil, fmt.Errorf("unknown summarizer provider: %s (supported: frequency, llm)", cfg.Provider)
	}
}
