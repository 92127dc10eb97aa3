package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/docsift/internal/models"
	"github.com/hyperjump/docsift/pkg/utils"
	"go.uber.org/zap"
)

// Mode selects the length of an on-demand summary.
type Mode string

const (
	ModeShort  Mode = "short"
	ModeMedium Mode = "medium"
	ModeLong   Mode = "long"
)

// ErrInvalidMode is returned by ParseMode for unknown modes.
var ErrInvalidMode = errors.New("invalid summary mode")

// ParseMode parses a mode name. The empty string selects ModeMedium.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeShort:
		return ModeShort, nil
	case ModeMedium, "":
		return ModeMedium, nil
	case ModeLong:
		return ModeLong, nil
	}
	return "", fmt.Errorf("%w: %q (supported: short, medium, long)", ErrInvalidMode, s)
}

// Sentences returns the target sentence count of the mode.
func (m Mode) Sentences() int {
	switch m {
	case ModeShort:
		return 1
	case ModeLong:
		return 4
	default:
		return 2
	}
}

// InputCeiling returns the maximum number of characters sent to the summarizer.
func (m Mode) InputCeiling() int {
	switch m {
	case ModeShort:
		return 600
	case ModeLong:
		return 1800
	default:
		return 1200
	}
}

// ingestSentences is the sentence target of the summary stored at ingestion.
const ingestSentences = 3

// DocumentGetter loads a document by id.
type DocumentGetter interface {
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
}

// Controller invokes a Summarizer with bounded input and a per-call timeout and
// guarantees a usable summary even when the summarizer fails.
type Controller struct {
	summarizer     Summarizer
	timeout        time.Duration
	ingestMaxChars int
	logger         *zap.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTimeout bounds every summarizer call. Zero disables the bound.
func WithTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeout = d }
}

// WithIngestMaxChars bounds the content prefix summarized at ingestion.
func WithIngestMaxChars(n int) ControllerOption {
	return func(c *Controller) { c.ingestMaxChars = n }
}

// WithLogger sets a logger for summarizer failures.
func WithLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController wraps s.
func NewController(s Summarizer, opts ...ControllerOption) *Controller {
	c := &Controller{
		summarizer:     s,
		timeout:        30 * time.Second,
		ingestMaxChars: 4000,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize returns a summary of content with at most mode.Sentences() sentences.
// Summarizer failures, timeouts and empty output yield Fallback(content).
func (c *Controller) Summarize(ctx context.Context, content string, mode Mode) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	summary, err := c.call(ctx, utils.Prefix(content, mode.InputCeiling()), mode.Sentences())
	if err != nil {
		c.logger.Warn("summarizer failed, using fallback", zap.String("mode", string(mode)), zap.Error(err))
		return Fallback(content)
	}
	if summary == "" {
		return Fallback(content)
	}
	return TrimSentences(summary, mode.Sentences())
}

// IngestSummary summarizes a bounded prefix of content for storage and reports
// whether the result came from the summarizer or the fallback.
func (c *Controller) IngestSummary(ctx context.Context, content string) (string, models.SummaryKind) {
	summary, err := c.call(ctx, utils.Prefix(content, c.ingestMaxChars), ingestSentences)
	if err != nil {
		c.logger.Warn("summarizer failed during ingestion, using fallback", zap.Error(err))
		return Fallback(content), models.SummaryFallback
	}
	if summary == "" {
		return Fallback(content), models.SummaryFallback
	}
	return summary, models.SummaryAI
}

// SummarizeDocument summarizes a stored document. Placeholder documents return
// their stored summary. Unknown ids yield models.ErrNotFound.
func (c *Controller) SummarizeDocument(ctx context.Context, store DocumentGetter, id int64, mode Mode) (string, error) {
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.IsPlaceholder() || strings.TrimSpace(doc.Content) == "" {
		return doc.Summary, nil
	}
	return c.Summarize(ctx, doc.Content, mode), nil
}

func (c *Controller) call(ctx context.Context, text string, sentences int) (string, error) {
	if c.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	summary, err := c.summarizer.Summarize(ctx, text, sentences)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return DedupeSentences(strings.TrimSpace(summary)), nil
}
