// Package extract turns document files into raw text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for file extensions the extractor cannot interpret.
var ErrUnsupportedType = errors.New("unsupported file type")

// SupportedExtensions lists every extension Extract accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".png", ".jpg", ".jpeg", ".txt", ".md", ".xlsx", ".odt", ".rtf"}

// Extractor extracts plain text from document files.
type Extractor struct {
	ocrCommand string
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOCRCommand sets the tesseract binary used for images.
func WithOCRCommand(cmd string) Option {
	return func(e *Extractor) { e.ocrCommand = cmd }
}

// WithLogger sets a logger for degraded extraction warnings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{ocrCommand: "tesseract", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether path has an extension Extract accepts.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content.
// Unknown extensions yield ErrUnsupportedType before the file is read.
// Images whose OCR engine is unavailable yield an empty string, not an error.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	switch ext {
	case ".png", ".jpg", ".jpeg":
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat file: %w", err)
		}
		return e.extractImage(ctx, path), nil
	case ".odt", ".rtf":
		return extractWithCat(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from in-memory content of formats that need no external tools.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}
