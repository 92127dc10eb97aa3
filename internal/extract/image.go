package extract

import (
	"bytes"
	"context"
	"os/exec"

	"go.uber.org/zap"
)

// extractImage runs tesseract on the image and returns its stdout. A missing binary or a
// failed run degrades to an empty string so the document is stored as a placeholder.
func (e *Extractor) extractImage(ctx context.Context, path string) string {
	bin, err := exec.LookPath(e.ocrCommand)
	if err != nil {
		e.logger.Warn("ocr engine not available", zap.String("command", e.ocrCommand), zap.String("path", path))
		return ""
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		e.logger.Warn("ocr failed", zap.String("path", path), zap.Error(err), zap.String("stderr", stderr.String()))
		return ""
	}
	return stdout.String()
}
