package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Progress renders batch progress as a terminal progress bar.
type Progress struct {
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// NewProgress returns a progress bar writing to stderr, or nil when stderr is not a
// terminal. A nil *Progress is a valid, silent reporter.
func NewProgress(description string) *Progress {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return &Progress{out: os.Stderr, description: description}
}

// Start creates the bar for total steps.
func (p *Progress) Start(total int) {
	if p == nil {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

// Advance moves the bar by n steps.
func (p *Progress) Advance(n int) {
	if p != nil && p.bar != nil {
		_ = p.bar.Add(n)
	}
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if p != nil && p.bar != nil {
		_ = p.bar.Finish()
	}
}
