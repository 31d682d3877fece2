package main

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// isInteractive reports whether stderr is a terminal.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// progress reports lifted functions. It is a no-op when bar is nil.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, enabled bool, total int) *progress {
	if !enabled || total < 2 {
		return &progress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription("lifting"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &progress{bar: bar}
}

// Increment is safe for concurrent use; progressbar locks internally.
func (p *progress) Increment() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
