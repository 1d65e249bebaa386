package main

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

// showProgress reports whether a progress bar should be drawn. The bar is
// written to stderr, so it is only shown when stderr is a terminal.
func showProgress(c *cli.Context) bool {
	if c.Bool("no-progress") || c.Bool("quiet") {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressBar counts processed frames. A nil *progressBar is valid and does
// nothing, so callers need not check whether progress is enabled.
type progressBar struct {
	bar *progressbar.ProgressBar
}

// newProgressBar creates a bar for total frames. A total of zero or less
// shows a spinner with a running count instead.
func newProgressBar(total int, description string) *progressBar {
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &progressBar{bar: bar}
}

// Add advances the bar. It is safe for concurrent use.
func (p *progressBar) Add(frames int) {
	if p == nil {
		return
	}
	_ = p.bar.Add(frames)
}

// Finish completes and clears the bar.
func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
