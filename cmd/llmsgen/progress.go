package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/nao1215/llmsgen/internal/crawler"
)

// progressIndicator shows crawl progress on a terminal.
// A nil *progressIndicator is valid and does nothing, so callers never
// need to check whether progress output is enabled.
type progressIndicator struct {
	s *spinner.Spinner
}

// newProgressIndicator returns a spinner writing to w, or nil when w is not
// a terminal or when log output would interleave with it.
func newProgressIndicator(w io.Writer, verbose, logJSON bool) *progressIndicator {
	if verbose || logJSON || !isTerminal(w) {
		return nil
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting crawl"
	return &progressIndicator{s: s}
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start begins animating.
func (p *progressIndicator) Start() {
	if p == nil {
		return
	}
	p.s.Start()
}

// Stop stops animating and clears the line.
func (p *progressIndicator) Stop() {
	if p == nil {
		return
	}
	p.s.Stop()
}

// Update shows the latest crawl progress. It is called from crawl workers
// of several origins at once.
func (p *progressIndicator) Update(pr crawler.Progress) {
	if p == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" [%d/%d pages, %d queued] %s",
		pr.Recorded, pr.MaxPages, pr.Queued, formatProgressURL(pr.URL))
	p.s.Unlock()
}

// Pause runs fn with the spinner stopped so fn can print whole lines.
func (p *progressIndicator) Pause(fn func()) {
	if p == nil {
		fn()
		return
	}
	p.s.Stop()
	fn()
	p.s.Start()
}

// formatProgressURL shortens long URLs so the spinner stays on one line.
func formatProgressURL(u string) string {
	const maxLen = 60
	r := []rune(u)
	if len(r) <= maxLen {
		return u
	}
	return "..." + string(r[len(r)-(maxLen-3):])
}
