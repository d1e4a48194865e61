package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
)

// ruleWidth is the width of the separator lines.
const ruleWidth = 70

// SimpleWriter outputs a human-readable run summary.
// This format is designed for terminal display after a generation run.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections of the summary are shown.
	showEmpty bool

	// verbose lists every page under its section.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSections(&sb, run)
	w.writeStats(&sb, run)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the run overview.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          LLMSGEN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Origin:       %s\n", run.Origin)
	fmt.Fprintf(sb, "Site Name:    %s\n", run.SiteName)
	fmt.Fprintf(sb, "Pages:        %d\n", len(run.Pages))
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:     %s\n", d.Round(time.Millisecond))
	}

	switch {
	case run.TimedOut:
		sb.WriteString("Status:       INTERRUPTED (partial results)\n")
	case run.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:       ERROR - %s\n", run.ErrorMessage)
	default:
		sb.WriteString("Status:       Complete\n")
	}

	fmt.Fprintf(sb, "Enhancement:  %s\n", enhancementStatus(run))
	sb.WriteString("\n")
}

// writeSections writes page counts per section.
func (w *SimpleWriter) writeSections(sb *strings.Builder, run *model.Run) {
	if run.SiteMap == nil || (len(run.SiteMap.Sections) == 0 && !w.showEmpty) {
		return
	}

	writeRule(sb, "SECTIONS")

	if len(run.SiteMap.Sections) == 0 {
		sb.WriteString("  No pages recorded\n\n")
		return
	}

	for _, sec := range run.SiteMap.Sections {
		fmt.Fprintf(sb, "  %-40s %5d\n", truncateString(sec.Name, 40), len(sec.Pages))
		if w.verbose {
			for _, p := range sec.Pages {
				fmt.Fprintf(sb, "      - %s\n", p.URL)
			}
		}
	}
	sb.WriteString("\n")
}

// writeStats writes the crawl counters.
func (w *SimpleWriter) writeStats(sb *strings.Builder, run *model.Run) {
	s := run.Stats
	if s.Fetched == 0 && s.Failures() == 0 && !w.showEmpty {
		return
	}

	writeRule(sb, "CRAWL STATISTICS")

	fmt.Fprintf(sb, "  Recorded:        %d\n", s.Fetched)
	fmt.Fprintf(sb, "  Fetch failures:  %d\n", s.FetchFailed)
	fmt.Fprintf(sb, "  Non-200 skipped: %d\n", s.StatusSkipped)
	fmt.Fprintf(sb, "  Out of scope:    %d\n", s.ScopeRejected)
	if w.verbose || w.showEmpty {
		fmt.Fprintf(sb, "  Duplicate links: %d\n", s.Duplicates)
		fmt.Fprintf(sb, "  Degraded parses: %d\n", s.ParseDegraded)
	}
	if s.StopReason != "" {
		fmt.Fprintf(sb, "  Stopped because: %s\n", stopReasonText(s.StopReason))
	}
	sb.WriteString("\n")
}

// writeRule writes a titled separator block.
func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// enhancementStatus describes what happened to the enhancement step.
func enhancementStatus(run *model.Run) string {
	switch {
	case run.IsEnhanced():
		return "applied"
	case run.EnhanceError != "":
		return "failed, core document kept (" + run.EnhanceError + ")"
	default:
		return "skipped"
	}
}

// stopReasonText turns a stop reason into a sentence fragment.
func stopReasonText(r model.StopReason) string {
	switch r {
	case model.StopQueueExhausted:
		return "all reachable pages visited"
	case model.StopBudgetExhausted:
		return "page limit reached"
	case model.StopCancelled:
		return "interrupted"
	default:
		return string(r)
	}
}

// truncateString shortens s to maxLen runes, adding "..." when cut.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
