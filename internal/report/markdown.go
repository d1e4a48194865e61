package report

import (
	"io"
	"strings"

	"github.com/nao1215/llmsgen/internal/model"
	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs llms.txt documents.
//
// The layout is fixed: an H1 with the site title, a blockquote summary,
// then one H2 per section followed by a bullet list of page links.
// No other heading levels are emitted.
//
// It renders with nao1215/markdown, the builder the history diff tables
// use as well.
type MarkdownWriter struct {
	baseWriter

	// descriptions appends ": description" to links whose page has one.
	descriptions bool

	// fromSiteMap ignores stored documents and always renders the site map.
	fromSiteMap bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithDescriptions enables page descriptions after each link.
func WithDescriptions(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.descriptions = enabled
	}
}

// WithFromSiteMap makes Write render the site map even when the run
// already holds a document. llms-full.txt is written this way.
func WithFromSiteMap() MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.fromSiteMap = true
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run's final document. When no document has been
// rendered yet, the site map is rendered instead.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	if doc := run.FinalDocument(); doc != "" && !w.fromSiteMap {
		return io.WriteString(w.output, doc)
	}
	if run.SiteMap == nil {
		return 0, ErrNoSiteMap
	}
	return w.WriteSiteMap(run.SiteMap)
}

// WriteSiteMap renders sm as an llms.txt document.
func (w *MarkdownWriter) WriteSiteMap(sm *model.SiteMap) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(singleLine(sm.Title))
	md.PlainText("")
	md.Blockquote(singleLine(sm.Summary))

	for _, sec := range sm.Sections {
		md.PlainText("")
		md.H2(singleLine(sec.Name))
		md.PlainText("")

		items := make([]string, 0, len(sec.Pages))
		for _, p := range sec.Pages {
			items = append(items, w.linkItem(p))
		}
		md.BulletList(items...)
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

// linkItem formats one bullet: [title](url) with an optional description.
func (w *MarkdownWriter) linkItem(p model.Page) string {
	item := markdown.Link(escapeLinkText(singleLine(p.Title)), linkDestination(p.URL))
	if w.descriptions && p.Description != "" {
		item += ": " + singleLine(p.Description)
	}
	return item
}

// Render returns sm as an llms.txt document.
func Render(sm *model.SiteMap, opts ...MarkdownWriterOption) string {
	var sb strings.Builder
	_, _ = NewMarkdownWriter(&sb, opts...).WriteSiteMap(sm)
	return sb.String()
}

// escapeLinkText escapes characters that would end the link text early.
func escapeLinkText(s string) string {
	return strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`).Replace(s)
}

// linkDestination wraps URLs that contain spaces or parentheses in angle
// brackets so they survive markdown parsing unchanged.
func linkDestination(u string) string {
	if strings.ContainsAny(u, " ()") {
		return "<" + u + ">"
	}
	return u
}

// singleLine collapses whitespace so a value cannot break the line layout.
func singleLine(s string) string {
	return model.CollapseWhitespace(s)
}
