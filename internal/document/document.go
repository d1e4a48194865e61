package document

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/llmsgen/internal/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Validation errors.
var (
	// ErrMissingTitle is returned when the document does not start with an H1.
	ErrMissingTitle = errors.New("document must start with a level 1 heading")
	// ErrMultipleTitles is returned when more than one H1 is present.
	ErrMultipleTitles = errors.New("document has more than one level 1 heading")
	// ErrNestedHeading is returned for headings deeper than level 2.
	ErrNestedHeading = errors.New("only level 1 and level 2 headings are allowed")
	// ErrRelativeURL is returned for links that are not absolute http(s) URLs.
	ErrRelativeURL = errors.New("link URL is not an absolute http or https URL")
	// ErrNoLinks is returned by ValidateWithLinks when no link is present.
	ErrNoLinks = errors.New("document contains no links")
)

// Link is one bullet of a section.
type Link struct {
	// Title is the link text with escapes resolved.
	Title string `json:"title"`

	// URL is the link destination.
	URL string `json:"url"`

	// Description is the text after the link, without the leading colon.
	Description string `json:"description,omitempty"`
}

// Section is an H2 heading and the links listed under it.
type Section struct {
	// Name is the heading text. Empty for links listed before any H2.
	Name string `json:"name"`

	// Links are in document order.
	Links []Link `json:"links"`
}

// Document is a parsed llms.txt file.
type Document struct {
	// Title is the text of the first H1.
	Title string `json:"title"`

	// Summary is the text of the first blockquote before any section.
	Summary string `json:"summary,omitempty"`

	// Details holds paragraphs between the summary and the first section.
	Details []string `json:"details,omitempty"`

	// Sections are in document order.
	Sections []Section `json:"sections"`

	startsWithTitle bool
	titleCount      int
	nestedHeadings  []string
}

// Parse reads src as markdown. It never fails; structural problems are
// reported by Validate.
func Parse(src []byte) *Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	d := &Document{Sections: make([]Section, 0)}
	first := true
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, src)
			switch node.Level {
			case 1:
				d.titleCount++
				if d.titleCount == 1 {
					d.Title = title
					d.startsWithTitle = first
				}
			case 2:
				d.Sections = append(d.Sections, Section{Name: title, Links: make([]Link, 0)})
			default:
				d.nestedHeadings = append(d.nestedHeadings, title)
			}
		case *ast.Blockquote:
			if d.Summary == "" && len(d.Sections) == 0 {
				d.Summary = nodeText(node, src)
			}
		case *ast.Paragraph:
			if len(d.Sections) == 0 {
				d.Details = append(d.Details, nodeText(node, src))
			}
		case *ast.List:
			d.addList(node, src)
		}
		first = false
	}
	return d
}

// addList appends the links of a list to the current section.
func (d *Document) addList(list *ast.List, src []byte) {
	if len(d.Sections) == 0 {
		d.Sections = append(d.Sections, Section{Links: make([]Link, 0)})
	}
	sec := &d.Sections[len(d.Sections)-1]
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if link, ok := parseItem(item, src); ok {
			sec.Links = append(sec.Links, link)
		}
	}
}

// parseItem extracts the first link of a list item and the text after it.
func parseItem(item ast.Node, src []byte) (Link, bool) {
	var found ast.Node
	var link Link
	_ = ast.Walk(item, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found != nil {
			return ast.WalkContinue, nil
		}
		switch l := n.(type) {
		case *ast.Link:
			found = l
			link.Title = nodeText(l, src)
			link.URL = string(util.UnescapePunctuations(l.Destination))
			return ast.WalkStop, nil
		case *ast.AutoLink:
			found = l
			link.URL = string(l.URL(src))
			link.Title = link.URL
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if found == nil {
		return Link{}, false
	}

	var sb strings.Builder
	for s := found.NextSibling(); s != nil; s = s.NextSibling() {
		writeText(&sb, s, src)
	}
	desc := model.CollapseWhitespace(string(util.UnescapePunctuations([]byte(sb.String()))))
	desc = strings.TrimSpace(strings.TrimPrefix(desc, ":"))
	link.Description = desc
	return link, true
}

// Links returns every link in document order.
func (d *Document) Links() []Link {
	var links []Link
	for _, sec := range d.Sections {
		links = append(links, sec.Links...)
	}
	return links
}

// URLs returns every link URL in document order.
func (d *Document) URLs() []string {
	links := d.Links()
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return urls
}

// Validate checks the llms.txt layout: a leading H1, no second H1, no
// heading deeper than H2, and only absolute http(s) link URLs.
// All problems found are joined into the returned error.
func (d *Document) Validate() error {
	var errs []error
	if d.titleCount == 0 || !d.startsWithTitle {
		errs = append(errs, ErrMissingTitle)
	}
	if d.titleCount > 1 {
		errs = append(errs, ErrMultipleTitles)
	}
	for _, h := range d.nestedHeadings {
		errs = append(errs, fmt.Errorf("%w: %q", ErrNestedHeading, h))
	}
	for _, l := range d.Links() {
		if !isAbsoluteHTTP(l.URL) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrRelativeURL, l.URL))
		}
	}
	return errors.Join(errs...)
}

// ValidateWithLinks is Validate plus a check that at least one link exists.
func (d *Document) ValidateWithLinks() error {
	err := d.Validate()
	if len(d.Links()) == 0 {
		err = errors.Join(err, ErrNoLinks)
	}
	return err
}

// isAbsoluteHTTP reports whether s parses as an http or https URL with a host.
func isAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// nodeText returns the plain text of n with escapes resolved and
// whitespace collapsed.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	writeText(&sb, n, src)
	return model.CollapseWhitespace(string(util.UnescapePunctuations([]byte(sb.String()))))
}

// writeText appends the raw text content of n and its descendants.
func writeText(sb *strings.Builder, n ast.Node, src []byte) {
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.URL(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}
