package model

import (
	"strings"
	"unicode"
)

// Page is a page that was fetched successfully and recorded by the crawler.
//
// Design decision: Page carries only what the site map needs. Raw bodies
// are discarded once links, title and description have been extracted,
// which keeps a 150 page crawl well under a few megabytes.
type Page struct {
	// URL is the absolute URL the page was requested under.
	// It is the identity of the page; a URL is recorded at most once per crawl.
	URL string `json:"url"`

	// Title is the document title with whitespace collapsed.
	// Falls back to URL when the page has no usable title.
	Title string `json:"title"`

	// Description is the content of <meta name="description">, if any.
	Description string `json:"description,omitempty"`
}

// NewPage creates a Page, normalizing the title and description.
// An empty or whitespace-only title falls back to the page URL.
func NewPage(pageURL, title, description string) Page {
	title = CollapseWhitespace(title)
	if title == "" {
		title = pageURL
	}
	return Page{
		URL:         pageURL,
		Title:       title,
		Description: CollapseWhitespace(description),
	}
}

// CollapseWhitespace replaces every run of whitespace with a single space
// and trims leading and trailing whitespace.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
