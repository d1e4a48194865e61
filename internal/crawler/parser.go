package crawler

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parser extracts the title, description and links of a fetched page.
//
// Selection is done with goquery; the x/net/html tokenizer is kept as a
// fallback for the title when the document cannot be parsed.
type Parser struct {
	// baseURL is the URL the page was requested under, used for resolving relative links.
	baseURL *url.URL
}

// ParseResult contains what a single parse of a page produced.
type ParseResult struct {
	// Title is the text of the first <title> element, untrimmed.
	Title string

	// Description is the content of <meta name="description">.
	Description string

	// Links holds absolute, fragment-free anchor targets in document order
	// with duplicates removed.
	Links []string

	// Degraded is true when the markup or its encoding could not be
	// processed normally. Links is empty in that case; Title may still be set.
	Degraded bool
}

// NewParser creates a new parser for the page at pageURL.
func NewParser(pageURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse extracts information from content. contentType is the response
// Content-Type header and is used to pick the character encoding.
// Parse never fails: problems are reported through ParseResult.Degraded.
func (p *Parser) Parse(content []byte, contentType string) *ParseResult {
	result := &ParseResult{Links: make([]string, 0)}

	data, ok := decodeUTF8(content, contentType)
	if !ok {
		result.Degraded = true
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		result.Degraded = true
		result.Title = scanTitle(bytes.NewReader(data))
		return result
	}

	result.Title = doc.Find("title").First().Text()

	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		result.Description, _ = s.Attr("content")
		return false
	})

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := p.resolveURL(href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		result.Links = append(result.Links, link)
	})

	return result
}

// resolveURL resolves href against the page URL and drops the fragment.
// It returns "" for references that can never name a crawlable page.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// ExtractLinks returns the absolute URLs referenced by anchors in content,
// resolved against pageURL. Malformed markup yields whatever links could be
// recovered, never an error.
func ExtractLinks(pageURL string, content []byte) []string {
	p, err := NewParser(pageURL)
	if err != nil {
		return nil
	}
	return p.Parse(content, "").Links
}

// decodeUTF8 converts content to UTF-8 using the Content-Type header and
// any <meta charset> in the first kilobyte. Content that is valid UTF-8 is
// kept as is unless the header names another charset. The second result is false when
// decoding failed and the raw bytes are returned unchanged.
func decodeUTF8(content []byte, contentType string) ([]byte, bool) {
	enc, name, certain := charset.DetermineEncoding(content, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(content)) {
		return content, true
	}
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return content, utf8.Valid(content)
	}
	return decoded, true
}

// scanTitle finds the text of the first <title> element with the tokenizer.
// It is used when the tree builder cannot be used.
func scanTitle(r io.Reader) string {
	z := html.NewTokenizer(r)
	inTitle := false
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return sb.String()
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
		}
	}
}
