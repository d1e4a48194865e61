package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// HomeSection is the reserved section key for pages with an empty path.
const HomeSection = "Home"

// Section is a group of pages sharing the same first path segment.
type Section struct {
	// Key is the raw first path segment, or HomeSection.
	Key string `json:"key"`

	// Name is the display form of Key ("getting-started" becomes "Getting Started").
	Name string `json:"name"`

	// Pages are ordered by URL length, ties kept in discovery order.
	Pages []Page `json:"pages"`
}

// SiteMap is the grouped, ordered index of a crawled site.
// It is built once after crawling and is not mutated afterwards.
type SiteMap struct {
	// Title is the site title used for the H1 heading.
	Title string `json:"title"`

	// Summary is the one-line blockquote under the title.
	Summary string `json:"summary"`

	// Origin is the URL the crawl started from.
	Origin string `json:"origin"`

	// GeneratedAt is when the site map was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Sections are ordered with Home first, then by key.
	Sections []Section `json:"sections"`
}

// PageCount returns the total number of pages across all sections.
func (s *SiteMap) PageCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Pages)
	}
	return n
}

// URLs returns every page URL in document order.
func (s *SiteMap) URLs() []string {
	urls := make([]string, 0, s.PageCount())
	for _, sec := range s.Sections {
		for _, p := range sec.Pages {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// Section returns the section with the given key, or nil.
func (s *SiteMap) Section(key string) *Section {
	for i := range s.Sections {
		if s.Sections[i].Key == key {
			return &s.Sections[i]
		}
	}
	return nil
}

// Fingerprint returns a SHA3-256 digest of the site structure.
// Only section keys, URLs and titles contribute, so two crawls of an
// unchanged site produce the same fingerprint regardless of GeneratedAt.
func (s *SiteMap) Fingerprint() string {
	h := sha3.New256()
	for _, sec := range s.Sections {
		h.Write([]byte(sec.Key))
		h.Write([]byte{0})
		for _, p := range sec.Pages {
			h.Write([]byte(p.URL))
			h.Write([]byte{0})
			h.Write([]byte(p.Title))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
