package crawler

import (
	"net/url"
	"strings"
)

// DefaultExcludedExtensions lists path suffixes that are never crawled.
// They point at documents, images, archives and media that carry no links
// and no <title>.
var DefaultExcludedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".zip", ".gz", ".tar", ".rar", ".7z",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp3", ".mp4", ".mov", ".avi",
}

// ScopeFilter decides whether a candidate URL belongs to a crawl.
// It is a pure predicate and safe for concurrent use.
//
// Design decision: scope is a string-prefix check against the origin, not
// a parsed host comparison. An origin like https://x.test/docs/ then
// limits the crawl to that subtree.
//
// The known quirk is that https://x.test also admits https://x.test.evil.org.
// Pass an origin with a trailing slash to avoid it.
type ScopeFilter struct {
	origin   string
	excluded []string
}

// NewScopeFilter creates a filter for origin.
// A nil excluded slice means no extension is excluded.
func NewScopeFilter(origin string, excluded []string) *ScopeFilter {
	ext := make([]string, 0, len(excluded))
	for _, e := range excluded {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		ext = append(ext, e)
	}
	return &ScopeFilter{origin: origin, excluded: ext}
}

// Origin returns the prefix the filter admits.
func (f *ScopeFilter) Origin() string {
	return f.origin
}

// InScope reports whether candidate starts with the origin and does not
// end with an excluded extension.
func (f *ScopeFilter) InScope(candidate string) bool {
	if !strings.HasPrefix(candidate, f.origin) {
		return false
	}
	return !f.IsExcluded(candidate)
}

// IsExcluded reports whether the candidate's path ends with an excluded
// extension. The comparison is case-sensitive, so "/A.PDF" is not excluded
// by ".pdf".
func (f *ScopeFilter) IsExcluded(candidate string) bool {
	path := candidate
	if u, err := url.Parse(candidate); err == nil {
		path = u.Path
	}
	for _, ext := range f.excluded {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// InScope is the functional form of ScopeFilter.InScope.
func InScope(candidate, origin string, excluded []string) bool {
	return NewScopeFilter(origin, excluded).InScope(candidate)
}
