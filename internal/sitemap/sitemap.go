package sitemap

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Option configures Build.
type Option func(*builder)

type builder struct {
	summary string
	now     func() time.Time
}

// WithSummary sets the blockquote summary. Defaults to DefaultSummary.
func WithSummary(summary string) Option {
	return func(b *builder) {
		b.summary = summary
	}
}

// WithClock sets the function used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		b.now = now
	}
}

// Build groups pages into a SiteMap titled title for the given origin.
// Every page lands in exactly one section. The input slice is not modified.
func Build(pages []model.Page, title, origin string, opts ...Option) *model.SiteMap {
	b := &builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.summary == "" {
		b.summary = DefaultSummary(title, origin)
	}

	grouped := make(map[string][]model.Page)
	for _, p := range pages {
		key := SectionKey(p.URL)
		grouped[key] = append(grouped[key], model.Page{
			URL:         p.URL,
			Title:       model.CollapseWhitespace(p.Title),
			Description: p.Description,
		})
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		if k != model.HomeSection {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := grouped[model.HomeSection]; ok {
		keys = slices.Insert(keys, 0, model.HomeSection)
	}

	sections := make([]model.Section, 0, len(keys))
	for _, k := range keys {
		ps := grouped[k]
		sort.SliceStable(ps, func(i, j int) bool {
			return len(ps[i].URL) < len(ps[j].URL)
		})
		sections = append(sections, model.Section{
			Key:   k,
			Name:  DisplayName(k),
			Pages: ps,
		})
	}

	return &model.SiteMap{
		Title:       title,
		Summary:     b.summary,
		Origin:      origin,
		GeneratedAt: b.now(),
		Sections:    sections,
	}
}

// SectionKey returns the first non-empty path segment of pageURL, or
// model.HomeSection when the path is empty. The segment is percent-decoded.
func SectionKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return model.HomeSection
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return seg
		}
	}
	return model.HomeSection
}

// DisplayName turns a section key into a heading.
// Dashes and underscores become spaces and each word is title-cased, so
// "undergraduate-hub" becomes "Undergraduate Hub".
func DisplayName(key string) string {
	if key == model.HomeSection {
		return key
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(key)
	// cases.Caser keeps state between calls, so one is made per use.
	return cases.Title(language.English).String(words)
}

// DefaultSummary returns the summary line used when none is configured.
func DefaultSummary(title, origin string) string {
	return fmt.Sprintf("Site map of %s (%s), auto-generated for LLM context.", title, origin)
}

// DeriveSiteName guesses a site title from the origin's host name:
// "https://www.example.com/" becomes "Example". IP addresses and hosts
// without a dot are returned as is.
func DeriveSiteName(origin string) string {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	if net.ParseIP(host) != nil {
		return host
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	name := labels[len(labels)-2]
	if name == "" {
		return host
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
