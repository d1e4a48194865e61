package config

import (
	"net/url"
	"strings"
	"time"
)

// SiteConfig holds site-specific configuration for a single origin.
// Zero values mean "not set" and fall back to the defaults section, then
// to the command line.
type SiteConfig struct {
	// Name is the H1 title of the generated document.
	Name string `yaml:"name,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// CrawlDelay overrides the spacing between requests (e.g. "500ms").
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`

	// Workers overrides the number of concurrent fetches.
	Workers int `yaml:"workers,omitempty"`

	// ExcludeExtensions replaces the list of path suffixes never fetched.
	ExcludeExtensions []string `yaml:"excludeExtensions,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .llmsgen.yaml configuration file.
type File struct {
	// Sites maps origins to their site-specific configurations.
	// Keys may be a full origin ("https://example.com") or a bare host
	// ("example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for an origin.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(origin string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	siteConfig, ok := cf.lookup(origin)
	if !ok {
		return result
	}

	if siteConfig.Name != "" {
		result.Name = siteConfig.Name
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.CrawlDelay != 0 {
		result.CrawlDelay = siteConfig.CrawlDelay
	}
	if siteConfig.Workers != 0 {
		result.Workers = siteConfig.Workers
	}
	if len(siteConfig.ExcludeExtensions) > 0 {
		result.ExcludeExtensions = siteConfig.ExcludeExtensions
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// lookup finds the site entry for origin: the exact key first, then the
// key without a trailing slash, then the host.
func (cf *File) lookup(origin string) (SiteConfig, bool) {
	if sc, ok := cf.Sites[origin]; ok {
		return sc, true
	}
	trimmed := strings.TrimRight(origin, "/")
	for key, sc := range cf.Sites {
		if strings.TrimRight(key, "/") == trimmed {
			return sc, true
		}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return SiteConfig{}, false
	}
	host := strings.ToLower(u.Host)
	for key, sc := range cf.Sites {
		if strings.ToLower(key) == host {
			return sc, true
		}
	}
	return SiteConfig{}, false
}
