package model

import (
	"errors"
	"net/url"
	"strings"
)

// Origin errors.
var (
	// ErrEmptyOrigin is returned when the origin is empty.
	ErrEmptyOrigin = errors.New("origin URL cannot be empty")
	// ErrInvalidOrigin is returned when the origin is not an absolute http(s) URL.
	ErrInvalidOrigin = errors.New("origin must be an absolute http or https URL")
)

// Origin is an immutable value object representing the URL a crawl starts from.
// Its string form is also the prefix every in-scope URL must start with.
type Origin struct {
	raw  string // Normalized URL string, used for prefix matching
	host string // Lowercased host including port
}

// NewOrigin validates and normalizes an origin URL.
//
// Normalization is deliberately light: scheme and host are lowercased and the
// fragment is dropped, but the path is kept exactly as given. Scope checks are
// plain string-prefix comparisons against this value, so "https://x.test" and
// "https://x.test/" scope differently.
func NewOrigin(raw string) (Origin, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Origin{}, ErrEmptyOrigin
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Origin{}, errors.Join(ErrInvalidOrigin, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return Origin{}, ErrInvalidOrigin
	}
	if u.Host == "" {
		return Origin{}, ErrInvalidOrigin
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return Origin{
		raw:  u.String(),
		host: u.Host,
	}, nil
}

// MustNewOrigin creates a new Origin or panics if invalid.
// Use only for known-valid origins in tests or initialization.
func MustNewOrigin(raw string) Origin {
	o, err := NewOrigin(raw)
	if err != nil {
		panic(err)
	}
	return o
}

// String returns the normalized origin URL.
func (o Origin) String() string {
	return o.raw
}

// Host returns the lowercased host, including the port if one was given.
func (o Origin) Host() string {
	return o.host
}

// Hostname returns the host without any port.
func (o Origin) Hostname() string {
	if h, _, ok := strings.Cut(o.host, ":"); ok {
		return h
	}
	return o.host
}

// IsZero reports whether the origin was never initialized.
func (o Origin) IsZero() bool {
	return o.raw == ""
}
