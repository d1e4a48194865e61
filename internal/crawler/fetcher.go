package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default fetcher settings.
const (
	// DefaultTimeout bounds a single fetch, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize caps how many body bytes are read per page.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "llmsgen/1.0 (+https://github.com/nao1215/llmsgen)"
)

// Response is a completed fetch.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte
}

// PageFetcher retrieves a single URL.
// Spider depends on this interface so tests can swap the network out.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Response, error)
}

// Fetcher performs bounded-timeout GET requests.
// Any status code is returned as a Response; deciding what to do with a
// non-200 answer is left to the caller.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum number of body bytes to read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// NewFetcher creates a Fetcher using client.
// A nil client means http.DefaultClient.
//
// The client comes from the transport package, which owns proxy, cookie
// and header settings. A nil client falls back to http.DefaultClient.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs one GET of pageURL.
// Transport failures and timeouts return a FetchError of kind FetchNetwork,
// body read failures one of kind FetchBody.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Kind: FetchNetwork, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Kind: FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.maxBodySize > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		kind := FetchBody
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = FetchNetwork
		}
		return nil, &FetchError{URL: pageURL, Kind: kind, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
