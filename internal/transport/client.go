package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a whole request including redirects.
	DefaultTimeout = 10 * time.Second

	// MaxRedirects is the number of redirects followed before the last
	// response is returned as is.
	MaxRedirects = 10

	// checkProxyTimeout is short because the check only performs a handshake.
	checkProxyTimeout = 2 * time.Second
)

// SOCKS5 protocol constants.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

type clientConfig struct {
	timeout      time.Duration
	proxyAddress string
	cookie       string
	headers      map[string]string
}

// ClientOption configures NewHTTPClient.
type ClientOption func(*clientConfig)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at address
// ("host:port"). An empty address disables the proxy.
func WithProxy(address string) ClientOption {
	return func(c *clientConfig) {
		c.proxyAddress = address
	}
}

// WithCookie sends a raw cookie string (e.g. "session=abc") with every request.
func WithCookie(cookie string) ClientOption {
	return func(c *clientConfig) {
		c.cookie = cookie
	}
}

// WithHeaders sets extra headers on every request. Later calls add to and
// override earlier ones.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *clientConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// NewHTTPClient returns an HTTP client for crawling.
//
// Design decisions:
// - A cookie jar keeps session cookies set by the site across pages
// - Redirects stop after MaxRedirects and the last response is returned,
//   so a redirect loop becomes a non-200 page instead of an error
// - Headers and the cookie are injected by a RoundTripper so redirected
//   requests carry them too
func NewHTTPClient(opts ...ClientOption) (*http.Client, error) {
	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport type")
	}
	transport := base.Clone()
	transport.MaxIdleConnsPerHost = 4

	if cfg.proxyAddress != "" {
		if !isValidProxyAddress(cfg.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		// Most SOCKS5 proxies used for crawling accept no authentication.
		dialer, err := proxy.SOCKS5("tcp", cfg.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if cfg.cookie != "" || len(cfg.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  cfg.cookie,
			headers: cfg.headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			// via holds the requests already sent, so MaxRedirects
			// redirects are followed before the last one is returned.
			if len(via) > MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
//
// The SOCKS5 dialer from x/net supports contexts; the fallback only honours
// cancellation while waiting, the dial itself may continue briefly.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress checks for "host:port" with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy performs the SOCKS5 method negotiation against address and
// reports whether it is a usable proxy without authentication.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	if !isValidProxyAddress(address) {
		return ProxyStatusCannotConnect
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, one method, "no authentication"
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and a cookie into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
