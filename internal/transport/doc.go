// Package transport builds the HTTP clients used for crawling.
//
// A client has a request timeout, a redirect limit, a cookie jar, and may
// route through a SOCKS5 proxy. Site specific headers and a cookie can be
// injected into every request.
//
// The package is designed for dependency injection: build a client once
// per origin and pass it to the crawler rather than using global state.
package transport
