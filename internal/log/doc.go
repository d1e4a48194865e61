// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, API keys)
//   - Masking of credentials carried in URL query strings (e.g. "?key=")
//   - Configurable log levels with verbose mode support
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored. This matters
// for llmsgen because site cookies and headers come from the configuration
// file and the Gemini API key travels in the request URL.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("request sent",
//	    "cookie", "session=abc123", // masked
//	    "url", "https://example.com/about",
//	)
//	slog.SetDefault(logger)
package log
