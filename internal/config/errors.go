package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoOrigin is returned when no origin URL is given.
	ErrNoOrigin = errors.New("no origin specified: provide at least one site URL")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidWorkers is returned when the number of crawl workers is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no origin is ever processed.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrStdoutMultipleOrigins is returned when --stdout is combined with
	// more than one origin. The documents would be concatenated into one
	// invalid llms.txt.
	ErrStdoutMultipleOrigins = errors.New("conflicting outputs: --stdout accepts a single origin")

	// ErrInvalidEnhanceTimeout is returned when the enhancement timeout is negative.
	ErrInvalidEnhanceTimeout = errors.New("invalid enhance timeout: must be non-negative")
)
