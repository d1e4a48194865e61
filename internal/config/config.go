package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "llmsgen"

	// DefaultMaxPages is the page budget per origin. It bounds the crawl of
	// large sites while still covering the navigation of most of them.
	DefaultMaxPages = 150

	// DefaultCrawlDelay is the minimum spacing between requests to one origin.
	// This is a politeness setting shared by all workers of a crawl.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultTimeout bounds a single page request, including redirects.
	DefaultTimeout = 10 * time.Second

	// DefaultWorkers is the number of concurrent fetches per origin.
	// One worker reproduces a strict breadth-first visiting order.
	DefaultWorkers = 1

	// DefaultBatchSize is the number of origins processed concurrently.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies llmsgen in HTTP requests.
	// Using a descriptive User-Agent allows operators to identify crawler
	// traffic in their logs.
	DefaultUserAgent = "llmsgen/1.0 (+https://github.com/nao1215/llmsgen)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputDir is where generated files are written.
	DefaultOutputDir = "."

	// DefaultAPIKeyEnv is the environment variable holding the Gemini API key.
	DefaultAPIKeyEnv = "GOOGLE_API_KEY"

	// DefaultEnhanceModel is the Gemini model used for enhancement.
	DefaultEnhanceModel = "gemini-2.0-flash"

	// DefaultEnhanceTimeout bounds a single enhancement API call.
	DefaultEnhanceTimeout = 120 * time.Second

	// HistoryDBFile is the SQLite file name inside DBDir.
	HistoryDBFile = "history.db"
)

// Config holds all configuration options for llmsgen.
// This struct is populated from CLI flags and the configuration file and
// passed through the application via dependency injection rather than
// global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Origins are the site URLs to map. Each one is crawled independently.
	Origins []string

	// SiteName is the H1 title. When empty it is derived from the host.
	SiteName string

	// MaxPages is the maximum number of pages recorded per origin.
	MaxPages int

	// CrawlDelay is the minimum spacing between requests to one origin.
	CrawlDelay time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Workers is the number of concurrent fetches per origin.
	Workers int

	// BatchSize is the number of origins processed concurrently.
	BatchSize int

	// ExcludeExtensions are path suffixes never fetched. Nil selects the
	// crawler's built-in list.
	ExcludeExtensions []string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// OutputDir is the directory generated files are written to. With more
	// than one origin, each origin gets a sub directory named after its host.
	OutputDir string

	// Stdout prints the final document instead of writing files.
	Stdout bool

	// WriteFull also writes llms-full.txt (the core document with descriptions).
	WriteFull bool

	// WriteJSON also writes sitemap.json with the site map and crawl statistics.
	WriteJSON bool

	// Descriptions appends page descriptions to the core llms.txt links.
	Descriptions bool

	// SkipEnhance disables the enhancement step.
	SkipEnhance bool

	// EnhanceModel is the Gemini model name.
	EnhanceModel string

	// EnhanceEndpoint overrides the Gemini API base URL.
	EnhanceEndpoint string

	// EnhanceTimeout bounds a single enhancement API call.
	EnhanceTimeout time.Duration

	// APIKeyEnv is the environment variable read for the Gemini API key.
	APIKeyEnv string

	// PromptFile is an optional text/template file replacing the built-in prompt.
	PromptFile string

	// SaveHistory stores each run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	// Defaults to XDG data directory (~/.local/share/llmsgen on Linux).
	DBDir string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches the log output to JSON.
	LogJSON bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, budget).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		CrawlDelay:     DefaultCrawlDelay,
		Timeout:        DefaultTimeout,
		Workers:        DefaultWorkers,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		OutputDir:      DefaultOutputDir,
		EnhanceModel:   DefaultEnhanceModel,
		EnhanceTimeout: DefaultEnhanceTimeout,
		APIKeyEnv:      DefaultAPIKeyEnv,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for llmsgen.
// On Linux: ~/.local/share/llmsgen
// On macOS: ~/Library/Application Support/llmsgen
// On Windows: %LOCALAPPDATA%\llmsgen
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for llmsgen.
// On Linux: ~/.config/llmsgen
// On macOS: ~/Library/Application Support/llmsgen
// On Windows: %APPDATA%\llmsgen
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HistoryDBPath returns the history database file path.
func (c *Config) HistoryDBPath() string {
	dir := c.DBDir
	if dir == "" {
		dir = XDGDataDir()
	}
	return filepath.Join(dir, HistoryDBFile)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Origins) == 0 {
		return ErrNoOrigin
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.EnhanceTimeout < 0 {
		return ErrInvalidEnhanceTimeout
	}
	if c.Stdout && len(c.Origins) > 1 {
		return ErrStdoutMultipleOrigins
	}
	return nil
}
