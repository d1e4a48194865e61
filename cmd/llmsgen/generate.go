package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nao1215/llmsgen/internal/config"
	"github.com/nao1215/llmsgen/internal/database"
	"github.com/nao1215/llmsgen/internal/enhance"
	"github.com/nao1215/llmsgen/internal/model"
	"github.com/nao1215/llmsgen/internal/pipeline"
	"github.com/nao1215/llmsgen/internal/report"
	"github.com/nao1215/llmsgen/internal/sitemap"
	"github.com/nao1215/llmsgen/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Output file names.
const (
	llmsFileName     = "llms.txt"
	llmsFullFileName = "llms-full.txt"
	siteMapFileName  = "sitemap.json"
)

// errNoPages is reported for an origin whose crawl recorded nothing.
// No file is written in that case; an empty llms.txt would replace a
// previously generated one.
var errNoPages = errors.New("no pages could be fetched")

// errOutputDirConflict is returned when two origins map to one output
// directory, e.g. "https://x.test" and "https://x.test/".
var errOutputDirConflict = errors.New("origins would write to the same output directory")

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [url]...",
		Short: "Crawl websites and write llms.txt files",
		Long: `Generate crawls each website breadth-first, staying within the given
origin, and writes an llms.txt file listing the pages it found grouped by
their first path segment.

When a Gemini API key is available (GOOGLE_API_KEY, or an interactive prompt
on a terminal), the document is rewritten into a curated version. If that
fails for any reason the plain site map is written instead.

Examples:
  # Map a site into ./llms.txt
  llmsgen generate https://example.com

  # Map only the documentation, up to 300 pages
  llmsgen generate --max-pages 300 https://example.com/docs/

  # Several sites at once; each gets its own directory under ./out
  llmsgen generate -o out https://a.example https://b.example

  # Also write llms-full.txt and sitemap.json, without enhancement
  llmsgen generate --full --json --skip-enhance https://example.com

  # Print the document instead of writing files
  llmsgen generate --stdout https://example.com

Configuration file (.llmsgen.yaml) example:
  defaults:
    crawlDelay: 500ms
  sites:
    docs.example.com:
      name: "Example Docs"
      maxPages: 400
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runGenerateCmd,
	}

	// Crawl flags
	cmd.Flags().StringP("name", "n", "",
		"Site name used as the document title (default: derived from the host)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages recorded per site")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Minimum delay between requests to one site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent page fetches per site")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites processed concurrently")
	cmd.Flags().StringSlice("exclude", nil,
		"Path suffixes never fetched, replacing the built-in list (e.g. .pdf,.zip)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read from each response")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for generated files")
	cmd.Flags().Bool("stdout", false,
		"Print the document to stdout instead of writing files")
	cmd.Flags().Bool("full", false,
		"Also write llms-full.txt with page descriptions")
	cmd.Flags().BoolP("json", "j", false,
		"Also write sitemap.json with the site map and crawl statistics")
	cmd.Flags().Bool("descriptions", false,
		"Append page descriptions to the links in llms.txt")

	// Enhancement flags
	cmd.Flags().Bool("skip-enhance", false,
		"Do not rewrite the document with Gemini")
	cmd.Flags().String("model", config.DefaultEnhanceModel,
		"Gemini model used for enhancement")
	cmd.Flags().String("endpoint", "",
		"Gemini API base URL (default: the public endpoint)")
	cmd.Flags().Duration("enhance-timeout", config.DefaultEnhanceTimeout,
		"Timeout for each enhancement request")
	cmd.Flags().String("api-key-env", config.DefaultAPIKeyEnv,
		"Environment variable holding the Gemini API key")
	cmd.Flags().String("prompt-file", "",
		"Custom prompt template (Go text/template with .SiteName and .Document)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Store each run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .llmsgen.yaml in current or home directory)")

	return cmd
}

// runGenerateCmd executes the generate command.
func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := checkOutputDirs(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	g := &generator{
		cfg:      cfg,
		logger:   setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON),
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		explicit: cmd.Flags().Changed,
	}
	return g.run(cmd.Context())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.SiteName, err = flags.GetString("name"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if flags.Changed("exclude") {
		if cfg.ExcludeExtensions, err = flags.GetStringSlice("exclude"); err != nil {
			return nil, err
		}
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}

	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.Stdout, err = flags.GetBool("stdout"); err != nil {
		return nil, err
	}
	if cfg.WriteFull, err = flags.GetBool("full"); err != nil {
		return nil, err
	}
	if cfg.WriteJSON, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.Descriptions, err = flags.GetBool("descriptions"); err != nil {
		return nil, err
	}

	if cfg.SkipEnhance, err = flags.GetBool("skip-enhance"); err != nil {
		return nil, err
	}
	if cfg.EnhanceModel, err = flags.GetString("model"); err != nil {
		return nil, err
	}
	if cfg.EnhanceEndpoint, err = flags.GetString("endpoint"); err != nil {
		return nil, err
	}
	if cfg.EnhanceTimeout, err = flags.GetDuration("enhance-timeout"); err != nil {
		return nil, err
	}
	if cfg.APIKeyEnv, err = flags.GetString("api-key-env"); err != nil {
		return nil, err
	}
	if cfg.PromptFile, err = flags.GetString("prompt-file"); err != nil {
		return nil, err
	}

	if cfg.SaveHistory, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	// Normalize origins up front so a typo fails before any crawl starts.
	// An origin given twice is crawled once.
	cfg.Origins = make([]string, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		origin, err := model.NewOrigin(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid origin %q: %w", arg, err)
		}
		if _, dup := seen[origin.String()]; dup {
			continue
		}
		seen[origin.String()] = struct{}{}
		cfg.Origins = append(cfg.Origins, origin.String())
	}

	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	return cf, nil
}

// siteSettings are the crawl settings for one origin after merging the
// command line with the configuration file.
type siteSettings struct {
	name     string
	maxPages int
	delay    time.Duration
	workers  int
	exclude  []string
	cookie   string
	headers  map[string]string
}

// resolveSiteSettings merges the configuration file entry for origin into
// the command line settings. A flag given explicitly on the command line
// wins over the file; the file wins over flag defaults.
func resolveSiteSettings(cfg *config.Config, origin string, explicit func(name string) bool) siteSettings {
	s := siteSettings{
		name:     cfg.SiteName,
		maxPages: cfg.MaxPages,
		delay:    cfg.CrawlDelay,
		workers:  cfg.Workers,
		exclude:  cfg.ExcludeExtensions,
	}
	if cfg.SiteConfigs == nil {
		return s
	}

	sc := cfg.SiteConfigs.GetSiteConfig(origin)
	if sc.Name != "" && !explicit("name") {
		s.name = sc.Name
	}
	if sc.MaxPages > 0 && !explicit("max-pages") {
		s.maxPages = sc.MaxPages
	}
	if sc.CrawlDelay > 0 && !explicit("delay") {
		s.delay = sc.CrawlDelay
	}
	if sc.Workers > 0 && !explicit("workers") {
		s.workers = sc.Workers
	}
	if len(sc.ExcludeExtensions) > 0 && !explicit("exclude") {
		s.exclude = sc.ExcludeExtensions
	}
	s.cookie = sc.Cookie
	s.headers = sc.Headers
	return s
}

// generator holds the state shared by every origin of one generate run.
type generator struct {
	cfg      *config.Config
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	explicit func(name string) bool

	// Set up by run.
	apiKey        string
	prompt        *template.Template
	enhanceClient *http.Client
	db            *database.HistoryDB
	progress      *progressIndicator
}

// run processes every origin and writes the results.
func (g *generator) run(ctx context.Context) error {
	cfg := g.cfg

	g.logger.Info("starting generation",
		"origins", cfg.Origins,
		"maxPages", cfg.MaxPages,
		"batchSize", cfg.BatchSize,
		"saveHistory", cfg.SaveHistory,
	)

	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress).Err(); err != nil {
			return fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w",
				cfg.ProxyAddress, err)
		}
		g.logger.Info("SOCKS5 proxy verified", "address", cfg.ProxyAddress)
	}

	if err := g.setupEnhancement(); err != nil {
		return err
	}

	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		g.db = db
		g.logger.Info("history database opened", "path", db.Path())
	}

	g.progress = newProgressIndicator(g.errOut, cfg.Verbose, cfg.LogJSON)
	g.progress.Start()
	defer g.progress.Stop()

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		g.newPipeline,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(g.logger),
	)

	var (
		mu       sync.Mutex
		failures []error
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Origins, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		g.progress.Pause(func() {
			if err := g.handleRun(ctx, run, index); err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", cfg.Origins[index], err))
			}
		})
	})

	g.progress.Stop()
	if len(cfg.Origins) > 1 {
		fmt.Fprintf(g.summaryOut(), "Processed %d sites in %s\n",
			len(cfg.Origins), time.Since(startTime).Round(time.Millisecond))
	}

	if batchErr != nil {
		return fmt.Errorf("generation interrupted, partial results were written: %w", batchErr)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d sites failed: %w", len(failures), len(cfg.Origins), errors.Join(failures...))
	}
	return nil
}

// setupEnhancement resolves the API key and prompt once for all origins.
// A missing key is not an error: the plain site map is written instead.
func (g *generator) setupEnhancement() error {
	cfg := g.cfg
	if cfg.SkipEnhance {
		return nil
	}

	if cfg.PromptFile != "" {
		data, err := os.ReadFile(cfg.PromptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		tmpl, err := enhance.ParsePrompt(string(data))
		if err != nil {
			return err
		}
		g.prompt = tmpl
	}

	g.apiKey = resolveAPIKey(cfg.APIKeyEnv, g.in, g.errOut)
	if g.apiKey == "" {
		g.logger.Warn("enhancement disabled", "reason", enhance.ErrNoAPIKey, "env", cfg.APIKeyEnv)
		fmt.Fprintf(g.errOut, "Warning: %s is not set; writing the site map without enhancement.\n", cfg.APIKeyEnv)
		return nil
	}

	timeout := cfg.EnhanceTimeout
	if timeout <= 0 {
		timeout = enhance.DefaultTimeout
	}
	client, err := transport.NewHTTPClient(
		transport.WithTimeout(timeout),
		transport.WithProxy(cfg.ProxyAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	g.enhanceClient = client
	return nil
}

// newPipeline builds the pipeline for one origin. It is the batch
// processor's factory, so site-specific settings apply in batch mode too.
func (g *generator) newPipeline(origin string) (*pipeline.Pipeline, error) {
	cfg := g.cfg
	site := resolveSiteSettings(cfg, origin, g.explicit)

	client, err := transport.NewHTTPClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithCookie(site.cookie),
		transport.WithHeaders(site.headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineSiteName(site.name),
		pipeline.WithPipelineMaxPages(site.maxPages),
		pipeline.WithPipelineCrawlDelay(site.delay),
		pipeline.WithPipelineWorkers(site.workers),
		pipeline.WithPipelineTimeout(cfg.Timeout),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
		pipeline.WithPipelineDescriptions(cfg.Descriptions),
	}
	if site.exclude != nil {
		configOpts = append(configOpts, pipeline.WithPipelineExcludeExtensions(site.exclude))
	}
	if g.progress != nil {
		configOpts = append(configOpts, pipeline.WithPipelineProgress(g.progress.Update))
	}

	enhancer, err := g.newEnhancer(origin, site.name)
	if err != nil {
		return nil, err
	}
	if enhancer != nil {
		configOpts = append(configOpts, pipeline.WithPipelineEnhancer(enhancer))
	}

	return pipeline.DefaultPipeline(client, []pipeline.Option{pipeline.WithLogger(g.logger)}, configOpts...), nil
}

// newEnhancer returns the enhancer for one origin, or nil when
// enhancement is disabled.
func (g *generator) newEnhancer(origin, siteName string) (enhance.Enhancer, error) {
	if g.apiKey == "" {
		return nil, nil
	}
	if siteName == "" {
		siteName = sitemap.DeriveSiteName(origin)
	}

	opts := []enhance.GeminiOption{
		enhance.WithModel(g.cfg.EnhanceModel),
		enhance.WithSiteName(siteName),
		enhance.WithTimeout(g.cfg.EnhanceTimeout),
		enhance.WithLogger(g.logger),
	}
	if g.cfg.EnhanceEndpoint != "" {
		opts = append(opts, enhance.WithEndpoint(g.cfg.EnhanceEndpoint))
	}
	if g.enhanceClient != nil {
		opts = append(opts, enhance.WithHTTPClient(g.enhanceClient))
	}
	if g.prompt != nil {
		opts = append(opts, enhance.WithPrompt(g.prompt))
	}

	e, err := enhance.NewGeminiEnhancer(g.apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create enhancer: %w", err)
	}
	return e, nil
}

// handleRun writes the outputs of one finished run, prints its summary and
// stores it in the history. The returned error marks the origin as failed.
func (g *generator) handleRun(ctx context.Context, run *model.Run, index int) error {
	cfg := g.cfg

	if run.Error != nil {
		g.logger.Error("generation failed", "origin", run.Origin, "error", run.Error)
		fmt.Fprintf(g.errOut, "Error: %s: %v\n", cfg.Origins[index], run.Error)
		return run.Error
	}
	if run.SiteMap == nil || len(run.Pages) == 0 {
		if run.TimedOut {
			return nil
		}
		fmt.Fprintf(g.errOut, "Error: %s: %v\n", cfg.Origins[index], errNoPages)
		return errNoPages
	}

	if cfg.Stdout {
		if _, err := report.NewMarkdownWriter(g.out).Write(run); err != nil {
			return fmt.Errorf("failed to write document: %w", err)
		}
	} else {
		dir := outputDirFor(cfg.OutputDir, cfg.Origins[index], len(cfg.Origins) > 1)
		paths, err := g.writeOutputs(dir, run)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(g.out, "Wrote %s\n", p)
		}
	}

	if run.EnhanceError != "" {
		fmt.Fprintf(g.errOut, "Warning: enhancement failed for %s, the plain site map was written: %s\n",
			run.Origin, run.EnhanceError)
	}

	if _, err := report.NewSimpleWriter(g.summaryOut(), report.WithVerbose(cfg.Verbose)).Write(run); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if err := g.saveRun(ctx, run); err != nil {
		// History is optional; a failure never invalidates the written files.
		g.logger.Error("failed to save run", "origin", run.Origin, "error", err)
		fmt.Fprintf(g.errOut, "Warning: %v\n", err)
	}
	return nil
}

// summaryOut is where human-readable summaries go. With --stdout the
// document owns stdout, so summaries move to stderr.
func (g *generator) summaryOut() io.Writer {
	if g.cfg.Stdout {
		return g.errOut
	}
	return g.out
}

// writeOutputs writes llms.txt and the optional files for run into dir
// and returns the written paths.
func (g *generator) writeOutputs(dir string, run *model.Run) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	type output struct {
		name   string
		writer func(io.Writer) report.Writer
	}
	outputs := []output{
		{llmsFileName, func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w)
		}},
	}
	if g.cfg.WriteFull {
		outputs = append(outputs, output{llmsFullFileName, func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w, report.WithFromSiteMap(), report.WithDescriptions(true))
		}})
	}
	if g.cfg.WriteJSON {
		outputs = append(outputs, output{siteMapFileName, func(w io.Writer) report.Writer {
			return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
		}})
	}

	files := make([]*os.File, 0, len(outputs))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	writers := make([]report.Writer, 0, len(outputs))
	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		// llms.txt is meant to be published, so it is world readable.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // published file
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		files = append(files, f)
		writers = append(writers, o.writer(f))
		paths = append(paths, path)
	}

	if _, err := report.NewMultiWriter(writers...).Write(run); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	for _, f := range files {
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close %s: %w", f.Name(), err)
		}
	}
	files = files[:0]
	return paths, nil
}

// saveRun stores run in the history database when enabled.
// Interrupted runs are not stored; their page list would show up as
// removed pages in the next diff.
func (g *generator) saveRun(ctx context.Context, run *model.Run) error {
	if g.db == nil || run.TimedOut {
		return nil
	}
	id, err := g.db.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to save run to history: %w", err)
	}
	g.logger.Info("run saved to history", "origin", run.Origin, "id", id)
	return nil
}

// outputDirFor returns the directory for an origin's files. A single
// origin writes into base; several origins get one sub directory each,
// named after host and path so that two sections of one site do not
// overwrite each other.
func outputDirFor(base, origin string, multi bool) string {
	if !multi {
		return base
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return filepath.Join(base, sanitizeDirName(origin))
	}
	return filepath.Join(base, sanitizeDirName(strings.ToLower(u.Host)+u.Path))
}

// checkOutputDirs rejects origins whose files would land in the same
// directory, so one origin never silently replaces another's llms.txt.
func checkOutputDirs(cfg *config.Config) error {
	if cfg.Stdout || len(cfg.Origins) < 2 {
		return nil
	}
	owners := make(map[string]string, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		dir := outputDirFor(cfg.OutputDir, origin, true)
		if prev, ok := owners[dir]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", errOutputDirConflict, prev, origin, dir)
		}
		owners[dir] = origin
	}
	return nil
}

// sanitizeDirName maps characters that are awkward in directory names to "_".
func sanitizeDirName(s string) string {
	s = strings.NewReplacer(":", "_", "/", "_", "?", "_", "*", "_", "\\", "_").Replace(s)
	return strings.Trim(s, "_")
}

// resolveAPIKey reads the Gemini API key from envName. When it is unset
// and in is a terminal, the key is read from the terminal without echo.
func resolveAPIKey(envName string, in io.Reader, prompt io.Writer) string {
	if key := strings.TrimSpace(os.Getenv(envName)); key != "" {
		return key
	}

	f, ok := in.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return ""
	}

	fmt.Fprintf(prompt, "%s is not set. Enter a Gemini API key (leave empty to skip enhancement): ", envName)
	key, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // file descriptors fit in int
	fmt.Fprintln(prompt)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(key))
}
