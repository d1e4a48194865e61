package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/llmsgen/internal/config"
	"github.com/nao1215/llmsgen/internal/crawler"
	"github.com/nao1215/llmsgen/internal/enhance"
	"github.com/nao1215/llmsgen/internal/model"
	"github.com/nao1215/llmsgen/internal/report"
	"github.com/nao1215/llmsgen/internal/sitemap"
)

// Step names.
const (
	StepCrawl   = "crawl"
	StepBuild   = "build"
	StepEnhance = "enhance"
)

// CrawlStep discovers the pages of the run's origin.
//
// Design decision: crawling is separate from building so that the build
// step can still run on a partial result after cancellation.
type CrawlStep struct {
	// client is the HTTP client shared by every fetch.
	client *http.Client

	// maxPages limits total pages to record.
	maxPages int

	// delay between fetch starts for politeness.
	delay time.Duration

	// workers is the number of concurrent fetches.
	workers int

	// timeout bounds each fetch.
	timeout time.Duration

	// userAgent is the User-Agent header sent with requests.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// excluded overrides the default excluded extensions when non-nil.
	excluded []string

	// progress receives crawl progress, if set.
	progress func(crawler.Progress)

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the delay between fetch starts.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlWorkers sets the number of concurrent fetches.
func WithCrawlWorkers(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.workers = n
	}
}

// WithCrawlTimeout sets the per-request timeout.
func WithCrawlTimeout(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.timeout = d
	}
}

// WithCrawlUserAgent sets the User-Agent header for crawl requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlExcludeExtensions replaces the excluded extension list.
func WithCrawlExcludeExtensions(exts []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.excluded = exts
	}
}

// WithCrawlProgress registers a progress callback.
func WithCrawlProgress(fn func(crawler.Progress)) CrawlStepOption {
	return func(s *CrawlStep) {
		s.progress = fn
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawl step.
//
// Default values:
//   - maxPages: config.DefaultMaxPages
//   - delay: config.DefaultCrawlDelay
//   - workers: config.DefaultWorkers
//   - timeout: config.DefaultTimeout
//   - userAgent: config.DefaultUserAgent
//   - maxBodySize: config.DefaultMaxBodySize
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		maxPages:    config.DefaultMaxPages,
		delay:       config.DefaultCrawlDelay,
		workers:     config.DefaultWorkers,
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do crawls run.Origin and stores the recorded pages in run.
// A cancelled crawl is not an error here: its partial pages are kept and
// the pipeline reports the cancellation.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	fetcher := crawler.NewFetcher(s.client,
		crawler.WithTimeout(s.timeout),
		crawler.WithUserAgent(s.userAgent),
		crawler.WithMaxBodySize(s.maxBodySize),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithWorkers(s.workers),
		crawler.WithLogger(s.logger),
	}
	if s.excluded != nil {
		spiderOpts = append(spiderOpts, crawler.WithExcludeExtensions(s.excluded))
	}
	if s.progress != nil {
		spiderOpts = append(spiderOpts, crawler.WithProgress(s.progress))
	}

	result, err := crawler.NewSpider(fetcher, spiderOpts...).Crawl(ctx, run.Origin)
	if result == nil {
		return err
	}

	run.Origin = result.Origin
	run.Pages = result.Pages
	run.Stats = result.Stats

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// BuildStep groups the recorded pages into a site map and renders the
// llms.txt document.
type BuildStep struct {
	// siteName is the H1 title. Derived from the origin when empty.
	siteName string

	// summary overrides the default blockquote line.
	summary string

	// descriptions appends page descriptions to links.
	descriptions bool

	// now supplies GeneratedAt.
	now func() time.Time
}

// BuildStepOption configures a BuildStep.
type BuildStepOption func(*BuildStep)

// WithBuildSiteName sets the site title.
func WithBuildSiteName(name string) BuildStepOption {
	return func(s *BuildStep) {
		s.siteName = name
	}
}

// WithBuildSummary sets the summary line.
func WithBuildSummary(summary string) BuildStepOption {
	return func(s *BuildStep) {
		s.summary = summary
	}
}

// WithBuildDescriptions enables page descriptions in the document.
func WithBuildDescriptions(enabled bool) BuildStepOption {
	return func(s *BuildStep) {
		s.descriptions = enabled
	}
}

// WithBuildClock sets the clock used for the site map timestamp.
func WithBuildClock(now func() time.Time) BuildStepOption {
	return func(s *BuildStep) {
		s.now = now
	}
}

// NewBuildStep creates a new build step.
func NewBuildStep(opts ...BuildStepOption) *BuildStep {
	s := &BuildStep{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *BuildStep) Name() string {
	return StepBuild
}

// Offline reports that building never touches the network.
func (s *BuildStep) Offline() bool {
	return true
}

// Do builds run.SiteMap and run.Document from run.Pages.
// A run without pages still gets a document with the title and summary.
func (s *BuildStep) Do(_ context.Context, run *model.Run) error {
	name := s.siteName
	if name == "" {
		name = run.SiteName
	}
	if name == "" {
		name = sitemap.DeriveSiteName(run.Origin)
	}
	run.SiteName = name

	opts := []sitemap.Option{sitemap.WithClock(s.now)}
	if s.summary != "" {
		opts = append(opts, sitemap.WithSummary(s.summary))
	}
	run.SiteMap = sitemap.Build(run.Pages, name, run.Origin, opts...)
	run.Document = report.Render(run.SiteMap, report.WithDescriptions(s.descriptions))
	return nil
}

// EnhanceStep rewrites the core document with an LLM.
//
// Design decision: Enhancement failures never fail the run. The core
// document is always a valid llms.txt, so any enhancer error is recorded
// in run.EnhanceError and the core document stays the output.
type EnhanceStep struct {
	enhancer enhance.Enhancer
	logger   *slog.Logger
}

// EnhanceStepOption configures an EnhanceStep.
type EnhanceStepOption func(*EnhanceStep)

// WithEnhanceLogger sets a custom logger for the enhance step.
func WithEnhanceLogger(logger *slog.Logger) EnhanceStepOption {
	return func(s *EnhanceStep) {
		s.logger = logger
	}
}

// NewEnhanceStep creates a new enhance step using enhancer.
func NewEnhanceStep(enhancer enhance.Enhancer, opts ...EnhanceStepOption) *EnhanceStep {
	s := &EnhanceStep{
		enhancer: enhancer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *EnhanceStep) Name() string {
	return StepEnhance
}

// Do sets run.Enhanced, or run.EnhanceError when the enhancer fails.
func (s *EnhanceStep) Do(ctx context.Context, run *model.Run) error {
	if s.enhancer == nil {
		return nil
	}
	if run.Document == "" || run.SiteMap == nil || run.SiteMap.PageCount() == 0 {
		s.logger.Debug("skipping enhancement, no pages", "origin", run.Origin)
		return nil
	}

	enhanced, err := s.enhancer.Enhance(ctx, run.Document)
	if err != nil {
		run.EnhanceError = err.Error()
		s.logger.Warn("enhancement failed, using core document",
			"origin", run.Origin,
			"error", err,
		)
		return nil
	}
	run.Enhanced = enhanced
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// SiteName is the H1 title. Derived from the origin when empty.
	SiteName string

	// MaxPages is the crawl page budget.
	MaxPages int

	// CrawlDelay is the pacing interval between fetch starts.
	CrawlDelay time.Duration

	// Workers is the number of concurrent fetches.
	Workers int

	// Timeout bounds each fetch.
	Timeout time.Duration

	// ExcludeExtensions overrides the excluded extensions when non-nil.
	ExcludeExtensions []string

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Descriptions appends page descriptions to links in llms.txt.
	Descriptions bool

	// Enhancer rewrites the document. Nil skips enhancement.
	Enhancer enhance.Enhancer

	// Progress receives crawl progress, if set.
	Progress func(crawler.Progress)
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineSiteName sets the site title.
func WithPipelineSiteName(name string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SiteName = name
	}
}

// WithPipelineMaxPages sets the maximum pages to crawl.
func WithPipelineMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = maxPages
	}
}

// WithPipelineCrawlDelay sets the delay between fetch starts.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDelay = delay
	}
}

// WithPipelineWorkers sets the number of concurrent fetches.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Workers = n
	}
}

// WithPipelineTimeout sets the per-request timeout.
func WithPipelineTimeout(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Timeout = d
	}
}

// WithPipelineExcludeExtensions replaces the excluded extension list.
func WithPipelineExcludeExtensions(exts []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ExcludeExtensions = exts
	}
}

// WithPipelineUserAgent sets the User-Agent header for requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineDescriptions enables page descriptions in llms.txt.
func WithPipelineDescriptions(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Descriptions = enabled
	}
}

// WithPipelineEnhancer sets the enhancer. Nil disables enhancement.
func WithPipelineEnhancer(e enhance.Enhancer) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Enhancer = e
	}
}

// WithPipelineProgress registers a crawl progress callback.
func WithPipelineProgress(fn func(crawler.Progress)) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Progress = fn
	}
}

// DefaultPipeline creates the crawl, build and enhance pipeline.
//
// The enhance step is only added when an enhancer is configured.
func DefaultPipeline(client *http.Client, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		MaxPages:    config.DefaultMaxPages,
		CrawlDelay:  config.DefaultCrawlDelay,
		Workers:     config.DefaultWorkers,
		Timeout:     config.DefaultTimeout,
		UserAgent:   config.DefaultUserAgent,
		MaxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	crawlOpts := []CrawlStepOption{
		WithCrawlMaxPages(cfg.MaxPages),
		WithCrawlDelay(cfg.CrawlDelay),
		WithCrawlWorkers(cfg.Workers),
		WithCrawlTimeout(cfg.Timeout),
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
		WithCrawlLogger(p.logger),
	}
	if cfg.ExcludeExtensions != nil {
		crawlOpts = append(crawlOpts, WithCrawlExcludeExtensions(cfg.ExcludeExtensions))
	}
	if cfg.Progress != nil {
		crawlOpts = append(crawlOpts, WithCrawlProgress(cfg.Progress))
	}

	p.AddSteps(
		NewCrawlStep(client, crawlOpts...),
		NewBuildStep(
			WithBuildSiteName(cfg.SiteName),
			WithBuildDescriptions(cfg.Descriptions),
		),
	)
	if cfg.Enhancer != nil {
		p.AddStep(NewEnhanceStep(cfg.Enhancer, WithEnhanceLogger(p.logger)))
	}

	return p
}

// describe is used in batch logs.
func describe(run *model.Run) string {
	if run.SiteMap == nil {
		return fmt.Sprintf("%d pages", len(run.Pages))
	}
	return fmt.Sprintf("%d pages in %d sections", run.SiteMap.PageCount(), len(run.SiteMap.Sections))
}
