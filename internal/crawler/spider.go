package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Default spider settings.
const (
	// DefaultMaxPages is the page budget when none is configured.
	DefaultMaxPages = 150

	// DefaultDelay is the pacing interval between fetch starts.
	DefaultDelay = 200 * time.Millisecond

	// DefaultWorkers is the number of concurrent fetches.
	DefaultWorkers = 1
)

// Spider crawls a single site breadth-first within an origin prefix.
//
// A Spider holds configuration only; all per-crawl state lives inside
// Crawl, so one Spider can crawl several origins one after another.
type Spider struct {
	// fetcher retrieves pages. Usually a *Fetcher.
	fetcher PageFetcher

	// maxPages limits the number of recorded pages.
	maxPages int

	// delay is the minimum interval between two fetch starts.
	delay time.Duration

	// workers is the number of fetches allowed in flight at once.
	workers int

	// excluded lists path extensions that are never crawled.
	excluded []string

	// logger receives per-page diagnostics.
	logger *slog.Logger

	// progress is called after every fetch outcome, if set.
	progress func(Progress)
}

// Progress is a snapshot reported while crawling.
type Progress struct {
	// URL is the URL whose fetch just finished.
	URL string

	// Recorded is the number of pages recorded so far.
	Recorded int

	// MaxPages is the page budget.
	MaxPages int

	// Queued is the number of URLs waiting in the frontier.
	Queued int

	// Err is set when the fetch failed.
	Err error
}

// Result is the outcome of a crawl.
type Result struct {
	// Origin is the normalized origin the crawl was scoped to.
	Origin string

	// Pages holds recorded pages in the order their fetch succeeded.
	Pages []model.Page

	// Stats holds crawl counters.
	Stats model.CrawlStats
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the maximum number of pages to record.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the pacing interval between fetch starts.
// Zero disables pacing.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithWorkers sets how many fetches may be in flight at once.
// With one worker, pages are visited in exact breadth-first order.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithExcludeExtensions replaces the excluded extension list.
func WithExcludeExtensions(exts []string) SpiderOption {
	return func(s *Spider) {
		s.excluded = exts
	}
}

// WithLogger sets the logger used for per-page diagnostics.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithProgress registers a callback invoked after every fetch outcome.
// It is called from the coordinating goroutine, never concurrently.
func WithProgress(fn func(Progress)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// NewSpider creates a new Spider that retrieves pages through fetcher.
func NewSpider(fetcher PageFetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		maxPages: DefaultMaxPages,
		delay:    DefaultDelay,
		workers:  DefaultWorkers,
		excluded: DefaultExcludedExtensions,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// visitResult is what a worker reports back for one URL.
type visitResult struct {
	url      string
	page     model.Page
	links    []string
	degraded bool
	err      error
}

// Crawl visits pages breadth-first from origin until the frontier is empty
// or the page budget is reached.
//
// The only error returned for a started crawl is the context's error; in
// that case the result still holds every page recorded before cancellation.
// An origin that is not an absolute http(s) URL fails before any request.
//
// Workers only fetch and parse. Frontier and store mutations happen on
// the calling goroutine, so the visited set has a single writer and one
// worker visits URLs in plain FIFO order.
func (s *Spider) Crawl(ctx context.Context, origin string) (*Result, error) {
	o, err := model.NewOrigin(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}

	filter := NewScopeFilter(o.String(), s.excluded)
	frontier := NewFrontier(o.String())
	store := NewPageStore()
	stats := model.CrawlStats{}

	var limiter *rate.Limiter
	if s.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}

	jobs := make(chan string, s.workers)
	results := make(chan visitResult, s.workers)

	var g errgroup.Group
	for range s.workers {
		g.Go(func() error {
			for u := range jobs {
				results <- s.visit(ctx, u)
			}
			return nil
		})
	}

	inflight := 0
	for {
		for inflight < s.workers && frontier.Visited()+inflight < s.maxPages && ctx.Err() == nil {
			u, ok := s.next(frontier, filter)
			if !ok {
				break
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					frontier.Release(u)
					break
				}
			}
			s.logger.Debug("fetching page", "url", u)
			inflight++
			jobs <- u
		}

		if inflight == 0 {
			break
		}

		res := <-results
		inflight--
		s.apply(res, frontier, filter, store, &stats)
	}

	close(jobs)
	_ = g.Wait()

	switch {
	case ctx.Err() != nil:
		stats.StopReason = model.StopCancelled
	case frontier.Visited() >= s.maxPages:
		stats.StopReason = model.StopBudgetExhausted
	default:
		stats.StopReason = model.StopQueueExhausted
	}

	result := &Result{
		Origin: o.String(),
		Pages:  store.Pages(),
		Stats:  stats,
	}

	s.logger.Info("crawl finished",
		"origin", result.Origin,
		"pages", len(result.Pages),
		"failed", stats.Failures(),
		"stop_reason", stats.StopReason,
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// next pops URLs until one can be fetched and marks it in flight.
// Visited and out-of-scope URLs are discarded.
func (s *Spider) next(frontier *Frontier, filter *ScopeFilter) (string, bool) {
	for {
		u, ok := frontier.Pop()
		if !ok {
			return "", false
		}
		if !filter.InScope(u) {
			continue
		}
		if frontier.Begin(u) {
			return u, true
		}
	}
}

// visit fetches and parses one URL. It runs on a worker goroutine and
// must not touch shared crawl state.
func (s *Spider) visit(ctx context.Context, u string) visitResult {
	resp, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return visitResult{url: u, err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return visitResult{url: u, err: &FetchError{
			URL:        u,
			Kind:       FetchStatus,
			StatusCode: resp.StatusCode,
			Err:        ErrNonOKStatus,
		}}
	}

	parser, err := NewParser(u)
	if err != nil {
		return visitResult{url: u, err: &FetchError{URL: u, Kind: FetchNetwork, Err: err}}
	}
	parsed := parser.Parse(resp.Body, resp.ContentType)

	return visitResult{
		url:      u,
		page:     model.NewPage(u, parsed.Title, parsed.Description),
		links:    parsed.Links,
		degraded: parsed.Degraded,
	}
}

// apply folds a worker result into the frontier, store and stats.
func (s *Spider) apply(res visitResult, frontier *Frontier, filter *ScopeFilter, store *PageStore, stats *model.CrawlStats) {
	if res.err != nil {
		frontier.Release(res.url)
		if IsStatusError(res.err) {
			stats.StatusSkipped++
		} else {
			stats.FetchFailed++
		}
		s.logger.Info("skipping page", "url", res.url, "error", res.err)
		s.report(res.url, store, frontier, res.err)
		return
	}

	frontier.Complete(res.url)
	if store.Add(res.page) {
		stats.Fetched++
	}
	if res.degraded {
		stats.ParseDegraded++
		s.logger.Debug("degraded parse", "url", res.url)
	}

	for _, link := range res.links {
		if !filter.InScope(link) {
			stats.ScopeRejected++
			continue
		}
		if !frontier.Push(link) {
			stats.Duplicates++
		}
	}

	s.logger.Debug("page recorded", "url", res.url, "title", res.page.Title, "links", len(res.links))
	s.report(res.url, store, frontier, nil)
}

// report invokes the progress callback, if any.
func (s *Spider) report(u string, store *PageStore, frontier *Frontier, err error) {
	if s.progress == nil {
		return
	}
	s.progress(Progress{
		URL:      u,
		Recorded: store.Len(),
		MaxPages: s.maxPages,
		Queued:   frontier.Len(),
		Err:      err,
	})
}
