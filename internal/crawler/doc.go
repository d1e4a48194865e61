// Package crawler discovers the pages of a single website.
//
// # Architecture
//
// The Spider coordinates the crawl. It pops URLs from a Frontier, hands
// them to a pool of workers that fetch and parse them, and folds the
// results back into the Frontier and a PageStore on one goroutine.
//
// Design decision: the crawl loop is our own rather than a framework's.
// The at-most-once and budget guarantees have to be exact, and scope is a
// plain string prefix that crawling frameworks do not model.
//
// # Components
//
//   - ScopeFilter: pure predicate for origin prefix and extension denylist
//   - Parser: goquery based extraction of title, description and links
//   - Fetcher: bounded-timeout GET returning status and body
//   - Frontier: FIFO queue plus queued, in-flight and visited sets
//   - PageStore: ordered record of successfully fetched pages
//   - Spider: the breadth-first loop tying everything together
//
// # Failure Handling
//
// No single page can abort a crawl. Network errors, non-200 responses and
// unparseable markup are counted in model.CrawlStats and the URL is
// dropped. A failed URL is not marked visited, so it is retried if another
// page links to it later.
//
// # Politeness
//
// Fetch starts are paced with a token bucket from golang.org/x/time/rate.
// With the default of one worker the crawl is strictly sequential.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(httpClient, crawler.WithTimeout(10*time.Second))
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxPages(150))
//	result, err := spider.Crawl(ctx, "https://example.com/")
package crawler
