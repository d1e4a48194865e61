// Package model defines the core data structures shared by the crawler,
// the site map builder, the report writers and the history database.
//
// # Key Types
//
//   - Page: a successfully fetched in-scope page (URL, title, description)
//   - Section: a named group of pages sharing a first path segment
//   - SiteMap: the grouped, ordered representation of a crawled site
//   - Run: everything produced for one origin during one invocation
//   - CrawlStats: counters describing how the crawl went
//
// Design decision: shared types live here rather than in the packages that
// produce them, since crawler, sitemap, report and database all need them
// and a dependency-free package cannot create import cycles.
package model
