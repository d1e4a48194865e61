// Package sitemap groups crawled pages into an ordered site map.
//
// Pages are partitioned by the first non-empty segment of their URL path.
// Pages with an empty path go to the reserved "Home" section, which always
// comes first; the remaining sections are sorted by key. Inside a section,
// pages are ordered by URL length so that shorter, higher-level URLs come
// first, with ties kept in crawl order.
//
// Build is deterministic: the same pages, title and clock always produce
// the same SiteMap.
package sitemap
