package model

// StopReason describes why a crawl ended.
type StopReason string

const (
	// StopQueueExhausted means every reachable in-scope URL was visited.
	StopQueueExhausted StopReason = "queue_exhausted"

	// StopBudgetExhausted means the max-pages budget was reached.
	StopBudgetExhausted StopReason = "budget_exhausted"

	// StopCancelled means the crawl was interrupted by its context.
	StopCancelled StopReason = "cancelled"
)

// CrawlStats holds counters collected during a crawl.
//
// Design decision: Failures are counted rather than returned because a
// single page failing must never abort the crawl. The counters are the
// only place the error taxonomy becomes visible to the user.
type CrawlStats struct {
	// Fetched is the number of pages recorded.
	Fetched int `json:"fetched"`

	// FetchFailed counts network errors, timeouts and body read failures.
	FetchFailed int `json:"fetch_failed"`

	// StatusSkipped counts responses whose status was not 200.
	StatusSkipped int `json:"status_skipped"`

	// ScopeRejected counts discovered links that failed the scope filter.
	ScopeRejected int `json:"scope_rejected"`

	// Duplicates counts discovered links that were already known.
	Duplicates int `json:"duplicates"`

	// ParseDegraded counts pages whose markup could only be partially parsed.
	ParseDegraded int `json:"parse_degraded"`

	// StopReason tells why the crawl ended.
	StopReason StopReason `json:"stop_reason"`
}

// Failures returns the number of URLs that were attempted but not recorded.
func (s CrawlStats) Failures() int {
	return s.FetchFailed + s.StatusSkipped
}
