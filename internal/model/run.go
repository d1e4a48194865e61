package model

import "time"

// Run is the result of processing one origin in one invocation.
// It is filled in step by step by the pipeline and is what report writers
// and the history database consume.
//
// Pipeline steps share one Run and each fills in its part; the JSON
// report and the history database both serialize from it.
type Run struct {
	// === Input ===

	// Origin is the URL the crawl started from.
	Origin string `json:"origin"`

	// SiteName is the title used for the H1 heading.
	SiteName string `json:"site_name"`

	// StartedAt is when processing of this origin began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when processing of this origin ended.
	FinishedAt time.Time `json:"finished_at"`

	// === Crawl ===

	// Pages holds recorded pages in crawl order.
	Pages []Page `json:"pages"`

	// Stats holds crawl counters.
	Stats CrawlStats `json:"stats"`

	// === Output ===

	// SiteMap is the grouped site structure. Nil until the build step runs.
	SiteMap *SiteMap `json:"site_map,omitempty"`

	// Document is the llms.txt document rendered from SiteMap.
	Document string `json:"document,omitempty"`

	// Enhanced is the rewritten document returned by the enhancer.
	// Empty when enhancement was skipped or failed.
	Enhanced string `json:"enhanced,omitempty"`

	// EnhanceError describes why enhancement failed, if it did.
	EnhanceError string `json:"enhance_error,omitempty"`

	// === State ===

	// TimedOut is true if the run was interrupted before finishing.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that stopped the run.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRun creates a Run for the given origin.
func NewRun(origin string) *Run {
	return &Run{
		Origin:    origin,
		StartedAt: time.Now(),
	}
}

// FinalDocument returns the document that should be written as llms.txt.
// The enhanced version wins when present; otherwise the core document is used.
func (r *Run) FinalDocument() string {
	if r.Enhanced != "" {
		return r.Enhanced
	}
	return r.Document
}

// IsEnhanced reports whether the final document came from the enhancer.
func (r *Run) IsEnhanced() bool {
	return r.Enhanced != ""
}

// AddPerformedStep records a pipeline step that ran.
func (r *Run) AddPerformedStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// SetError records err on the run.
func (r *Run) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Duration returns how long the run took.
// Returns zero while the run is still in progress.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
