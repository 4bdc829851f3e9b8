package model

import "time"

// CrawlResult is the outcome of crawling one seed URL.
//
// A result is either a success, carrying the discovered and new links, or a
// failure, carrying the reason in Err. Partial crawls where some pages could
// not be fetched are still successes.
type CrawlResult struct {
	// RunID identifies the crawl in the history database.
	RunID string `json:"run_id"`

	// Seed is the normalized seed URL the crawl started from.
	Seed string `json:"seed"`

	// Domain is the host component of Seed. Only links under this domain
	// are followed and recorded.
	Domain string `json:"domain"`

	// MaxLinks is the discovery cap the crawl ran with.
	MaxLinks int `json:"max_links"`

	// Discovered holds every same-domain link found, sorted ascending.
	Discovered []string `json:"discovered"`

	// NewLinks holds the discovered links that were not in the link store
	// before this crawl, sorted ascending.
	NewLinks []string `json:"new_links"`

	// KnownLinks is the size of the domain's link set after merging.
	KnownLinks int `json:"known_links"`

	// PagesFetched counts successful fetches.
	PagesFetched int `json:"pages_fetched"`

	// PagesFailed counts fetches that were skipped because they failed.
	PagesFailed int `json:"pages_failed"`

	// StartedAt and FinishedAt bracket the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Err is the reason a crawl failed. Nil on success.
	Err error `json:"-"`

	// Error is the string form of Err for serialization.
	Error string `json:"error,omitempty"`
}

// NewCrawlResult creates a result for the given seed and cap.
func NewCrawlResult(seed string, maxLinks int) *CrawlResult {
	return &CrawlResult{
		Seed:       seed,
		MaxLinks:   maxLinks,
		Discovered: []string{},
		NewLinks:   []string{},
		StartedAt:  time.Now(),
	}
}

// Fail records err as the reason the crawl failed.
func (r *CrawlResult) Fail(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Succeeded reports whether the crawl completed without a failure.
func (r *CrawlResult) Succeeded() bool {
	return r.Err == nil && r.Error == ""
}

// Duration returns how long the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
