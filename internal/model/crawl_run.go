package model

import "time"

// CrawlRun is one crawl as recorded in the history database.
type CrawlRun struct {
	ID              string    `json:"id"`
	Seed            string    `json:"seed"`
	Domain          string    `json:"domain"`
	MaxLinks        int       `json:"max_links"`
	DiscoveredCount int       `json:"discovered_count"`
	NewCount        int       `json:"new_count"`
	PagesFetched    int       `json:"pages_fetched"`
	PagesFailed     int       `json:"pages_failed"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Error           string    `json:"error,omitempty"`

	// NewLinks is only populated when a single run is loaded with its links.
	NewLinks []string `json:"new_links,omitempty"`
}

// NewCrawlRun builds the history record for a finished crawl.
func NewCrawlRun(result *CrawlResult) *CrawlRun {
	return &CrawlRun{
		ID:              result.RunID,
		Seed:            result.Seed,
		Domain:          result.Domain,
		MaxLinks:        result.MaxLinks,
		DiscoveredCount: len(result.Discovered),
		NewCount:        len(result.NewLinks),
		PagesFetched:    result.PagesFetched,
		PagesFailed:     result.PagesFailed,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Error:           result.Error,
		NewLinks:        result.NewLinks,
	}
}

// Duration returns how long the run took.
func (r *CrawlRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
