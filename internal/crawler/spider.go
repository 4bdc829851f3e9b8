package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/linkharvest/internal/model"
)

// Observer receives crawl events. Implementations must be safe for
// concurrent use when one Observer is shared between spiders.
type Observer interface {
	// PageFetched is called after a page was fetched successfully.
	PageFetched(pageURL string, elapsed time.Duration)

	// PageFailed is called when a fetch failed and the page was skipped.
	PageFailed(pageURL string, err error)

	// LinkDiscovered is called when a new same-domain link is recorded.
	LinkDiscovered(link string)
}

// Spider crawls a single domain breadth first.
// It holds no per-crawl state besides statistics, so one Spider may run
// crawls sequentially; use one Spider per goroutine for concurrent crawls.
type Spider struct {
	// client is the HTTP client used by the default fetcher.
	client *http.Client

	// fetcher retrieves pages. Built from the fields below when nil.
	fetcher Fetcher

	// delay is the pause before every fetch.
	delay time.Duration

	// timeout bounds a single fetch.
	timeout time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// singlePage stops the crawl after the seed page's links are recorded.
	singlePage bool

	logger   *slog.Logger
	observer Observer

	// mutex protects stats.
	mutex sync.Mutex
	stats SpiderStats
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the pause taken before every fetch.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSinglePage limits the crawl to the links found on the seed page.
func WithSinglePage(single bool) SpiderOption {
	return func(s *Spider) {
		s.singlePage = single
	}
}

// WithLogger sets the logger for crawl events.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithObserver registers an Observer for crawl events.
func WithObserver(o Observer) SpiderOption {
	return func(s *Spider) {
		s.observer = o
	}
}

// WithFetcher replaces the HTTP fetcher. The delay, timeout, User-Agent and
// body size options are then up to f.
func WithFetcher(f Fetcher) SpiderOption {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// NewSpider creates a Spider. A nil client means http.DefaultClient.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		delay:       DefaultDelay,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fetcher == nil {
		s.fetcher = &HTTPFetcher{
			Client:      s.client,
			Delay:       s.delay,
			Timeout:     s.timeout,
			UserAgent:   s.userAgent,
			MaxBodySize: s.maxBodySize,
		}
	}

	return s
}

// Crawl traverses the seed's domain breadth first and returns up to maxLinks
// discovered same-domain URLs in ascending lexicographic order.
//
// Failures of pages other than the seed are skipped. If ctx is cancelled the
// links discovered so far are returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seedURL string, maxLinks int) ([]string, error) {
	if maxLinks <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxLinks, maxLinks)
	}
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if seed.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidSeed, seedURL)
	}

	s.resetStats()

	targetDomain := seed.Host
	visited := model.NewLinkSet()
	discovered := model.NewLinkSet()
	frontier := []string{seedURL}

	s.logger.Debug("crawl started", "seed", seedURL, "domain", targetDomain, "max_links", maxLinks)

	for len(frontier) > 0 && discovered.Len() < maxLinks {
		current := frontier[0]
		frontier = frontier[1:]

		if visited.Has(current) {
			continue
		}

		body, err := s.fetch(ctx, current)
		if err != nil {
			if current == seedURL && visited.Len() == 0 {
				return nil, fmt.Errorf("%w: %w", ErrSeedUnreachable, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return discovered.Sorted(), ctxErr
			}
			continue
		}
		visited.Add(current)

		for _, link := range ExtractLinks(body, current) {
			if discovered.Len() >= maxLinks {
				break
			}
			if Domain(link) != targetDomain {
				continue
			}
			if discovered.Add(link) {
				frontier = append(frontier, link)
				s.linkDiscovered(link)
			}
		}

		if s.singlePage {
			break
		}
	}

	result := discovered.Sorted()
	if len(result) > maxLinks {
		result = result[:maxLinks]
	}

	stats := s.Stats()
	s.logger.Debug("crawl finished",
		"seed", seedURL,
		"discovered", len(result),
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed)

	return result, nil
}

// fetch retrieves one page and records the outcome.
func (s *Spider) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.mutex.Lock()
		s.stats.PagesFailed++
		s.mutex.Unlock()

		if !errors.Is(err, context.Canceled) {
			s.logger.Debug("skipping page", "url", pageURL, "error", err)
		}
		if s.observer != nil {
			s.observer.PageFailed(pageURL, err)
		}
		return nil, err
	}

	elapsed := time.Since(start)
	s.mutex.Lock()
	s.stats.PagesFetched++
	s.mutex.Unlock()

	s.logger.Debug("fetched page", "url", pageURL, "bytes", len(body), "elapsed", elapsed)
	if s.observer != nil {
		s.observer.PageFetched(pageURL, elapsed)
	}
	return body, nil
}

func (s *Spider) linkDiscovered(link string) {
	s.mutex.Lock()
	s.stats.LinksDiscovered++
	s.mutex.Unlock()

	if s.observer != nil {
		s.observer.LinkDiscovered(link)
	}
}

func (s *Spider) resetStats() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = SpiderStats{}
}

// Stats returns statistics for the most recent crawl.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesFetched is the number of pages successfully fetched.
	PagesFetched int

	// PagesFailed is the number of fetches that failed and were skipped.
	PagesFailed int

	// LinksDiscovered is the number of same-domain links recorded.
	LinksDiscovered int
}
