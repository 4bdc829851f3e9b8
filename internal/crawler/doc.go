// Package crawler implements the single-domain breadth-first crawl engine.
//
// # Components
//
//   - Domain / SameDomain: the domain scoper used to keep traversal on the
//     seed's host
//   - HTTPFetcher: one GET per page with a fixed pause before every request,
//     a per-request timeout and a descriptive User-Agent
//   - Parser / ExtractLinks: resolves every <a href> to an absolute URL
//   - Spider: the BFS loop bounded by a maximum number of discovered links
//
// # Traversal
//
// The frontier is a FIFO queue seeded with exactly the seed URL. Each
// dequeued URL is fetched once; links on the page that share the seed's
// domain and were not seen before are recorded and enqueued, until the
// discovery cap is reached. The seed itself is never recorded unless a page
// links back to it. A failed fetch of any page other than the seed is
// skipped silently; a failed seed fetch aborts the crawl with
// ErrSeedUnreachable.
//
// # Usage
//
//	spider := crawler.NewSpider(nil, crawler.WithLogger(logger))
//	links, err := spider.Crawl(ctx, "http://example.com/", 10)
package crawler
