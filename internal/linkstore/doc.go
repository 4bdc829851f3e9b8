// Package linkstore persists, per domain, every link ever discovered.
//
// A Store is loaded once before a crawl and saved once after it; Save always
// writes the complete mapping. Merge computes which discovered links are new
// and the union to write back. Load, merge and save are not atomic against a
// concurrent crawl of the same domain, so callers serialize crawls per domain
// (see pipeline.DomainLock).
//
// Backends:
//   - FileStore: one JSON object {"domain": ["url", ...]}, replaced atomically
//   - RedisStore: one Redis set per domain
//   - database.CrawlDB: SQLite, alongside the crawl history
package linkstore
