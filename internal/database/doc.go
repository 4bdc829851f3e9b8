// Package database provides SQLite-based storage for linkharvest.
//
// CrawlDB stores:
//   - the per-domain link store (it implements linkstore.Store)
//   - one row per crawl run, with the links that run found to be new
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file next to the JSON link store and the binary
// cross-compiles without a C toolchain.
package database
