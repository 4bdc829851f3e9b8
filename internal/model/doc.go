// Package model defines the core data structures used throughout linkharvest.
//
// This package contains the following main types:
//   - LinkSet: A set of URLs with deterministic, sorted output
//   - Links: The persisted mapping from domain to every link ever discovered
//   - CrawlResult: The outcome of a single crawl, either success or failure
//   - CrawlRun: One historical crawl as recorded in the crawl database
//
// Models live in their own package because the crawler, link store, database,
// report and web packages all share them.
package model
