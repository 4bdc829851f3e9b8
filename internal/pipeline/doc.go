// Package pipeline runs a crawl through its sequence of steps: load the link
// store, crawl the seed's domain, merge the discovered links into the store,
// save it, write the output artifact and record the run.
//
// Each step receives the Job of the crawl and may modify it. Final steps run
// after the main steps whether or not they failed, so failed crawls are still
// recorded in the history and metrics.
//
// Harvester builds the default pipeline for a seed and serializes crawls of
// the same domain with a DomainLock, because load, merge and save are not
// atomic against each other. The save step reloads the store and replaces
// only its own domain, so crawls of different domains may run concurrently.
// BatchProcessor crawls many seeds concurrently with errgroup.
package pipeline
