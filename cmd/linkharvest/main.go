// Package main provides the entry point for the linkharvest CLI.
//
// linkharvest crawls a single website breadth first, remembers every link it
// has found per domain, and reports the links that are new since the last
// crawl.
//
// Usage:
//
//	linkharvest crawl <url>
//	linkharvest serve
//	linkharvest history
//
// See --help for all available options.
package main

import (
	"context"
	"os"
	"syscall"

	"charm.land/fang/v2"
)

// main is the entry point for linkharvest.
func main() {
	if err := fang.Execute(
		context.Background(),
		NewRootCmd(),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
