package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/linkharvest/internal/model"
	"golang.org/x/sync/errgroup"
)

// HarvestFunc crawls one seed. (*Harvester).Harvest satisfies it.
type HarvestFunc func(ctx context.Context, seed string, maxLinks int) (*model.CrawlResult, error)

// BatchProcessor handles concurrent harvesting of multiple seeds.
// It uses errgroup to manage goroutines and respect concurrency limits.
// Seeds of the same domain are still serialized by the Harvester.
type BatchProcessor struct {
	// harvest runs the pipeline for a single seed.
	harvest HarvestFunc

	// maxLinks is passed to every harvest. Zero means the configured cap.
	maxLinks int

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed crawl results.
	// Access is synchronized via mutex.
	results []*model.CrawlResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithMaxLinks sets the link cap for every seed in the batch.
func WithMaxLinks(n int) BatchOption {
	return func(b *BatchProcessor) {
		b.maxLinks = n
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(harvest HarvestFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		harvest:     harvest,
		concurrency: 4,
		results:     make([]*model.CrawlResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls multiple seeds concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Returns the results in seed order, including failed crawls. A seed that
// was never started because ctx was cancelled has a nil entry. The error is
// non-nil only when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlResult, error) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.mu.Lock()
	bp.results = make([]*model.CrawlResult, len(seeds))
	bp.mu.Unlock()

	err := bp.run(ctx, seeds, func(result *model.CrawlResult, index int) {
		bp.mu.Lock()
		bp.results[index] = result
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.results, err
}

// ProcessBatchWithCallback crawls multiple seeds and calls a callback
// for each completed crawl. This is useful for streaming results.
//
// The callback is called from the goroutine that completed the crawl, so it
// should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(result *model.CrawlResult, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	return bp.run(ctx, seeds, callback)
}

func (bp *BatchProcessor) run(
	ctx context.Context,
	seeds []string,
	callback func(result *model.CrawlResult, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			result, err := bp.harvest(ctx, seed, bp.maxLinks)
			callback(result, i)

			if err != nil {
				// A failed crawl does not stop the others.
				bp.logger.Warn("crawl failed",
					"seed", seed,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("crawl completed",
				"seed", seed,
				"new_links", len(result.NewLinks),
			)
			return nil
		})
	}

	return g.Wait()
}
