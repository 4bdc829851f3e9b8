package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/crawler"
	"github.com/nao1215/linkharvest/internal/linkstore"
	"github.com/nao1215/linkharvest/internal/metrics"
	"github.com/nao1215/linkharvest/internal/model"
)

// Harvester runs the full crawl pipeline for one seed at a time:
// load the link store, crawl, merge, save, write the output artifact,
// then record history and metrics.
//
// A Harvester is safe for concurrent use. Harvests of the same domain are
// serialized so that their load-merge-save cycles never interleave.
type Harvester struct {
	cfg        *config.Config
	store      linkstore.Store
	history    RunRecorder
	collector  *metrics.Collector
	client     *http.Client
	fetcher    crawler.Fetcher
	locks      *DomainLock
	logger     *slog.Logger
	outputPath string
	singlePage bool

	// saveMu serializes the reload-and-save of the link store.
	saveMu sync.Mutex
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*Harvester)

// WithHistory records every harvest with recorder.
func WithHistory(recorder RunRecorder) HarvesterOption {
	return func(h *Harvester) {
		h.history = recorder
	}
}

// WithCollector reports fetches and crawls to collector.
func WithCollector(collector *metrics.Collector) HarvesterOption {
	return func(h *Harvester) {
		h.collector = collector
	}
}

// WithHTTPClient sets the HTTP client used for fetching.
func WithHTTPClient(client *http.Client) HarvesterOption {
	return func(h *Harvester) {
		h.client = client
	}
}

// WithPageFetcher replaces the HTTP fetcher.
func WithPageFetcher(f crawler.Fetcher) HarvesterOption {
	return func(h *Harvester) {
		h.fetcher = f
	}
}

// WithDomainLock shares lock with other harvesters of the same store.
func WithDomainLock(lock *DomainLock) HarvesterOption {
	return func(h *Harvester) {
		h.locks = lock
	}
}

// WithHarvestLogger sets a custom logger.
func WithHarvestLogger(logger *slog.Logger) HarvesterOption {
	return func(h *Harvester) {
		h.logger = logger
	}
}

// WithOutputPath overrides the output artifact path from the config.
// An empty path disables the artifact.
func WithOutputPath(path string) HarvesterOption {
	return func(h *Harvester) {
		h.outputPath = path
	}
}

// WithSinglePageMode limits every crawl to the seed page.
func WithSinglePageMode(single bool) HarvesterOption {
	return func(h *Harvester) {
		h.singlePage = single
	}
}

// NewHarvester creates a Harvester over store.
func NewHarvester(cfg *config.Config, store linkstore.Store, opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		cfg:        cfg,
		store:      store,
		outputPath: cfg.OutputFile,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.locks == nil {
		h.locks = NewDomainLock()
	}

	return h
}

// Harvest crawls seed and returns the result.
//
// A seed without scheme gets "http://". When maxLinks is not positive the
// configured cap for the seed's domain is used. The returned error is the
// reason the result failed, if any.
func (h *Harvester) Harvest(ctx context.Context, seed string, maxLinks int) (*model.CrawlResult, error) {
	normalized, err := crawler.NormalizeSeed(seed)
	if err != nil {
		result := model.NewCrawlResult(seed, maxLinks)
		result.Fail(err)
		return result, err
	}

	domain := crawler.Domain(normalized)
	siteCfg := h.cfg.ForDomain(domain)
	if maxLinks <= 0 {
		maxLinks = siteCfg.MaxLinks
	}

	job := NewJob(normalized, maxLinks)
	job.Result.RunID = uuid.NewString()
	job.Result.Domain = domain

	unlock, err := h.locks.Lock(ctx, domain)
	if err != nil {
		job.Result.Fail(err)
		return job.Result, err
	}
	defer unlock()

	if h.collector != nil {
		done := h.collector.TrackCrawl()
		defer done()
	}

	h.logger.Debug("harvest started",
		"seed", normalized,
		"domain", domain,
		"max_links", maxLinks,
		"run_id", job.Result.RunID,
	)

	err = h.Pipeline(siteCfg).Execute(ctx, job)
	return job.Result, err
}

// Pipeline builds the pipeline used for a harvest with the given settings.
func (h *Harvester) Pipeline(cfg *config.Config) *Pipeline {
	p := New(WithLogger(h.logger))

	p.AddSteps(
		NewLoadStep(h.store),
		NewCrawlStep(h.spiderFactory(cfg), WithCrawlLogger(h.logger)),
		NewMergeStep(),
		NewSaveStep(h.store, &h.saveMu),
	)
	if h.outputPath != "" {
		p.AddStep(NewOutputStep(h.outputPath))
	}

	if h.history != nil {
		p.AddFinalStep(NewRecordRunStep(h.history))
	}
	if h.collector != nil {
		p.AddFinalStep(NewObserveStep(h.collector))
	}

	return p
}

func (h *Harvester) spiderFactory(cfg *config.Config) func() *crawler.Spider {
	return func() *crawler.Spider {
		opts := []crawler.SpiderOption{
			crawler.WithDelay(cfg.CrawlDelay),
			crawler.WithTimeout(cfg.Timeout),
			crawler.WithUserAgent(cfg.UserAgent),
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithSinglePage(h.singlePage),
			crawler.WithLogger(h.logger),
		}
		if h.collector != nil {
			opts = append(opts, crawler.WithObserver(h.collector))
		}
		if h.fetcher != nil {
			opts = append(opts, crawler.WithFetcher(h.fetcher))
		}
		return crawler.NewSpider(h.client, opts...)
	}
}
