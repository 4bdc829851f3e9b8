package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/linkharvest/internal/crawler"
	"github.com/nao1215/linkharvest/internal/linkstore"
	"github.com/nao1215/linkharvest/internal/model"
	"github.com/nao1215/linkharvest/internal/report"
)

// LoadStep reads the link store into the job.
type LoadStep struct {
	store linkstore.Store
}

// NewLoadStep creates a step that loads store.
func NewLoadStep(store linkstore.Store) *LoadStep {
	return &LoadStep{store: store}
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do loads the full mapping.
func (s *LoadStep) Do(ctx context.Context, job *Job) error {
	links, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load link store: %w", err)
	}
	job.Links = links
	return nil
}

// CrawlStep runs the breadth-first crawl of the seed's domain.
type CrawlStep struct {
	// newSpider builds a fresh spider for each crawl so statistics are
	// never shared between concurrent jobs.
	newSpider func() *crawler.Spider

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step. newSpider is called once per Do.
func NewCrawlStep(newSpider func() *crawler.Spider, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		newSpider: newSpider,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the seed and stores the discovered links in the result.
// A cancelled crawl keeps the links found so far and still returns the error.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	result := job.Result
	if result.Domain == "" {
		result.Domain = crawler.Domain(result.Seed)
	}
	spider := s.newSpider()

	discovered, err := spider.Crawl(ctx, result.Seed, result.MaxLinks)

	stats := spider.Stats()
	result.PagesFetched = stats.PagesFetched
	result.PagesFailed = stats.PagesFailed
	if discovered != nil {
		result.Discovered = discovered
	}

	if err != nil {
		return err
	}

	s.logger.Info("crawl completed",
		"seed", result.Seed,
		"discovered", len(result.Discovered),
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed,
	)
	return nil
}

// MergeStep computes the new links and folds the discovered links into the
// loaded mapping.
type MergeStep struct{}

// NewMergeStep creates a merge step.
func NewMergeStep() *MergeStep {
	return &MergeStep{}
}

// Name returns the step name.
func (s *MergeStep) Name() string {
	return "merge"
}

// Do merges job.Result.Discovered into job.Links under the result's domain.
func (s *MergeStep) Do(_ context.Context, job *Job) error {
	if job.Links == nil {
		job.Links = model.NewLinks()
	}
	result := job.Result
	result.NewLinks = linkstore.MergeDomain(job.Links, result.Domain, result.Discovered)
	result.KnownLinks = len(job.Links[result.Domain])
	return nil
}

// SaveStep writes the job's domain back to the link store.
//
// The store is reloaded before saving and only the job's domain is replaced,
// so jobs for other domains that saved in the meantime are kept. Save cycles
// sharing mu never interleave.
type SaveStep struct {
	store linkstore.Store
	mu    sync.Locker
}

// NewSaveStep creates a step that saves to store. A nil mu gives the step a
// private lock.
func NewSaveStep(store linkstore.Store, mu sync.Locker) *SaveStep {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &SaveStep{store: store, mu: mu}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the mapping. A job without a domain saves job.Links as is.
func (s *SaveStep) Do(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links := job.Links
	if domain := job.Result.Domain; domain != "" {
		latest, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to reload link store: %w", err)
		}
		latest[domain] = job.Links[domain]
		links = latest
	}

	if err := s.store.Save(ctx, links); err != nil {
		return fmt.Errorf("failed to save link store: %w", err)
	}
	job.Links = links
	return nil
}

// OutputStep writes the new links to the output artifact, one per line.
type OutputStep struct {
	path string
}

// NewOutputStep creates a step that writes to path.
func NewOutputStep(path string) *OutputStep {
	return &OutputStep{path: path}
}

// Name returns the step name.
func (s *OutputStep) Name() string {
	return "output"
}

// Do overwrites the artifact with the new links.
func (s *OutputStep) Do(_ context.Context, job *Job) error {
	return report.WriteLinksFile(s.path, job.Result.NewLinks)
}

// RunRecorder stores crawl history. *database.CrawlDB implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *model.CrawlRun) error
}

// RecordRunStep saves the crawl, successful or not, to the history.
type RecordRunStep struct {
	recorder RunRecorder
}

// NewRecordRunStep creates a step that records runs with recorder.
func NewRecordRunStep(recorder RunRecorder) *RecordRunStep {
	return &RecordRunStep{recorder: recorder}
}

// Name returns the step name.
func (s *RecordRunStep) Name() string {
	return "record"
}

// Do records the run.
func (s *RecordRunStep) Do(ctx context.Context, job *Job) error {
	if err := s.recorder.SaveRun(ctx, model.NewCrawlRun(job.Result)); err != nil {
		return fmt.Errorf("failed to record crawl run: %w", err)
	}
	return nil
}

// CrawlObserver receives finished crawls. *metrics.Collector implements it.
type CrawlObserver interface {
	ObserveCrawl(result *model.CrawlResult)
}

// ObserveStep reports the finished crawl to an observer.
type ObserveStep struct {
	observer CrawlObserver
}

// NewObserveStep creates a step that reports to observer.
func NewObserveStep(observer CrawlObserver) *ObserveStep {
	return &ObserveStep{observer: observer}
}

// Name returns the step name.
func (s *ObserveStep) Name() string {
	return "observe"
}

// Do reports the result.
func (s *ObserveStep) Do(_ context.Context, job *Job) error {
	s.observer.ObserveCrawl(job.Result)
	return nil
}
