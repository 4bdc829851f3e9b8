package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/crawler"
	"github.com/nao1215/linkharvest/internal/database"
	"github.com/nao1215/linkharvest/internal/linkstore"
	"github.com/nao1215/linkharvest/internal/metrics"
	"github.com/nao1215/linkharvest/internal/model"
)

// siteFetcher serves HTML pages from a map. Unknown URLs fail.
type siteFetcher struct {
	pages map[string]string

	mu    sync.Mutex
	calls []string
}

func (f *siteFetcher) Fetch(_ context.Context, pageURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageURL)
	f.mu.Unlock()

	body, ok := f.pages[pageURL]
	if !ok {
		return nil, &crawler.FetchError{URL: pageURL, StatusCode: 404}
	}
	return []byte(body), nil
}

func (f *siteFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// page renders an HTML page linking to hrefs.
func page(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// memoryStore is an in-memory linkstore.Store.
type memoryStore struct {
	mu      sync.Mutex
	links   model.Links
	loadErr error
	saveErr error
	saves   int
}

func (s *memoryStore) Load(context.Context) (model.Links, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := model.NewLinks()
	for d, urls := range s.links {
		out[d] = slices.Clone(urls)
	}
	return out, nil
}

func (s *memoryStore) Save(_ context.Context, links model.Links) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.links = model.NewLinks()
	for d, urls := range links {
		s.links[d] = slices.Clone(urls)
	}
	return nil
}

type recorderFunc func(ctx context.Context, run *model.CrawlRun) error

func (f recorderFunc) SaveRun(ctx context.Context, run *model.CrawlRun) error {
	return f(ctx, run)
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	return cfg
}

// TestLoadStep tests loading the link store into the job.
func TestLoadStep(t *testing.T) {
	t.Parallel()

	t.Run("loads mapping", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{links: model.Links{"a.test": {"http://a.test/p1"}}}
		job := NewJob("http://a.test/", 10)

		if err := NewLoadStep(store).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(job.Links["a.test"], []string{"http://a.test/p1"}) {
			t.Errorf("unexpected links: %v", job.Links)
		}
	})

	t.Run("wraps load error", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{loadErr: linkstore.ErrCorruptStore}
		err := NewLoadStep(store).Do(context.Background(), NewJob("http://a.test/", 10))

		if !errors.Is(err, linkstore.ErrCorruptStore) {
			t.Errorf("expected ErrCorruptStore, got %v", err)
		}
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if NewLoadStep(&memoryStore{}).Name() != "load" {
			t.Error("unexpected step name")
		}
	})
}

// TestCrawlStep tests the crawl step.
func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("fills result from the spider", func(t *testing.T) {
		t.Parallel()

		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/": page("/p2", "/p1", "http://b.test/x"),
		}}
		step := NewCrawlStep(func() *crawler.Spider {
			return crawler.NewSpider(nil, crawler.WithFetcher(fetcher))
		})

		job := NewJob("http://a.test/", 10)
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := job.Result
		if result.Domain != "a.test" {
			t.Errorf("expected domain a.test, got %q", result.Domain)
		}
		want := []string{"http://a.test/p1", "http://a.test/p2"}
		if !slices.Equal(result.Discovered, want) {
			t.Errorf("expected %v, got %v", want, result.Discovered)
		}
		if result.PagesFetched != 1 || result.PagesFailed != 2 {
			t.Errorf("expected 1 fetched and 2 failed, got %d and %d", result.PagesFetched, result.PagesFailed)
		}
	})

	t.Run("returns seed failure", func(t *testing.T) {
		t.Parallel()

		fetcher := &siteFetcher{pages: map[string]string{}}
		step := NewCrawlStep(func() *crawler.Spider {
			return crawler.NewSpider(nil, crawler.WithFetcher(fetcher))
		})

		job := NewJob("http://a.test/", 10)
		err := step.Do(context.Background(), job)

		if !errors.Is(err, crawler.ErrSeedUnreachable) {
			t.Errorf("expected ErrSeedUnreachable, got %v", err)
		}
		if len(job.Result.Discovered) != 0 {
			t.Errorf("expected no links, got %v", job.Result.Discovered)
		}
	})

	t.Run("uses a fresh spider per run", func(t *testing.T) {
		t.Parallel()

		built := 0
		fetcher := &siteFetcher{pages: map[string]string{"http://a.test/": page()}}
		step := NewCrawlStep(func() *crawler.Spider {
			built++
			return crawler.NewSpider(nil, crawler.WithFetcher(fetcher))
		})

		for range 2 {
			if err := step.Do(context.Background(), NewJob("http://a.test/", 1)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if built != 2 {
			t.Errorf("expected 2 spiders, got %d", built)
		}
	})
}

// TestMergeStep tests the merge step.
func TestMergeStep(t *testing.T) {
	t.Parallel()

	t.Run("computes new links and updates mapping", func(t *testing.T) {
		t.Parallel()

		job := NewJob("http://a.test/", 10)
		job.Result.Domain = "a.test"
		job.Result.Discovered = []string{"http://a.test/p1", "http://a.test/p2"}
		job.Links = model.Links{
			"a.test": {"http://a.test/p1"},
			"b.test": {"http://b.test/x"},
		}

		if err := NewMergeStep().Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(job.Result.NewLinks, []string{"http://a.test/p2"}) {
			t.Errorf("unexpected new links: %v", job.Result.NewLinks)
		}
		if job.Result.KnownLinks != 2 {
			t.Errorf("expected 2 known links, got %d", job.Result.KnownLinks)
		}
		if !slices.Equal(job.Links["b.test"], []string{"http://b.test/x"}) {
			t.Errorf("other domains must be untouched, got %v", job.Links["b.test"])
		}
	})

	t.Run("nil mapping", func(t *testing.T) {
		t.Parallel()

		job := NewJob("http://a.test/", 10)
		job.Result.Domain = "a.test"
		job.Result.Discovered = []string{"http://a.test/p1"}

		if err := NewMergeStep().Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(job.Result.NewLinks) != 1 {
			t.Errorf("expected 1 new link, got %v", job.Result.NewLinks)
		}
	})
}

// TestSaveStep tests the save step.
func TestSaveStep(t *testing.T) {
	t.Parallel()

	t.Run("saves mapping", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		job := NewJob("http://a.test/", 10)
		job.Links = model.Links{"a.test": {"http://a.test/p1"}}

		if err := NewSaveStep(store, nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.saves != 1 {
			t.Errorf("expected 1 save, got %d", store.saves)
		}
	})

	t.Run("keeps domains saved by other jobs", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{links: model.Links{"a.test": {"http://a.test/old"}}}

		// Loaded before b.test was saved by another job.
		job := NewJob("http://a.test/", 10)
		job.Result.Domain = "a.test"
		job.Links = model.Links{"a.test": {"http://a.test/old", "http://a.test/p1"}}

		other := model.Links{
			"a.test": {"http://a.test/old"},
			"b.test": {"http://b.test/q1"},
		}
		if err := store.Save(context.Background(), other); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := NewSaveStep(store, nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		links, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(links["a.test"], []string{"http://a.test/old", "http://a.test/p1"}) {
			t.Errorf("unexpected a.test links: %v", links["a.test"])
		}
		if !slices.Equal(links["b.test"], []string{"http://b.test/q1"}) {
			t.Errorf("expected b.test to survive, got %v", links["b.test"])
		}
	})

	t.Run("wraps save error", func(t *testing.T) {
		t.Parallel()

		saveErr := errors.New("disk full")
		store := &memoryStore{saveErr: saveErr}

		err := NewSaveStep(store, nil).Do(context.Background(), NewJob("http://a.test/", 10))
		if !errors.Is(err, saveErr) {
			t.Errorf("expected %v, got %v", saveErr, err)
		}
	})
}

// TestOutputStep tests writing the output artifact.
func TestOutputStep(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	job := NewJob("http://a.test/", 10)
	job.Result.NewLinks = []string{"http://a.test/p1", "http://a.test/p2"}

	if err := NewOutputStep(path).Do(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != "http://a.test/p1\nhttp://a.test/p2\n" {
		t.Errorf("unexpected output: %q", data)
	}
}

// TestRecordRunStep tests recording history.
func TestRecordRunStep(t *testing.T) {
	t.Parallel()

	var got *model.CrawlRun
	step := NewRecordRunStep(recorderFunc(func(_ context.Context, run *model.CrawlRun) error {
		got = run
		return nil
	}))

	job := NewJob("http://a.test/", 10)
	job.Result.RunID = "run-1"
	job.Result.Domain = "a.test"
	job.Result.Discovered = []string{"http://a.test/p1", "http://a.test/p2"}
	job.Result.NewLinks = []string{"http://a.test/p2"}

	if err := step.Do(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected run to be recorded")
	}
	if got.ID != "run-1" || got.DiscoveredCount != 2 || got.NewCount != 1 {
		t.Errorf("unexpected run: %+v", got)
	}
}

// TestObserveStep tests reporting to the metrics collector.
func TestObserveStep(t *testing.T) {
	t.Parallel()

	collector := metrics.New()
	job := NewJob("http://a.test/", 10)
	job.Result.NewLinks = []string{"http://a.test/p1"}

	if err := NewObserveStep(collector).Do(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "linkharvest_crawls_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected crawls_total to be recorded")
	}
}

// TestDomainLock tests per-domain serialization.
func TestDomainLock(t *testing.T) {
	t.Parallel()

	t.Run("same domain blocks until released", func(t *testing.T) {
		t.Parallel()

		lock := NewDomainLock()
		unlock, err := lock.Lock(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := lock.Lock(ctx, "a.test"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}

		unlock()
		unlock2, err := lock.Lock(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("expected lock after release, got %v", err)
		}
		unlock2()

		if lock.size() != 0 {
			t.Errorf("expected idle domains to be forgotten, got %d", lock.size())
		}
	})

	t.Run("different domains do not block", func(t *testing.T) {
		t.Parallel()

		lock := NewDomainLock()
		unlockA, err := lock.Lock(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := lock.Lock(ctx, "b.test")
		if err != nil {
			t.Fatalf("expected b.test to be free, got %v", err)
		}
		unlockB()
	})

	t.Run("release is idempotent", func(t *testing.T) {
		t.Parallel()

		var lock DomainLock
		unlock, err := lock.Lock(context.Background(), "a.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		unlock()
		unlock()

		if lock.size() != 0 {
			t.Errorf("expected 0 tracked domains, got %d", lock.size())
		}
	})
}

// TestHarvester tests the full pipeline.
func TestHarvester(t *testing.T) {
	t.Parallel()

	t.Run("store diff", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store := linkstore.NewFileStore(filepath.Join(dir, "links.json"))
		if err := store.Save(context.Background(), model.Links{"a.test": {"http://a.test/p1"}}); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}

		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/": page("/p1", "/p2"),
		}}
		output := filepath.Join(dir, "output_links.txt")
		h := NewHarvester(testConfig(), store,
			WithPageFetcher(fetcher),
			WithOutputPath(output),
		)

		result, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(result.NewLinks, []string{"http://a.test/p2"}) {
			t.Errorf("expected only p2 to be new, got %v", result.NewLinks)
		}
		data, err := os.ReadFile(output) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if string(data) != "http://a.test/p2\n" {
			t.Errorf("unexpected output %q", data)
		}

		links, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load store: %v", err)
		}
		want := []string{"http://a.test/p1", "http://a.test/p2"}
		if !slices.Equal(links["a.test"], want) {
			t.Errorf("expected store %v, got %v", want, links["a.test"])
		}
	})

	t.Run("idempotent persistence", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/":   page("/p1", "/p2"),
			"http://a.test/p1": page("/p3"),
		}}
		h := NewHarvester(testConfig(), store, WithPageFetcher(fetcher), WithOutputPath(""))

		first, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(first.NewLinks) != 3 {
			t.Errorf("expected 3 new links, got %v", first.NewLinks)
		}

		second, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(second.NewLinks) != 0 {
			t.Errorf("expected no new links on second run, got %v", second.NewLinks)
		}
		if !slices.Equal(second.Discovered, first.Discovered) {
			t.Errorf("expected same discovered links, got %v and %v", first.Discovered, second.Discovered)
		}
		if second.RunID == first.RunID {
			t.Error("expected distinct run IDs")
		}
	})

	t.Run("normalizes seed and uses configured cap", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.MaxLinks = 1
		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test": page("/p1", "/p2"),
		}}
		h := NewHarvester(cfg, &memoryStore{}, WithPageFetcher(fetcher), WithOutputPath(""))

		result, err := h.Harvest(context.Background(), "a.test", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Seed != "http://a.test" {
			t.Errorf("expected normalized seed, got %q", result.Seed)
		}
		if result.MaxLinks != 1 || len(result.Discovered) != 1 {
			t.Errorf("expected cap of 1, got max %d and %v", result.MaxLinks, result.Discovered)
		}
	})

	t.Run("site override", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.SiteConfigs.Sites["a.test"] = config.SiteConfig{MaxLinks: 2}
		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/": page("/p1", "/p2", "/p3"),
		}}
		h := NewHarvester(cfg, &memoryStore{}, WithPageFetcher(fetcher), WithOutputPath(""))

		result, err := h.Harvest(context.Background(), "http://a.test/", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Discovered) != 2 {
			t.Errorf("expected site cap of 2, got %v", result.Discovered)
		}
	})

	t.Run("single page mode", func(t *testing.T) {
		t.Parallel()

		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/":   page("/p1"),
			"http://a.test/p1": page("/p2"),
		}}
		h := NewHarvester(testConfig(), &memoryStore{},
			WithPageFetcher(fetcher),
			WithOutputPath(""),
			WithSinglePageMode(true),
		)

		result, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(result.Discovered, []string{"http://a.test/p1"}) {
			t.Errorf("expected only seed links, got %v", result.Discovered)
		}
		if len(fetcher.fetched()) != 1 {
			t.Errorf("expected one fetch, got %v", fetcher.fetched())
		}
	})

	t.Run("invalid seed", func(t *testing.T) {
		t.Parallel()

		h := NewHarvester(testConfig(), &memoryStore{}, WithOutputPath(""))

		result, err := h.Harvest(context.Background(), "   ", 10)
		if !errors.Is(err, crawler.ErrInvalidSeed) {
			t.Errorf("expected ErrInvalidSeed, got %v", err)
		}
		if result == nil || result.Succeeded() {
			t.Error("expected a failed result")
		}
	})

	t.Run("seed failure leaves store and artifact alone", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		output := filepath.Join(dir, "output_links.txt")
		store := &memoryStore{links: model.Links{"a.test": {"http://a.test/p1"}}}
		h := NewHarvester(testConfig(), store,
			WithPageFetcher(&siteFetcher{pages: map[string]string{}}),
			WithOutputPath(output),
		)

		result, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if !errors.Is(err, crawler.ErrSeedUnreachable) {
			t.Fatalf("expected ErrSeedUnreachable, got %v", err)
		}
		if result.Succeeded() {
			t.Error("expected failed result")
		}
		if store.saves != 0 {
			t.Errorf("expected no save, got %d", store.saves)
		}
		if _, err := os.Stat(output); !os.IsNotExist(err) {
			t.Errorf("expected no output file, got %v", err)
		}
	})

	t.Run("records history and metrics", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() {
			_ = db.Close() //nolint:errcheck // test cleanup
		})

		collector := metrics.New()
		fetcher := &siteFetcher{pages: map[string]string{
			"http://a.test/": page("/p1"),
		}}
		h := NewHarvester(testConfig(), db,
			WithPageFetcher(fetcher),
			WithOutputPath(""),
			WithHistory(db),
			WithCollector(collector),
		)

		result, err := h.Harvest(context.Background(), "http://a.test/", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		run, err := db.GetRun(context.Background(), result.RunID)
		if err != nil {
			t.Fatalf("expected run to be recorded: %v", err)
		}
		if run.Domain != "a.test" || run.NewCount != 1 {
			t.Errorf("unexpected run: %+v", run)
		}
		if !slices.Equal(run.NewLinks, []string{"http://a.test/p1"}) {
			t.Errorf("unexpected run links: %v", run.NewLinks)
		}

		stored, err := db.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load links: %v", err)
		}
		if !slices.Equal(stored["a.test"], []string{"http://a.test/p1"}) {
			t.Errorf("expected 1 stored link, got %v", stored["a.test"])
		}
	})

	t.Run("pipeline shape", func(t *testing.T) {
		t.Parallel()

		h := NewHarvester(testConfig(), &memoryStore{},
			WithOutputPath("out.txt"),
			WithHistory(recorderFunc(func(context.Context, *model.CrawlRun) error { return nil })),
			WithCollector(metrics.New()),
		)

		got := h.Pipeline(testConfig()).StepNames()
		want := []string{"load", "crawl", "merge", "save", "output", "record", "observe"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("same domain harvests do not lose updates", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		pages := map[string]string{}
		for i := range 4 {
			pages[fmt.Sprintf("http://a.test/s%d", i)] = page(fmt.Sprintf("/p%d", i))
		}
		h := NewHarvester(testConfig(), store,
			WithPageFetcher(&siteFetcher{pages: pages}),
			WithOutputPath(""),
		)

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = h.Harvest(context.Background(), fmt.Sprintf("http://a.test/s%d", i), 1) //nolint:errcheck // checked via store
			}()
		}
		wg.Wait()

		links, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links["a.test"]) != 4 {
			t.Errorf("expected 4 links, got %v", links["a.test"])
		}
	})
}
