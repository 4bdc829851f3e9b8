package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/model"
	"github.com/nao1215/linkharvest/internal/pipeline"
	"github.com/nao1215/linkharvest/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl a website and report the links not seen before",
		Long: `Crawl fetches the seed URL, follows links that stay on the seed's domain
breadth first, and stops once the requested number of links is discovered.

Links are remembered per domain in the link store. Only links that were not
in the store before are reported and written to the output file, one per
line. A seed without scheme is crawled over http://.

Examples:
  # Discover up to 10 links of example.com
  linkharvest crawl example.com

  # Discover 50 links and write them to new.txt
  linkharvest crawl -n 50 -o new.txt https://example.com/blog/

  # Crawl several sites, two at a time
  linkharvest crawl -b 2 site1.example site2.example site3.example

  # Keep the link store in SQLite instead of JSON
  linkharvest crawl --store sqlite example.com

  # Only collect the links of the seed page
  linkharvest crawl --single-page example.com

  # Send every request through a SOCKS5 proxy
  linkharvest crawl --proxy 127.0.0.1:1080 example.com

  # Output a JSON report
  linkharvest crawl --json example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")
	cmd.Flags().Bool("single-page", false,
		"Only collect the links of each seed page")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")

	return cmd
}

// addCrawlFlags adds the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	// Crawl behavior flags
	cmd.Flags().IntP("max-links", "n", config.DefaultMaxLinks,
		"Number of same-domain links to discover per seed")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause before every request")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read per page")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port) for all requests")

	// Storage flags
	cmd.Flags().String("store", config.StoreJSON,
		"Link store backend: json, sqlite or redis")
	cmd.Flags().String("store-file", "",
		"JSON link store path (default: $XDG_DATA_HOME/linkharvest/scraped_links.json)")
	cmd.Flags().String("db-dir", "",
		"Directory of the crawl database (default: $XDG_DATA_HOME/linkharvest)")
	cmd.Flags().String("redis-addr", config.DefaultRedisAddress,
		"Redis address for the redis link store")
	cmd.Flags().Int("redis-db", 0,
		"Redis database number for the redis link store")
	cmd.Flags().String("redis-prefix", config.DefaultRedisPrefix,
		"Key prefix for the redis link store")

	// Output and configuration
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"File receiving the new links, one per line")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkharvest in current or home directory)")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	singlePage, err := cmd.Flags().GetBool("single-page")
	if err != nil {
		return err
	}

	// An explicit --max-links wins over the config file. Otherwise the
	// harvester resolves the cap per domain.
	maxLinks := 0
	if cmd.Flags().Changed("max-links") {
		maxLinks = cfg.MaxLinks
	}

	return runCrawl(cmd.Context(), cfg, crawlOptions{
		maxLinks:   maxLinks,
		singlePage: singlePage,
	}, cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.MaxLinks, err = flags.GetInt("max-links"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}

	if cfg.Store, err = flags.GetString("store"); err != nil {
		return nil, err
	}
	storeFile, err := flags.GetString("store-file")
	if err != nil {
		return nil, err
	}
	if storeFile != "" {
		cfg.StoreFile = storeFile
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
		if storeFile == "" {
			cfg.StoreFile = filepath.Join(dbDir, config.DefaultStoreFileName)
		}
	}
	if cfg.RedisAddr, err = flags.GetString("redis-addr"); err != nil {
		return nil, err
	}
	if cfg.RedisPrefix, err = flags.GetString("redis-prefix"); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = flags.GetInt("redis-db"); err != nil {
		return nil, err
	}
	cfg.RedisPassword = os.Getenv("LINKHARVEST_REDIS_PASSWORD")

	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	if flags.Lookup("batch") != nil {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("json") != nil {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("markdown") != nil {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.Targets = args

	return cfg, nil
}

// crawlOptions holds crawl settings that are not part of Config.
type crawlOptions struct {
	// maxLinks is passed to every harvest. Zero means the configured cap.
	maxLinks int

	singlePage bool

	// client is the HTTP client used for fetching. Nil means one built
	// from the config.
	client *http.Client
}

// runCrawl crawls every target of cfg and writes the report to out.
func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"store", cfg.Store,
		"batchSize", cfg.BatchSize,
	)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close stores", "error", err)
		}
	}()

	client := opts.client
	if client == nil {
		if client, err = newHTTPClient(ctx, cfg, logger); err != nil {
			return err
		}
	}

	writer := newReportWriter(cfg, out)
	harvestOpts := []pipeline.HarvesterOption{
		pipeline.WithHistory(st.history),
		pipeline.WithHarvestLogger(logger),
		pipeline.WithSinglePageMode(opts.singlePage),
		pipeline.WithHTTPClient(client),
	}

	if len(cfg.Targets) == 1 {
		h := pipeline.NewHarvester(cfg, st.links, harvestOpts...)
		result, err := h.Harvest(ctx, cfg.Targets[0], opts.maxLinks)
		if _, werr := writer.Write(result); werr != nil {
			return fmt.Errorf("failed to write report: %w", werr)
		}
		if err != nil {
			return fmt.Errorf("crawl of %s failed: %w", cfg.Targets[0], err)
		}
		return nil
	}

	// Every harvest would overwrite the output file, so the batch writes the
	// union of the new links once at the end.
	h := pipeline.NewHarvester(cfg, st.links, append(harvestOpts, pipeline.WithOutputPath(""))...)
	bp := pipeline.NewBatchProcessor(h.Harvest,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithMaxLinks(opts.maxLinks),
		pipeline.WithBatchLogger(logger),
	)

	results, batchErr := bp.ProcessBatch(ctx, cfg.Targets)

	if cfg.OutputFile != "" {
		if err := report.WriteLinksFile(cfg.OutputFile, unionNewLinks(results)); err != nil {
			return err
		}
	}
	if _, err := writer.WriteBatch(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if batchErr != nil {
		return batchErr
	}
	if s := report.Summarize(results); s.Failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", s.Failed, s.Seeds)
	}
	return nil
}

// unionNewLinks returns the new links of all successful results, sorted.
func unionNewLinks(results []*model.CrawlResult) []string {
	set := model.NewLinkSet()
	for _, r := range results {
		if r == nil || !r.Succeeded() {
			continue
		}
		for _, link := range r.NewLinks {
			set.Add(link)
		}
	}
	return set.Sorted()
}

// newReportWriter returns the report writer selected by cfg.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}
