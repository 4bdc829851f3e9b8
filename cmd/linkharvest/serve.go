package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/log"
	"github.com/nao1215/linkharvest/internal/metrics"
	"github.com/nao1215/linkharvest/internal/pipeline"
	"github.com/nao1215/linkharvest/internal/web"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end",
		Long: `Serve starts an HTTP server with a form that takes a URL and a link count.
Submitting the form runs a crawl, and the new links can be downloaded as
output_links.txt afterwards.

The server also exposes /healthz and Prometheus metrics on /metrics.
The listen address defaults to :$PORT when PORT is set, :5000 otherwise.

Examples:
  # Listen on the default address
  linkharvest serve

  # Listen on localhost only, with JSON logs
  linkharvest serve --addr 127.0.0.1:8080 --log-json`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("addr", "a", "",
		"Listen address (default: :$PORT or :5000)")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")
	cmd.Flags().Int("max-links-limit", web.DefaultMaxLinksLimit,
		"Largest link count the form accepts")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("max-links-limit")
	if err != nil {
		return err
	}
	if limit < cfg.MaxLinks {
		return fmt.Errorf("configuration error: %w: --max-links-limit %d is below --max-links %d",
			config.ErrInvalidMaxLinks, limit, cfg.MaxLinks)
	}

	var logger *slog.Logger
	if logJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)

	ctx := cmd.Context()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close stores", "error", err)
		}
	}()

	client, err := newHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	collector := metrics.New()
	h := pipeline.NewHarvester(cfg, st.links,
		pipeline.WithHistory(st.history),
		pipeline.WithCollector(collector),
		pipeline.WithHarvestLogger(logger),
		pipeline.WithHTTPClient(client),
	)

	srv, err := web.NewServer(h, cfg.OutputFile,
		web.WithLogger(logger),
		web.WithCollector(collector),
		web.WithDefaultMaxLinks(cfg.MaxLinks),
		web.WithMaxLinksLimit(limit),
	)
	if err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", listenAddress(addr))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving linkharvest on http://%s\n", ln.Addr())

	return srv.Serve(ctx, ln)
}

// listenAddress resolves the address the server listens on.
func listenAddress(flag string) string {
	if flag != "" {
		return flag
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return config.DefaultListenAddress
}
