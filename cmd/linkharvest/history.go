package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/crawler"
	"github.com/nao1215/linkharvest/internal/database"
	"github.com/nao1215/linkharvest/internal/report"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command shows crawl runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Show past crawls",
		Long: `History lists the crawls recorded in the database, newest first.

Every crawl is recorded together with the links it found to be new, so a
single run can be inspected later with --run. The domain argument may be a
bare host (example.com) or a URL.

Examples:
  # List the latest crawls of every domain
  linkharvest history

  # List the crawls of one domain
  linkharvest history example.com

  # Show one run with its new links
  linkharvest history --run 0b6f6c5e-7d5a-4c55-9f0e-1c2d3e4f5a6b

  # List every domain in the database
  linkharvest history --list-domains

  # Output the history in Markdown format
  linkharvest history --markdown example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Selection flags
	cmd.Flags().BoolP("list-domains", "L", false,
		"List all domains in the database")
	cmd.Flags().StringP("run", "r", "",
		"Show a single run by ID, including its new links")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs listed (0 for all)")
	cmd.Flags().String("db-dir", "",
		"Directory of the crawl database (default: $XDG_DATA_HOME/linkharvest)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output history in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output history in Markdown format")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	domain      string
	runID       string
	listDomains bool
	limit       int
	dbDir       string
	json        bool
	markdown    bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts := historyOptions{dbDir: config.XDGDataDir()}
	var err error

	if opts.listDomains, err = cmd.Flags().GetBool("list-domains"); err != nil {
		return err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		opts.dbDir = dbDir
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if len(args) > 0 {
		opts.domain = historyDomain(args[0])
	}

	return runHistory(cmd, opts)
}

// runHistory writes the history selected by opts to the command output.
func runHistory(cmd *cobra.Command, opts historyOptions) error {
	// Validate before opening the database so that a bad invocation does
	// not create an empty one.
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.limit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", opts.limit)
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	writer := newHistoryWriter(opts, cmd.OutOrStdout())

	switch {
	case opts.listDomains:
		domains, err := db.ListDomains(ctx)
		if err != nil {
			return err
		}
		_, err = writer.WriteDomains(domains)
		return err

	case opts.runID != "":
		run, err := db.GetRun(ctx, opts.runID)
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("no crawl run with ID %q (use 'linkharvest history' to list runs): %w", opts.runID, err)
		}
		if err != nil {
			return err
		}
		_, err = writer.WriteRun(run)
		return err

	default:
		runs, err := db.ListRuns(ctx, opts.domain, opts.limit)
		if err != nil {
			return err
		}
		_, err = writer.WriteRuns(runs)
		return err
	}
}

// historyDomain accepts a bare host or a URL and returns the domain.
func historyDomain(arg string) string {
	if strings.Contains(arg, "://") {
		return crawler.Domain(arg)
	}
	return strings.TrimSuffix(arg, "/")
}

// newHistoryWriter returns the history writer selected by opts.
func newHistoryWriter(opts historyOptions, out io.Writer) report.HistoryWriter {
	switch {
	case opts.json:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}
