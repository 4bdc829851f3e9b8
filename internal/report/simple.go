package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nao1215/linkharvest/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and no colors, so it can be piped to files.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose also lists every discovered link, not only the new ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with every discovered link.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl report in human-readable format.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder
	w.writeResult(&sb, result)
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

// WriteBatch outputs every crawl report followed by the batch summary.
func (w *SimpleWriter) WriteBatch(results []*model.CrawlResult) (int, error) {
	var sb strings.Builder
	for _, r := range results {
		if r == nil {
			continue
		}
		w.writeResult(&sb, r)
	}

	s := Summarize(results)
	writeSection(&sb, "BATCH SUMMARY")
	fmt.Fprintf(&sb, "  Seeds:      %d\n", s.Seeds)
	fmt.Fprintf(&sb, "  Succeeded:  %d\n", s.Succeeded)
	fmt.Fprintf(&sb, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(&sb, "  Discovered: %d\n", s.Discovered)
	fmt.Fprintf(&sb, "  New links:  %d\n", s.NewLinks)
	sb.WriteString("\n")

	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, result *model.CrawlResult) {
	w.writeHeader(sb, result)
	w.writeSummary(sb, result)
	w.writeLinks(sb, "NEW LINKS", result.NewLinks, "No new links")
	if w.verbose {
		w.writeLinks(sb, "DISCOVERED LINKS", result.Discovered, "No links discovered")
	}
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        LINKHARVEST REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:     %s\n", result.Seed)
	if result.Domain != "" {
		fmt.Fprintf(sb, "Domain:   %s\n", result.Domain)
	}
	if result.RunID != "" {
		fmt.Fprintf(sb, "Run ID:   %s\n", result.RunID)
	}
	fmt.Fprintf(sb, "Started:  %s\n", formatTime(result.StartedAt))
	fmt.Fprintf(sb, "Duration: %s\n", formatDuration(result.Duration()))
	fmt.Fprintf(sb, "Status:   %s\n", statusText(result.Error))
	sb.WriteString("\n")
}

// writeSummary writes the counters of the crawl.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.CrawlResult) {
	writeSection(sb, "SUMMARY")
	fmt.Fprintf(sb, "  Max links:     %d\n", result.MaxLinks)
	fmt.Fprintf(sb, "  Discovered:    %d\n", len(result.Discovered))
	fmt.Fprintf(sb, "  New:           %d\n", len(result.NewLinks))
	fmt.Fprintf(sb, "  Known:         %d\n", result.KnownLinks)
	fmt.Fprintf(sb, "  Pages fetched: %d\n", result.PagesFetched)
	fmt.Fprintf(sb, "  Pages failed:  %d\n", result.PagesFailed)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLinks(sb *strings.Builder, title string, links []string, empty string) {
	if len(links) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, title)
	if len(links) == 0 {
		fmt.Fprintf(sb, "  %s\n", empty)
	}
	for _, link := range links {
		fmt.Fprintf(sb, "  [+] %s\n", link)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkharvest\n")
	sb.WriteString("https://github.com/nao1215/linkharvest\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// WriteRuns outputs runs as an aligned table.
func (w *SimpleWriter) WriteRuns(runs []*model.CrawlRun) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No crawl runs recorded.\n")
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOMAIN\tSTARTED\tDISCOVERED\tNEW\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.Domain, formatTime(run.StartedAt),
			run.DiscoveredCount, run.NewCount, statusText(run.Error))
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}
	return io.WriteString(w.output, sb.String())
}

// WriteRun outputs a single run with its new links.
func (w *SimpleWriter) WriteRun(run *model.CrawlRun) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run ID:        %s\n", run.ID)
	fmt.Fprintf(&sb, "Seed:          %s\n", run.Seed)
	fmt.Fprintf(&sb, "Domain:        %s\n", run.Domain)
	fmt.Fprintf(&sb, "Started:       %s\n", formatTime(run.StartedAt))
	fmt.Fprintf(&sb, "Duration:      %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(&sb, "Max links:     %d\n", run.MaxLinks)
	fmt.Fprintf(&sb, "Discovered:    %d\n", run.DiscoveredCount)
	fmt.Fprintf(&sb, "New:           %d\n", run.NewCount)
	fmt.Fprintf(&sb, "Pages fetched: %d\n", run.PagesFetched)
	fmt.Fprintf(&sb, "Pages failed:  %d\n", run.PagesFailed)
	fmt.Fprintf(&sb, "Status:        %s\n", statusText(run.Error))
	sb.WriteString("\n")
	w.writeLinks(&sb, "NEW LINKS", run.NewLinks, "No new links")
	return io.WriteString(w.output, sb.String())
}

// WriteDomains outputs one domain per line.
func (w *SimpleWriter) WriteDomains(domains []string) (int, error) {
	if len(domains) == 0 {
		return io.WriteString(w.output, "No domains recorded.\n")
	}
	return WriteLinks(w.output, domains)
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// statusText returns the status for an error message.
func statusText(errMsg string) string {
	if errMsg != "" {
		return "Error - " + errMsg
	}
	return "Complete"
}
