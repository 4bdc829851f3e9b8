package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkharvest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl report in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Linkharvest Report")
	md.PlainText("")
	w.writeResult(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a summary table followed by every crawl report.
func (w *MarkdownWriter) WriteBatch(results []*model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Linkharvest Batch Report")
	md.PlainText("")

	s := Summarize(results)
	md.Table(markdown.TableSet{
		Header: []string{"Seeds", "Succeeded", "Failed", "Discovered", "New Links"},
		Rows: [][]string{{
			strconv.Itoa(s.Seeds),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Discovered),
			strconv.Itoa(s.NewLinks),
		}},
	})
	md.PlainText("")

	for _, r := range results {
		if r == nil {
			continue
		}
		md.H2(r.Seed)
		md.PlainText("")
		w.writeResult(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeResult(md *markdown.Markdown, result *model.CrawlResult) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + result.Seed + "`"},
			{"Domain", "`" + result.Domain + "`"},
			{"Run ID", "`" + result.RunID + "`"},
			{"Started", formatTime(result.StartedAt)},
			{"Duration", formatDuration(result.Duration())},
			{"Max Links", strconv.Itoa(result.MaxLinks)},
			{"Discovered", strconv.Itoa(len(result.Discovered))},
			{"New", strconv.Itoa(len(result.NewLinks))},
			{"Known", strconv.Itoa(result.KnownLinks)},
			{"Pages Fetched", strconv.Itoa(result.PagesFetched)},
			{"Pages Failed", strconv.Itoa(result.PagesFailed)},
			{"Status", markdownStatus(result.Error)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, result)

	if len(result.Discovered) > 0 {
		w.writePieChart(md, result)
	}

	md.H3("New Links")
	md.PlainText("")
	if len(result.NewLinks) == 0 {
		md.PlainText("No new links.")
	} else {
		md.BulletList(result.NewLinks...)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of new against already known
// discovered links.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.CrawlResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Discovered Links"),
		piechart.WithShowData(true),
	)

	newCount := len(result.NewLinks)
	seen := len(result.Discovered) - newCount
	if newCount > 0 {
		chart.LabelAndIntValue("New", uint64(newCount))
	}
	if seen > 0 {
		chart.LabelAndIntValue("Already known", uint64(seen))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert summarizing the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.CrawlResult) {
	switch {
	case result.Error != "":
		md.Cautionf("Crawl failed: %s", result.Error)
	case result.PagesFailed > 0:
		md.Warningf("%d page(s) could not be fetched and were skipped.", result.PagesFailed)
	case len(result.NewLinks) > 0:
		md.Importantf("%d new link(s) found.", len(result.NewLinks))
	case len(result.Discovered) > 0:
		md.Note("Every discovered link was already known.")
	default:
		md.Tip("No links were discovered. Try a larger max links value or another seed page.")
	}
	md.PlainText("")
}

// WriteRuns outputs runs as a table.
func (w *MarkdownWriter) WriteRuns(runs []*model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No crawl runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			"`" + run.ID + "`",
			run.Domain,
			formatTime(run.StartedAt),
			strconv.Itoa(run.DiscoveredCount),
			strconv.Itoa(run.NewCount),
			markdownStatus(run.Error),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Domain", "Started", "Discovered", "New", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteRun outputs a single run with its new links.
func (w *MarkdownWriter) WriteRun(run *model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Run " + run.ID)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + run.Seed + "`"},
			{"Domain", "`" + run.Domain + "`"},
			{"Started", formatTime(run.StartedAt)},
			{"Duration", formatDuration(run.Duration())},
			{"Max Links", strconv.Itoa(run.MaxLinks)},
			{"Discovered", strconv.Itoa(run.DiscoveredCount)},
			{"New", strconv.Itoa(run.NewCount)},
			{"Status", markdownStatus(run.Error)},
		},
	})
	md.PlainText("")

	md.H2("New Links")
	md.PlainText("")
	if len(run.NewLinks) == 0 {
		md.PlainText("No new links.")
	} else {
		md.Details(strconv.Itoa(len(run.NewLinks))+" link(s)", strings.Join(run.NewLinks, "\n"))
	}

	return len(md.String()), md.Build()
}

// WriteDomains outputs domains as a bullet list.
func (w *MarkdownWriter) WriteDomains(domains []string) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Domains")
	md.PlainText("")
	if len(domains) == 0 {
		md.PlainText("No domains recorded.")
	} else {
		md.BulletList(domains...)
	}

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkharvest](https://github.com/nao1215/linkharvest)*")
}

func markdownStatus(errMsg string) string {
	if errMsg != "" {
		return "❌ Error - " + errMsg
	}
	return "✅ Complete"
}
