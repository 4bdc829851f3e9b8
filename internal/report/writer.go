package report

import (
	"io"
	"time"

	"github.com/nao1215/linkharvest/internal/model"
)

// Writer defines the interface for crawl report output.
// Implementations write crawl results in various formats.
type Writer interface {
	// Write outputs the report of one crawl.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.CrawlResult) (int, error)

	// WriteBatch outputs the reports of several crawls followed by a
	// summary. Nil entries are crawls that never started and are skipped.
	WriteBatch(results []*model.CrawlResult) (int, error)
}

// HistoryWriter defines the interface for crawl history output.
type HistoryWriter interface {
	// WriteRuns outputs a list of runs, newest first.
	WriteRuns(runs []*model.CrawlRun) (int, error)

	// WriteRun outputs a single run together with its new links.
	WriteRun(run *model.CrawlRun) (int, error)

	// WriteDomains outputs the known domains.
	WriteDomains(domains []string) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the batch report to all configured Writers.
func (m *MultiWriter) WriteBatch(results []*model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// BatchSummary aggregates the results of a batch.
type BatchSummary struct {
	Seeds      int `json:"seeds"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Discovered int `json:"discovered"`
	NewLinks   int `json:"new_links"`
}

// Summarize aggregates results. Nil entries count as failed seeds.
func Summarize(results []*model.CrawlResult) BatchSummary {
	s := BatchSummary{Seeds: len(results)}
	for _, r := range results {
		if r == nil || !r.Succeeded() {
			s.Failed++
			if r == nil {
				continue
			}
		} else {
			s.Succeeded++
		}
		s.Discovered += len(r.Discovered)
		s.NewLinks += len(r.NewLinks)
	}
	return s
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for timestamps in text and Markdown reports.
const timeLayout = "2006-01-02 15:04:05 MST"

// formatTime formats t for display. The zero time renders as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
