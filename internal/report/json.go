package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkharvest/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl result in JSON format.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(result)
}

// WriteBatch outputs the results and their summary in JSON format.
func (w *JSONWriter) WriteBatch(results []*model.CrawlResult) (int, error) {
	return w.writeJSON(newBatchReport(results))
}

// WriteRuns outputs runs as a JSON array.
func (w *JSONWriter) WriteRuns(runs []*model.CrawlRun) (int, error) {
	if runs == nil {
		runs = []*model.CrawlRun{}
	}
	return w.writeJSON(runs)
}

// WriteRun outputs a single run.
func (w *JSONWriter) WriteRun(run *model.CrawlRun) (int, error) {
	return w.writeJSON(run)
}

// WriteDomains outputs domains as a JSON array.
func (w *JSONWriter) WriteDomains(domains []string) (int, error) {
	if domains == nil {
		domains = []string{}
	}
	return w.writeJSON(domains)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// BatchReport is the JSON form of a batch.
type BatchReport struct {
	Results []*model.CrawlResult `json:"results"`
	Summary BatchSummary         `json:"summary"`
}

func newBatchReport(results []*model.CrawlResult) *BatchReport {
	started := make([]*model.CrawlResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			started = append(started, r)
		}
	}
	return &BatchReport{Results: started, Summary: Summarize(results)}
}

// JSONReport wraps a crawl result with metadata about the tool that
// produced it.
type JSONReport struct {
	// Version is the linkharvest version that generated this report.
	Version string `json:"version"`

	// Result is the crawl result.
	Result *model.CrawlResult `json:"result,omitempty"`

	// Batch holds the results when several seeds were crawled.
	Batch *BatchReport `json:"batch,omitempty"`
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the linkharvest version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the crawl result wrapped with metadata.
func (w *FullJSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Result: result})
}

// WriteBatch outputs the batch wrapped with metadata.
func (w *FullJSONWriter) WriteBatch(results []*model.CrawlResult) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Batch: newBatchReport(results)})
}
