// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for sharing crawl summaries
//
// Writers implement the Writer interface for crawl results and the
// HistoryWriter interface for crawl history, so the CLI can pick a format
// once and use it for every command.
//
// WriteLinks and WriteLinksFile produce the plain text artifact that holds
// the new links of a crawl, one URL per line.
package report
