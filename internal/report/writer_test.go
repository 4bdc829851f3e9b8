package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkharvest/internal/model"
)

// createTestResult creates a result with sample data for testing.
func createTestResult() *model.CrawlResult {
	result := model.NewCrawlResult("http://a.test/", 10)
	result.RunID = "11111111-2222-3333-4444-555555555555"
	result.Domain = "a.test"
	result.Discovered = []string{"http://a.test/p1", "http://a.test/p2"}
	result.NewLinks = []string{"http://a.test/p2"}
	result.KnownLinks = 2
	result.PagesFetched = 2
	result.StartedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	result.FinishedAt = result.StartedAt.Add(4 * time.Second)
	return result
}

func createTestRun() *model.CrawlRun {
	return model.NewCrawlRun(createTestResult())
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"LINKHARVEST REPORT",
			"Seed:     http://a.test/",
			"Domain:   a.test",
			"Duration: 4s",
			"Status:   Complete",
			"Discovered:    2",
			"New:           1",
			"[+] http://a.test/p2",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "[+] http://a.test/p1") {
			t.Error("known links must not be listed as new")
		}
	})

	t.Run("verbose lists discovered links", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "DISCOVERED LINKS") {
			t.Error("expected discovered links section")
		}
	})

	t.Run("hides empty sections by default", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.NewLinks = []string{}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "NEW LINKS") {
			t.Error("expected empty section to be hidden")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No new links") {
			t.Error("expected empty section with WithShowEmpty")
		}
	})

	t.Run("shows failure", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.Fail(errors.New("seed unreachable"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Error - seed unreachable") {
			t.Errorf("expected error status, got %q", buf.String())
		}
	})

	t.Run("batch summary", func(t *testing.T) {
		t.Parallel()

		failed := createTestResult()
		failed.Fail(errors.New("boom"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteBatch([]*model.CrawlResult{createTestResult(), failed, nil}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "BATCH SUMMARY") {
			t.Error("expected batch summary")
		}
		if !strings.Contains(output, "Failed:     2") {
			t.Errorf("expected 2 failures, got %q", output)
		}
		if strings.Count(output, "LINKHARVEST REPORT") != 2 {
			t.Error("expected one report per started crawl")
		}
	})
}

// TestSimpleWriterHistory tests history output.
func TestSimpleWriterHistory(t *testing.T) {
	t.Parallel()

	t.Run("runs table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns([]*model.CrawlRun{createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasPrefix(output, "ID") {
			t.Errorf("expected table header, got %q", output)
		}
		if !strings.Contains(output, "a.test") || !strings.Contains(output, "Complete") {
			t.Errorf("expected run row, got %q", output)
		}
	})

	t.Run("no runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "No crawl runs recorded.\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("single run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRun(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[+] http://a.test/p2") {
			t.Errorf("expected new links, got %q", buf.String())
		}
	})

	t.Run("domains", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteDomains([]string{"a.test", "b.test"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "a.test\nb.test\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.CrawlResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if decoded.Domain != "a.test" || len(decoded.NewLinks) != 1 {
			t.Errorf("unexpected decoded result: %+v", decoded)
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected a single line of output")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("empty history is an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		if _, err := w.WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.WriteDomains(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n[]\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("batch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteBatch([]*model.CrawlResult{createTestResult(), nil}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded BatchReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(decoded.Results) != 1 {
			t.Errorf("expected 1 result, got %d", len(decoded.Results))
		}
		if decoded.Summary.Seeds != 2 || decoded.Summary.Failed != 1 || decoded.Summary.NewLinks != 1 {
			t.Errorf("unexpected summary: %+v", decoded.Summary)
		}
	})
}

// TestFullJSONWriter tests the JSON writer with metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createTestResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded JSONReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", decoded.Version)
	}
	if decoded.Result == nil || decoded.Result.Seed != "http://a.test/" {
		t.Errorf("unexpected result: %+v", decoded.Result)
	}
	if decoded.Batch != nil {
		t.Error("expected no batch for a single result")
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero length")
		}

		output := buf.String()
		for _, want := range []string{
			"# Linkharvest Report",
			"| Property",
			"`http://a.test/`",
			"```mermaid",
			"- http://a.test/p2",
			"linkharvest",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes failure alert", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.Fail(errors.New("seed unreachable"))

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Error("expected caution alert")
		}
	})

	t.Run("no chart without links", func(t *testing.T) {
		t.Parallel()

		result := model.NewCrawlResult("http://a.test/", 10)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart")
		}
		if !strings.Contains(buf.String(), "No new links.") {
			t.Error("expected empty new links text")
		}
	})

	t.Run("batch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteBatch([]*model.CrawlResult{createTestResult()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# Linkharvest Batch Report") {
			t.Error("expected batch header")
		}
		if !strings.Contains(buf.String(), "## http://a.test/") {
			t.Error("expected a section per seed")
		}
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.WriteRuns([]*model.CrawlRun{createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.WriteRun(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.WriteDomains([]string{"a.test"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Crawl History", "# Crawl Run", "<details>", "# Domains", "- a.test"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}

	if _, err := mw.WriteBatch([]*model.CrawlResult{createTestResult()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestSummarize tests batch aggregation.
func TestSummarize(t *testing.T) {
	t.Parallel()

	failed := createTestResult()
	failed.Fail(errors.New("boom"))

	got := Summarize([]*model.CrawlResult{createTestResult(), failed, nil})
	want := BatchSummary{Seeds: 3, Succeeded: 1, Failed: 2, Discovered: 4, NewLinks: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

// TestWriteLinks tests the output artifact format.
func TestWriteLinks(t *testing.T) {
	t.Parallel()

	t.Run("one link per line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := WriteLinks(&buf, []string{"http://a.test/p1", "http://a.test/p2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "http://a.test/p1\nhttp://a.test/p2\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("no links writes nothing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := WriteLinks(&buf, nil)
		if err != nil || n != 0 || buf.Len() != 0 {
			t.Errorf("expected empty output, got %q (%d, %v)", buf.String(), n, err)
		}
	})
}

// TestWriteLinksFile tests writing the artifact to disk.
func TestWriteLinksFile(t *testing.T) {
	t.Parallel()

	t.Run("overwrites previous content", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "output_links.txt")
		if err := WriteLinksFile(path, []string{"http://a.test/old1", "http://a.test/old2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := WriteLinksFile(path, []string{"http://a.test/new"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if string(data) != "http://a.test/new\n" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("empty list truncates", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "output_links.txt")
		if err := WriteLinksFile(path, []string{"http://a.test/p1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := WriteLinksFile(path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat: %v", err)
		}
		if info.Size() != 0 {
			t.Errorf("expected empty file, got %d bytes", info.Size())
		}
	})

	t.Run("leaves no temporary files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := WriteLinksFile(filepath.Join(dir, "out.txt"), []string{"http://a.test/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected only the output file, got %d entries", len(entries))
		}
	})
}
