package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
)

// createTestResult creates a search result with sample documents.
func createTestResult() *index.Result {
	return &index.Result{Items: []index.Document{
		{
			Vector:  []string{"Camera", "Focus"},
			Summary: "Fast autofocus for wildlife photography.",
			Title:   "Camera Focus",
			Link:    "https://example.com/camera",
		},
		{
			Vector:  []string{"Lenses"},
			Summary: "A guide to lenses.",
			Title:   "",
			Link:    "https://example.com/lenses",
		},
	}}
}

// createTestRun creates a finished run.
func createTestRun() database.Run {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return database.Run{
		ID:           uuid.MustParse("0190c5e2-7b1a-7c3d-9e4f-123456789abc"),
		SeedURL:      "https://example.com/",
		StartedAt:    start,
		FinishedAt:   start.Add(2500 * time.Millisecond),
		PagesFetched: 3,
		PagesFailed:  1,
		URLsSeen:     5,
	}
}

// createTestDetail creates a run detail with pages of every status.
func createTestDetail() *RunDetail {
	return &RunDetail{
		Run: createTestRun(),
		Pages: []database.PageEntry{
			{URL: "https://example.com/", Title: "Home", ContentHash: "aaaaaaaaaaaaaaaaaaaa", BodyLength: 10, Status: database.PageUnchanged},
			{URL: "https://example.com/about", Title: "About", ContentHash: "bbbbbbbbbbbbbbbbbbbb", BodyLength: 20, Status: database.PageNew},
			{URL: "https://example.com/news", Title: "News", ContentHash: "cccccccccccccccccccc", BodyLength: 30, Status: database.PageChanged},
		},
		Skips: []database.SkipEntry{
			{URL: "https://example.com/logo.png", Reason: "content-type"},
		},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes numbered results", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteResult(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "1. Camera Focus") {
			t.Errorf("expected first result title, got:\n%s", output)
		}
		if !strings.Contains(output, "https://example.com/camera") {
			t.Error("expected result link")
		}
		if !strings.Contains(output, "2. (untitled)") {
			t.Errorf("expected untitled placeholder, got:\n%s", output)
		}
	})

	t.Run("writes empty result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteResult(&index.Result{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No matching pages") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("truncates long summaries unless verbose", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("word ", 100)
		result := &index.Result{Items: []index.Document{{Summary: long, Title: "Long", Link: "https://example.com/"}}}

		var quiet bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).WriteResult(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(quiet.String(), long) || !strings.Contains(quiet.String(), "...") {
			t.Error("expected summary to be truncated")
		}

		var verbose bytes.Buffer
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).WriteResult(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(verbose.String(), long) {
			t.Error("expected full summary in verbose mode")
		}
	})

	t.Run("writes runs", func(t *testing.T) {
		t.Parallel()

		interrupted := createTestRun()
		interrupted.ID = uuid.MustParse("0190c5e2-7b1a-7c3d-9e4f-000000000001")
		interrupted.FinishedAt = time.Time{}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns([]database.Run{createTestRun(), interrupted}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "0190c5e2-7b1a-7c3d-9e4f-123456789abc") {
			t.Error("expected full run id")
		}
		if !strings.Contains(output, "https://example.com/") {
			t.Error("expected seed url")
		}
		if strings.Count(output, "(interrupted)") != 1 {
			t.Errorf("expected one interrupted marker, got:\n%s", output)
		}
	})

	t.Run("writes no runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No crawl runs recorded") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("writes run detail", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRunDetail(createTestDetail()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"CRAWL RUN",
			"Pages Fetched:  3",
			"Complete in 2.5s",
			"[+] https://example.com/about",
			"[~] https://example.com/news",
			"[=] https://example.com/",
			"[-] https://example.com/logo.png (content-type)",
			"NEW:       1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Hash:") {
			t.Error("hashes should only be shown in verbose mode")
		}
	})

	t.Run("hides empty sections unless requested", func(t *testing.T) {
		t.Parallel()

		detail := &RunDetail{Run: createTestRun()}

		var hidden bytes.Buffer
		if _, err := NewSimpleWriter(&hidden).WriteRunDetail(detail); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(hidden.String(), "SKIPPED") {
			t.Error("expected empty skip section to be hidden")
		}

		var shown bytes.Buffer
		if _, err := NewSimpleWriter(&shown, WithShowEmpty(true)).WriteRunDetail(detail); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(shown.String(), "No skipped URLs") {
			t.Error("expected empty skip section to be shown")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes result in index shape", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteResult(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded index.Result
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Items) != 2 || decoded.Items[0].Title != "Camera Focus" {
			t.Errorf("unexpected decoded result: %+v", decoded)
		}
		if !strings.Contains(buf.String(), `"vector":["Camera","Focus"]`) {
			t.Errorf("expected compact vector field, got %s", buf.String())
		}
	})

	t.Run("writes empty items for nil result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteResult(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != `{"items":[]}` {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("writes runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteRuns([]database.Run{createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Runs []database.Run `json:"runs"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Runs) != 1 || decoded.Runs[0].ID != createTestRun().ID {
			t.Errorf("unexpected runs: %+v", decoded.Runs)
		}
	})

	t.Run("omits finished_at for interrupted runs", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.FinishedAt = time.Time{}

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteRuns([]database.Run{run}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "finished_at") {
			t.Errorf("expected finished_at to be omitted, got %s", buf.String())
		}
	})

	t.Run("writes run detail with empty lists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteRunDetail(&RunDetail{Run: createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, `"pages":[]`) || !strings.Contains(output, `"skips":[]`) {
			t.Errorf("expected empty lists, got %s", output)
		}
	})

	t.Run("ends with newline", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteResult(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})
}

// TestWithIndent tests pretty-printed JSON output.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opt    JSONWriterOption
		indent string
	}{
		{"pretty print", WithPrettyPrint(), "\n  \"items\""},
		{"tab indent", WithIndent("", "\t"), "\n\t\"items\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewJSONWriter(&buf, tt.opt).WriteResult(createTestResult()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.indent) {
				t.Errorf("expected indentation %q, got %s", tt.indent, buf.String())
			}
		})
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes result table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteResult(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Search Results") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "(https://example.com/camera)") {
			t.Errorf("expected linked title, got:\n%s", output)
		}
		if !strings.Contains(output, "[https://example.com/lenses](https://example.com/lenses)") {
			t.Errorf("expected url as link text for untitled page, got:\n%s", output)
		}
	})

	t.Run("writes note for empty result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteResult(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No indexed page matched the query.") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("writes runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteRuns([]database.Run{createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Crawl History") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "Complete") {
			t.Error("expected run status")
		}
	})

	t.Run("writes run detail with chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteRunDetail(createTestDetail()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Run",
			"## Pages",
			"## Skipped URLs",
			"mermaid",
			"Changes Since Previous Crawl",
			"aaaaaaaaaaaa",
			"content-type",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "aaaaaaaaaaaaa") {
			t.Error("expected content hash to be shortened")
		}
	})

	t.Run("marks interrupted runs", func(t *testing.T) {
		t.Parallel()

		detail := createTestDetail()
		detail.Run.FinishedAt = time.Time{}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteRunDetail(detail); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Interrupted") {
			t.Error("expected interrupted status")
		}
	})
}

// errWriter always fails.
type errWriter struct{}

func (errWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to several destinations.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := multi.WriteRuns([]database.Run{createTestRun()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected total %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.HasPrefix(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		multi := NewMultiWriter(NewJSONWriter(errWriter{}), NewJSONWriter(&buf))

		if _, err := multi.WriteResult(createTestResult()); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})

	t.Run("writes detail to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewMarkdownWriter(&buf1), NewSimpleWriter(&buf2))

		if _, err := multi.WriteRunDetail(createTestDetail()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf1.Len() == 0 || buf2.Len() == 0 {
			t.Error("expected both writers to have content")
		}
	})
}

// TestTruncateString tests string truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"long string", "hello world", 8, "hello..."},
		{"tiny max", "hello", 2, "he"},
		{"multibyte runes", "日本語のテキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, expected %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

// TestShortHash tests content hash abbreviation.
func TestShortHash(t *testing.T) {
	t.Parallel()

	if got := shortHash(""); got != "-" {
		t.Errorf("shortHash(\"\") = %q", got)
	}
	if got := shortHash("abc"); got != "abc" {
		t.Errorf("shortHash(\"abc\") = %q", got)
	}
	if got := shortHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortHash = %q", got)
	}
}
