package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
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

// WithVerbose enables verbose output with additional details.
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

// WriteResult outputs the matched documents as a numbered list.
func (w *SimpleWriter) WriteResult(result *index.Result) (int, error) {
	var sb strings.Builder

	if result == nil || len(result.Items) == 0 {
		sb.WriteString("No matching pages.\n")
		return w.output.Write([]byte(sb.String()))
	}

	for i, doc := range result.Items {
		title := doc.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
		fmt.Fprintf(&sb, "   %s\n", doc.Link)

		summary := doc.Summary
		if !w.verbose {
			summary = truncateString(summary, 160)
		}
		if summary != "" {
			fmt.Fprintf(&sb, "   %s\n", summary)
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteRuns outputs one line per run, newest first as given.
func (w *SimpleWriter) WriteRuns(runs []database.Run) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No crawl runs recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-36s  %-23s  %6s  %6s  %6s  %s\n", "RUN", "STARTED", "PAGES", "FAILED", "SEEN", "SEED")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%-36s  %-23s  %6d  %6d  %6d  %s",
			run.ID, run.StartedAt.Format(timeLayout), run.PagesFetched, run.PagesFailed, run.URLsSeen, run.SeedURL)
		if !run.Finished() {
			sb.WriteString("  (interrupted)")
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteRunDetail outputs a run summary followed by its pages and skips.
func (w *SimpleWriter) WriteRunDetail(detail *RunDetail) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, detail.Run)
	w.writePages(&sb, detail)
	w.writeSkips(&sb, detail.Skips)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run header with crawl counters.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run database.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                           CRAWL RUN\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run:            %s\n", run.ID)
	fmt.Fprintf(sb, "Seed:           %s\n", run.SeedURL)
	fmt.Fprintf(sb, "Started:        %s\n", run.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Pages Fetched:  %d\n", run.PagesFetched)
	fmt.Fprintf(sb, "Pages Failed:   %d\n", run.PagesFailed)
	fmt.Fprintf(sb, "URLs Seen:      %d\n", run.URLsSeen)

	if run.Finished() {
		fmt.Fprintf(sb, "Status:         Complete in %s\n", run.Duration().Round(durationPrecision))
	} else {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	}

	sb.WriteString("\n")
}

// writeSection writes a section title between rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writePages writes the fetched pages with their change status.
func (w *SimpleWriter) writePages(sb *strings.Builder, detail *RunDetail) {
	if len(detail.Pages) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "PAGES")

	if len(detail.Pages) == 0 {
		sb.WriteString("  No pages fetched\n\n")
		return
	}

	counts := detail.StatusCounts()
	fmt.Fprintf(sb, "  NEW:       %d\n", counts[database.PageNew])
	fmt.Fprintf(sb, "  CHANGED:   %d\n", counts[database.PageChanged])
	fmt.Fprintf(sb, "  UNCHANGED: %d\n\n", counts[database.PageUnchanged])

	for _, p := range detail.Pages {
		fmt.Fprintf(sb, "  [%s] %s\n", w.getStatusIndicator(p.Status), p.URL)
		if p.Title != "" {
			fmt.Fprintf(sb, "    Title: %s\n", p.Title)
		}
		if w.verbose {
			fmt.Fprintf(sb, "    Hash:  %s (%d bytes of text)\n", shortHash(p.ContentHash), p.BodyLength)
		}
	}
	sb.WriteString("\n")
}

// getStatusIndicator returns a visual indicator for the page status.
func (w *SimpleWriter) getStatusIndicator(status database.PageStatus) string {
	switch status {
	case database.PageNew:
		return "+"
	case database.PageChanged:
		return "~"
	case database.PageUnchanged:
		return "="
	default:
		return "?"
	}
}

// writeSkips writes the URLs that could not be fetched.
func (w *SimpleWriter) writeSkips(sb *strings.Builder, skips []database.SkipEntry) {
	if len(skips) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "SKIPPED")

	if len(skips) == 0 {
		sb.WriteString("  No skipped URLs\n\n")
		return
	}

	for _, s := range skips {
		fmt.Fprintf(sb, "  [-] %s (%s)\n", s.URL, s.Reason)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ownsearch\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
