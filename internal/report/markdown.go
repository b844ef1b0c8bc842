package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteResult outputs the matched documents as a ranked table.
func (w *MarkdownWriter) WriteResult(result *index.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Search Results")
	md.PlainText("")

	if result == nil || len(result.Items) == 0 {
		md.Note("No indexed page matched the query.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(result.Items))
	for i, doc := range result.Items {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			linkText(doc.Title, doc.Link),
			escapeCell(truncateString(doc.Summary, 120)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Page", "Summary"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// WriteRuns outputs the crawl runs as a table.
func (w *MarkdownWriter) WriteRuns(runs []database.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.Note("No crawl has been recorded yet.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			"`" + run.ID.String() + "`",
			run.SeedURL,
			run.StartedAt.Format(timeLayout),
			strconv.Itoa(run.PagesFetched),
			strconv.Itoa(run.PagesFailed),
			strconv.Itoa(run.URLsSeen),
			w.getStatusText(run),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Run", "Seed", "Started", "Pages", "Failed", "Seen", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// WriteRunDetail outputs one run with its pages and skipped URLs.
func (w *MarkdownWriter) WriteRunDetail(detail *RunDetail) (int, error) {
	md := markdown.NewMarkdown(w.output)
	run := detail.Run

	md.H1("Crawl Run")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID.String() + "`"},
			{"Seed", run.SeedURL},
			{"Started", run.StartedAt.Format(timeLayout)},
			{"Pages Fetched", strconv.Itoa(run.PagesFetched)},
			{"Pages Failed", strconv.Itoa(run.PagesFailed)},
			{"URLs Seen", strconv.Itoa(run.URLsSeen)},
			{"Status", w.getStatusText(run)},
		},
	})
	md.PlainText("")

	w.writePages(md, detail)
	w.writeSkips(md, detail.Skips)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(run database.Run) string {
	if !run.Finished() {
		return "⚠️ Interrupted"
	}
	return "✅ Complete (" + run.Duration().Round(durationPrecision).String() + ")"
}

// writePages writes the page table and a pie chart of change statuses.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, detail *RunDetail) {
	md.H2("Pages")
	md.PlainText("")

	if len(detail.Pages) == 0 {
		md.PlainText("No pages were fetched.")
		md.PlainText("")
		return
	}

	w.writePieChart(md, detail.StatusCounts())

	rows := make([][]string, len(detail.Pages))
	for i, p := range detail.Pages {
		rows[i] = []string{
			linkText(p.Title, p.URL),
			string(p.Status),
			strconv.Itoa(p.BodyLength),
			"`" + shortHash(p.ContentHash) + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Status", "Text Length", "Hash"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for the page status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[database.PageStatus]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Changes Since Previous Crawl"),
		piechart.WithShowData(true),
	)

	for _, status := range []database.PageStatus{database.PageNew, database.PageChanged, database.PageUnchanged} {
		if n := counts[status]; n > 0 {
			chart.LabelAndIntValue(string(status), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSkips writes the table of skipped URLs.
func (w *MarkdownWriter) writeSkips(md *markdown.Markdown, skips []database.SkipEntry) {
	md.H2("Skipped URLs")
	md.PlainText("")

	if len(skips) == 0 {
		md.Tip("Every discovered URL was fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(skips))
	for i, s := range skips {
		rows[i] = []string{s.URL, s.Reason}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by ownsearch*")
}

// linkText renders a Markdown link, falling back to the URL as its text.
func linkText(title, link string) string {
	if title == "" {
		title = link
	}
	return "[" + escapeCell(title) + "](" + link + ")"
}

// escapeCell keeps pipes and newlines from breaking table rows.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
