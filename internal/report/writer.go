package report

import (
	"io"
	"time"

	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
)

// Writer defines the interface for report output.
// Implementations write search results and crawl history in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteResult outputs the documents a query matched, best first.
	// Returns the number of bytes written and any error encountered.
	WriteResult(result *index.Result) (int, error)

	// WriteRuns outputs a list of crawl runs.
	WriteRuns(runs []database.Run) (int, error)

	// WriteRunDetail outputs one run with the pages it fetched and the
	// URLs it skipped.
	WriteRunDetail(detail *RunDetail) (int, error)
}

// RunDetail is one crawl run together with its pages and skips.
type RunDetail struct {
	Run   database.Run         `json:"run"`
	Pages []database.PageEntry `json:"pages"`
	Skips []database.SkipEntry `json:"skips"`
}

// StatusCounts counts the pages of the run by change status.
func (d *RunDetail) StatusCounts() map[database.PageStatus]int {
	counts := make(map[database.PageStatus]int, 3)
	for _, p := range d.Pages {
		counts[p.Status]++
	}
	return counts
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because every destination may want a different
// format of the same data.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteResult outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteResult(result *index.Result) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteResult(result) })
}

// WriteRuns outputs the runs to all configured Writers.
func (m *MultiWriter) WriteRuns(runs []database.Run) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRuns(runs) })
}

// WriteRunDetail outputs the run detail to all configured Writers.
func (m *MultiWriter) WriteRunDetail(detail *RunDetail) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRunDetail(detail) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const (
	// timeLayout is used for every timestamp in human-readable output.
	timeLayout = "2006-01-02 15:04:05 MST"

	// durationPrecision rounds run durations.
	durationPrecision = 10 * time.Millisecond

	// shortHashLen is how many hex digits of a content hash are shown.
	shortHashLen = 12
)

// shortHash abbreviates a content hash for tables. Empty hashes become "-".
func shortHash(hash string) string {
	if hash == "" {
		return "-"
	}
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
