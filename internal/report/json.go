package report

import (
	"encoding/json"
	"io"

	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
// Search results use the same {"items": [...]} shape as the index file, so
// a query answer can be fed back to anything that reads the index.
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

// WriteResult outputs the matched documents as {"items": [...]}.
// A nil result is written as an empty item list.
func (w *JSONWriter) WriteResult(result *index.Result) (int, error) {
	if result == nil || result.Items == nil {
		result = &index.Result{Items: []index.Document{}}
	}
	return w.writeJSON(result)
}

// runList wraps runs so the top level stays an object.
type runList struct {
	Runs []database.Run `json:"runs"`
}

// WriteRuns outputs the runs as {"runs": [...]}.
func (w *JSONWriter) WriteRuns(runs []database.Run) (int, error) {
	if runs == nil {
		runs = []database.Run{}
	}
	return w.writeJSON(runList{Runs: runs})
}

// WriteRunDetail outputs the run with its pages and skips.
func (w *JSONWriter) WriteRunDetail(detail *RunDetail) (int, error) {
	out := *detail
	if out.Pages == nil {
		out.Pages = []database.PageEntry{}
	}
	if out.Skips == nil {
		out.Skips = []database.SkipEntry{}
	}
	return w.writeJSON(out)
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
