// Package report provides output formatting for search results and crawl history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Tables and charts for sharing
//
// Design decision: We separate report writing from the data it formats
// (index documents and database rows) so new output formats can be added
// without touching storage code.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
