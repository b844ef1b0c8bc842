// Package database provides SQLite-based crawl history for ownsearch.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run with its final counters
//   - The pages each run published, with a SHA3 hash of their body text
//   - The URLs each run skipped and why
//
// Comparing content hashes across runs tells which pages are new, changed
// or unchanged since the previous crawl of the same URL.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// database is a single file next to the text index and the CGO-free driver
// keeps cross-compilation easy. WAL mode lets `ownsearch history` read while
// a crawl is writing.
package database
