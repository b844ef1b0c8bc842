// Package main provides the entry point for the ownsearch CLI.
//
// ownsearch crawls a website, extracts the visible text of every page and
// keeps it in a local full-text index that can be searched from the command
// line.
//
// Usage:
//
//	ownsearch crawl <seed-url>
//	ownsearch search <query...>
//	ownsearch history [run-id]
//
// See --help for all available options.
package main

// main is the entry point for ownsearch.
func main() {
	Execute()
}
