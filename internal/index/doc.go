// Package index is a small full-text index over crawled pages.
//
// Documents are stored in insertion order with a term vector built by
// Vectorize. A query is vectorized the same way and each document is scored
// by how many times the query terms occur in its vector. There is no case
// folding, stemming or stop-word removal: "Camera" and "camera" are
// different terms.
//
// The store is persisted as a single JSON document:
//
//	{"items": [{"vector": [...], "summary": "...", "title": "...", "link": "..."}]}
//
// # Usage
//
//	idx, err := index.Open("text_index.json")
//	idx.IndexDocument(bodyText, title, pageURL)
//	if err := idx.Save(); err != nil { ... }
//	matches := idx.Query("camera focus", index.DefaultMatchCount)
package index
