// Package model defines the data passed from the crawler to its consumers.
//
// CrawlRecord is the only type: one successfully fetched page reduced to its
// URL, title and visible text. The index, the history database and the
// reports all consume it.
//
// Design decision: We keep the record in its own package to avoid circular
// dependencies. The crawler produces records while the index and database
// packages store them, and neither side should import the other.
package model
