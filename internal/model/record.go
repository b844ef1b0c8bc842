package model

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// CrawlRecord is the unit of work a crawl produces for every page that passed
// the fetch policy. It is what the consumer bridge hands to the text index and
// the crawl history.
type CrawlRecord struct {
	// URL is the absolute, fragment-stripped address the page was fetched from.
	URL string `json:"url"`

	// Title is the text of the last non-empty <title> element.
	// Empty for pages without one (including text/plain pages).
	Title string `json:"title"`

	// BodyText is the visible text of the page: trimmed text fragments
	// outside script/style joined with a single space.
	BodyText string `json:"body_text"`
}

// ContentHash returns the hex-encoded SHA3-256 digest of the body text.
// It is used by the crawl history to detect pages whose text did not change
// between runs. An empty body yields an empty hash.
func (r CrawlRecord) ContentHash() string {
	if r.BodyText == "" {
		return ""
	}

	sum := sha3.Sum256([]byte(r.BodyText))
	return hex.EncodeToString(sum[:])
}
