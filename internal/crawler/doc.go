// Package crawler walks a web site from a seed URL and turns every page into
// a record of title, visible text and URL.
//
// # Architecture
//
// The package is built from four pieces, leaf first:
//
//   - Extractor: a streaming tokenizer pass over one HTML document that
//     collects the title, the visible text and the links, classified as
//     internal (same host:port as the page) or external
//   - HTTPFetcher: one bounded-time GET per URL with the fetch policy
//     (status 200, text/html or text/plain, decodable body)
//   - Engine: a fixed pool of workers pulling URLs from a shared frontier
//     that never queues the same URL twice
//   - Bridge: a single goroutine handing records to the injected Consumer
//
// Design decision: We implement the crawler ourselves rather than using a
// crawling framework because:
//  1. Extraction is a single streaming pass; no DOM is built per page
//  2. The fetch policy (which responses are skipped and why) must be exact
//  3. Termination is detected from the frontier state, which frameworks hide
//
// # Failure Policy
//
// A URL that cannot be fetched is skipped, never retried, and never stops
// the crawl. HTTPFetcher reports every such case as a *FetchError that
// matches ErrInvalidURL and carries the reason.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(client, crawler.WithTimeout(10*time.Second))
//	engine := crawler.New(fetcher,
//	    crawler.WithWorkers(10),
//	    crawler.WithConsumer(crawler.ConsumerFunc(func(r model.CrawlRecord) {
//	        idx.IndexDocument(r.BodyText, r.Title, r.URL)
//	    })),
//	)
//	stats, err := engine.Run(ctx, "https://example.com/")
package crawler
