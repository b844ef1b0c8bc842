// Package transport builds the HTTP client the crawler fetches pages with.
//
// The client optionally routes every connection through a SOCKS5 proxy,
// keeps cookies across requests of one crawl, caps redirects, and injects a
// configured cookie and extra headers into every request (including
// redirects).
//
// # Usage
//
//	client, err := transport.NewClient(
//	    transport.WithTimeout(10*time.Second),
//	    transport.WithProxy("127.0.0.1:9050"),
//	    transport.WithHeaders(map[string]string{"Authorization": "Bearer ..."}),
//	)
package transport
