package crawler

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/ownsearch/ownsearch/internal/model"
)

// Fetch policy defaults.
const (
	// DefaultTimeout bounds a single fetch, from request to fully read body.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize limits how much of a body is read (10 MiB).
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "ownsearch/1.0 (+https://github.com/ownsearch/ownsearch)"
)

// acceptedStatus lists the response codes whose bodies are processed.
var acceptedStatus = map[int]bool{
	http.StatusOK: true,
}

// acceptedMediaTypes lists the media types whose bodies are processed.
var acceptedMediaTypes = map[string]bool{
	"text/html":  true,
	"text/plain": true,
}

// errBodyTooLarge is the cause of a decode failure for oversized bodies.
var errBodyTooLarge = errors.New("body exceeds size limit")

// errInvalidUTF8 is the cause of a decode failure for malformed UTF-8.
var errInvalidUTF8 = errors.New("body is not valid utf-8")

// Page is a successfully fetched and extracted document.
type Page struct {
	*ExtractionResult

	// URL is the requested URL; it is also the base for link resolution.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the media type without parameters.
	ContentType string
}

// Record converts the page into the record handed to consumers.
func (p *Page) Record() model.CrawlRecord {
	return model.CrawlRecord{
		URL:      p.URL,
		Title:    p.Title,
		BodyText: p.BodyText,
	}
}

// HTTPFetcher performs one bounded-time GET per URL and applies the fetch
// policy to the response.
//
// Design decision: Every rejection is a *FetchError matching ErrInvalidURL.
// The engine only needs to know "skip this URL", while logs and the crawl
// history want the reason, so both are carried by one value.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets how many decoded bytes of a body are accepted.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header of each request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// NewHTTPFetcher creates a fetcher using client. A nil client means a plain
// http.Client without its own timeout.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}

	f := &HTTPFetcher{
		client:      client,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves pageURL once and extracts it.
// Returns a *FetchError (matching ErrInvalidURL) when the request fails,
// times out, or the response is rejected by status, media type or decoding.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, invalidURL(pageURL, ReasonTransport, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.1")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, invalidURL(pageURL, f.failureReason(ctx, ReasonTransport), err)
	}
	defer resp.Body.Close()

	if !acceptedStatus[resp.StatusCode] {
		return nil, invalidURL(pageURL, ReasonStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, invalidURL(pageURL, ReasonContentType, fmt.Errorf("unparsable content type %q: %w", contentType, err))
	}
	if !acceptedMediaTypes[mediaType] {
		return nil, invalidURL(pageURL, ReasonContentType, fmt.Errorf("unsupported content type %q", mediaType))
	}

	text, err := f.readText(resp, contentType, params)
	if err != nil {
		return nil, invalidURL(pageURL, f.failureReason(ctx, ReasonDecode), err)
	}

	return &Page{
		ExtractionResult: ExtractString(pageURL, text),
		URL:              pageURL,
		StatusCode:       resp.StatusCode,
		ContentType:      mediaType,
	}, nil
}

// failureReason reports ReasonTimeout when the request deadline expired and
// fallback otherwise.
func (f *HTTPFetcher) failureReason(ctx context.Context, fallback FailureReason) FailureReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return fallback
}

// readText decompresses, size-limits and charset-decodes the body.
func (f *HTTPFetcher) readText(resp *http.Response, contentType string, params map[string]string) (string, error) {
	body, err := decompress(resp)
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, f.maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return "", errBodyTooLarge
	}

	return decodeCharset(raw, contentType, params)
}

// decompress undoes the Content-Encoding of the response.
func decompress(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return r, nil
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// decodeCharset converts raw to a UTF-8 string.
// A declared charset that is unknown is a failure. UTF-8 content must be
// well formed; other charsets are converted with x/text.
func decodeCharset(raw []byte, contentType string, params map[string]string) (string, error) {
	if declared, ok := params["charset"]; ok {
		if enc, _ := charset.Lookup(declared); enc == nil {
			return "", fmt.Errorf("unknown charset %q", declared)
		}
	}

	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" {
		raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(raw) {
			return "", errInvalidUTF8
		}
		return string(raw), nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}
