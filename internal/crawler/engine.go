package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ownsearch/ownsearch/internal/model"
)

// DefaultWorkers is the number of concurrent fetch workers.
const DefaultWorkers = 10

// DefaultRecordBuffer is the capacity of the channel between workers and
// the consumer bridge.
const DefaultRecordBuffer = 64

// Fetcher retrieves and extracts one page. Any error means the URL is
// skipped; HTTPFetcher returns errors matching ErrInvalidURL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// SkipHandler is told about every URL whose fetch failed.
// It is called from worker goroutines and must be safe for concurrent use.
type SkipHandler func(pageURL string, err error)

// Stats summarizes a finished crawl.
type Stats struct {
	// PagesFetched is the number of pages fetched and published.
	PagesFetched int

	// PagesFailed is the number of URLs skipped because the fetch failed.
	PagesFailed int

	// URLsSeen is the number of distinct URLs that entered the frontier.
	URLsSeen int
}

// Engine crawls a site with a fixed pool of workers sharing one frontier.
//
// Design decision: Workers are long-lived goroutines pulling from the
// frontier instead of one goroutine per URL because:
//  1. The number of concurrent requests is fixed by construction
//  2. Discovered links feed back into the same queue without spawning work
//  3. Termination is a property of the frontier (empty and idle), not of
//     goroutine bookkeeping
type Engine struct {
	fetcher Fetcher

	// workers is the size of the worker pool.
	workers int

	// followExternal also queues links to other hosts.
	followExternal bool

	// consumer receives page records. When nil no records are produced.
	consumer Consumer

	// onSkip is told about failed fetches. Optional.
	onSkip SkipHandler

	// maxPages stops the crawl after that many pages. 0 means unlimited.
	maxPages int

	// limiter paces requests across all workers. Nil means unlimited.
	limiter *rate.Limiter

	// recordBuffer is the capacity of the record channel.
	recordBuffer int

	// filter decides which discovered links are queued.
	filter linkFilter

	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of concurrent workers. Values below 1 are
// ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithFollowExternal also crawls links that leave the seed's host.
func WithFollowExternal(follow bool) Option {
	return func(e *Engine) {
		e.followExternal = follow
	}
}

// WithConsumer registers the consumer that receives page records.
func WithConsumer(c Consumer) Option {
	return func(e *Engine) {
		e.consumer = c
	}
}

// WithSkipHandler registers a callback for failed fetches.
func WithSkipHandler(h SkipHandler) Option {
	return func(e *Engine) {
		e.onSkip = h
	}
}

// WithMaxPages stops the crawl once n pages were fetched. 0 means unlimited.
func WithMaxPages(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxPages = n
		}
	}
}

// WithRateLimit limits the crawl to perSecond requests per second across
// all workers. 0 means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			e.limiter = nil
		}
	}
}

// WithRecordBuffer sets the capacity of the record channel.
func WithRecordBuffer(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.recordBuffer = n
		}
	}
}

// WithIgnorePatterns skips discovered links whose path matches any pattern.
// Patterns use glob syntax ("/admin/*", "*.pdf").
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.filter.ignore = patterns
	}
}

// WithFollowPatterns restricts discovered links to paths matching at least
// one pattern. Empty means every path is allowed.
func WithFollowPatterns(patterns []string) Option {
	return func(e *Engine) {
		e.filter.follow = patterns
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine that fetches pages with fetcher.
func New(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:      fetcher,
		workers:      DefaultWorkers,
		recordBuffer: DefaultRecordBuffer,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Run crawls from seedURL until no work is left, the page limit is reached
// or ctx is done. Records are delivered to the consumer before Run returns.
//
// Returns ErrInvalidSeed (wrapped) for an unusable seed, ctx.Err() when the
// crawl was cancelled, and nil otherwise. Stats are valid in every case.
func (e *Engine) Run(ctx context.Context, seedURL string) (Stats, error) {
	seed, err := normalizeSeed(seedURL)
	if err != nil {
		return Stats{}, err
	}

	e.logger.Info("starting crawl",
		"seed", seed,
		"workers", e.workers,
		"follow_external", e.followExternal,
		"max_pages", e.maxPages,
	)
	startTime := time.Now()

	c := &crawl{
		Engine:   e,
		frontier: newFrontier(),
	}
	c.frontier.push(seed)

	var bridgeDone chan struct{}
	if e.consumer != nil {
		c.records = make(chan model.CrawlRecord, e.recordBuffer)
		bridgeDone = make(chan struct{})
		bridge := NewBridge(e.consumer)

		// The bridge outlives cancellation so that published records are
		// never lost.
		bridgeCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(bridgeDone)
			_ = bridge.Run(bridgeCtx, c.records) //nolint:errcheck // never cancelled
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	for range e.workers {
		g.Go(func() error {
			return c.work(gctx)
		})
	}
	err = g.Wait()
	c.frontier.close()

	if c.records != nil {
		close(c.records)
		<-bridgeDone
	}

	stats := c.stats()
	if err == nil {
		err = ctx.Err()
	}

	e.logger.Info("crawl finished",
		"seed", seed,
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed,
		"urls_seen", stats.URLsSeen,
		"elapsed", time.Since(startTime),
	)

	return stats, err
}

// crawl is the state of one Run.
type crawl struct {
	*Engine

	frontier *frontier
	records  chan model.CrawlRecord

	fetched atomic.Int64
	failed  atomic.Int64
}

// work is one worker's loop: take a URL, visit it, acknowledge it.
func (c *crawl) work(ctx context.Context) error {
	for {
		pageURL, ok := c.frontier.next(ctx)
		if !ok {
			return nil
		}
		c.visit(ctx, pageURL)
		c.frontier.done()
	}
}

// visit fetches one URL, queues its links and publishes its record.
// Links are queued before the record is published.
func (c *crawl) visit(ctx context.Context, pageURL string) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
	}

	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled crawls do not count as failed pages.
			return
		}
		c.failed.Add(1)
		c.logger.Debug("skipping url", "url", pageURL, "error", err)
		if c.onSkip != nil {
			c.onSkip(pageURL, err)
		}
		return
	}

	n, ok := c.admit()
	if !ok {
		c.frontier.close()
		return
	}

	c.enqueue(page.InternalLinks)
	if c.followExternal {
		c.enqueue(page.ExternalLinks)
	}

	c.logger.Debug("fetched page",
		"url", pageURL,
		"title", page.Title,
		"internal_links", len(page.InternalLinks),
		"external_links", len(page.ExternalLinks),
		"queued", c.frontier.pending(),
	)

	// The page is already counted, so its record must reach the bridge.
	// The bridge drains until the channel is closed, even after cancellation.
	if c.records != nil {
		c.records <- page.Record()
	}

	if c.maxPages > 0 && n >= int64(c.maxPages) {
		c.logger.Info("page limit reached", "max_pages", c.maxPages)
		c.frontier.close()
	}
}

// admit counts a fetched page against the page limit. It returns false when
// the limit was already used up, in which case the page is dropped.
func (c *crawl) admit() (int64, bool) {
	if c.maxPages <= 0 {
		return c.fetched.Add(1), true
	}

	limit := int64(c.maxPages)
	for {
		cur := c.fetched.Load()
		if cur >= limit {
			return cur, false
		}
		if c.fetched.CompareAndSwap(cur, cur+1) {
			return cur + 1, true
		}
	}
}

func (c *crawl) enqueue(links []string) {
	for _, link := range links {
		if c.filter.allow(link) {
			c.frontier.push(link)
		}
	}
}

func (c *crawl) stats() Stats {
	return Stats{
		PagesFetched: int(c.fetched.Load()),
		PagesFailed:  int(c.failed.Load()),
		URLsSeen:     c.frontier.seenCount(),
	}
}

// normalizeSeed checks that seed is an absolute http(s) URL and strips its
// fragment.
func normalizeSeed(seed string) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
