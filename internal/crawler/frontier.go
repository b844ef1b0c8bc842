package crawler

import (
	"context"
	"sync"
)

// frontier is the shared queue of URLs still to fetch together with the set
// of every URL ever queued.
//
// Design decision: The seen set and the queue live under one mutex so that
// "check, mark seen, enqueue" is a single step. Two workers discovering the
// same link at the same moment can therefore never both queue it.
//
// The frontier also counts URLs handed out by next but not yet acknowledged
// with done. When the queue is empty and nothing is in flight no worker can
// produce new URLs, so the crawl is over and every waiter is released.
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    []string
	seen     map[string]struct{}
	inFlight int
	closed   bool
}

func newFrontier() *frontier {
	f := &frontier{
		queue: make([]string, 0),
		seen:  make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push queues rawURL unless it was queued before. It never blocks on
// consumers and reports whether the URL was new.
func (f *frontier) push(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[rawURL]; ok {
		return false
	}

	f.seen[rawURL] = struct{}{}
	f.queue = append(f.queue, rawURL)
	f.cond.Signal()
	return true
}

// next blocks until a URL is available and marks it in flight. It returns
// false once the crawl is finished or ctx is done. Every URL returned must
// be acknowledged with done.
func (f *frontier) next(ctx context.Context) (string, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && !f.closed && ctx.Err() == nil {
		if f.inFlight == 0 {
			// Nothing queued and nobody working: nothing will ever arrive.
			f.closed = true
			f.cond.Broadcast()
			break
		}
		f.cond.Wait()
	}

	if f.closed || ctx.Err() != nil {
		return "", false
	}

	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.inFlight++
	return u, true
}

// done acknowledges a URL returned by next.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.closed = true
		f.cond.Broadcast()
	}
}

// close releases every waiter; later pushes are ignored.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// seenCount returns how many distinct URLs were ever queued.
func (f *frontier) seenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// pending returns how many URLs are queued but not handed out.
func (f *frontier) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
