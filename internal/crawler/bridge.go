package crawler

import (
	"context"

	"github.com/ownsearch/ownsearch/internal/model"
)

// Consumer receives every page record the crawl produces.
// Consume is called from a single goroutine, in publication order.
type Consumer interface {
	Consume(record model.CrawlRecord)
}

// ConsumerFunc adapts an ordinary function to the Consumer interface.
type ConsumerFunc func(record model.CrawlRecord)

// Consume calls f(record).
func (f ConsumerFunc) Consume(record model.CrawlRecord) {
	f(record)
}

// MultiConsumer hands each record to several consumers in order.
type MultiConsumer []Consumer

// Consume implements Consumer.
func (m MultiConsumer) Consume(record model.CrawlRecord) {
	for _, c := range m {
		if c != nil {
			c.Consume(record)
		}
	}
}

// Bridge drains the record channel into a Consumer.
//
// Design decision: The consumer is injected when the bridge is built, so the
// crawler never imports the index or the database. Whatever should happen to
// a record is decided by the caller that wires the consumer.
type Bridge struct {
	consumer Consumer
}

// NewBridge creates a Bridge delivering to consumer.
func NewBridge(consumer Consumer) *Bridge {
	return &Bridge{consumer: consumer}
}

// Run delivers records in FIFO order until the channel is closed, and then
// returns nil. If ctx is done first, Run stops and returns ctx.Err().
func (b *Bridge) Run(ctx context.Context, records <-chan model.CrawlRecord) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-records:
			if !ok {
				return nil
			}
			b.consumer.Consume(record)
		}
	}
}
