package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/ownsearch/ownsearch/internal/model"
)

// TestBridgeRun tests FIFO delivery until the channel closes.
func TestBridgeRun(t *testing.T) {
	t.Parallel()

	t.Run("delivers records in order", func(t *testing.T) {
		t.Parallel()

		records := make(chan model.CrawlRecord, 3)
		records <- model.CrawlRecord{URL: "1"}
		records <- model.CrawlRecord{URL: "2"}
		records <- model.CrawlRecord{URL: "3"}
		close(records)

		var got []string
		bridge := NewBridge(ConsumerFunc(func(r model.CrawlRecord) {
			got = append(got, r.URL)
		}))

		if err := bridge.Run(context.Background(), records); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
			t.Errorf("got %v, expected [1 2 3]", got)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bridge := NewBridge(ConsumerFunc(func(model.CrawlRecord) {}))
		err := bridge.Run(ctx, make(chan model.CrawlRecord))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestMultiConsumer tests fan-out to several consumers.
func TestMultiConsumer(t *testing.T) {
	t.Parallel()

	var order []string
	first := ConsumerFunc(func(r model.CrawlRecord) { order = append(order, "first:"+r.URL) })
	second := ConsumerFunc(func(r model.CrawlRecord) { order = append(order, "second:"+r.URL) })

	MultiConsumer{first, nil, second}.Consume(model.CrawlRecord{URL: "u"})

	if len(order) != 2 || order[0] != "first:u" || order[1] != "second:u" {
		t.Errorf("order = %v, expected [first:u second:u]", order)
	}
}
