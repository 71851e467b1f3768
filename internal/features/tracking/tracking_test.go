package tracking

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/features/shoppingbag"
	"github.com/tailorshop/storefront/internal/metrics"
	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/scripts"
)

type memSink struct {
	mu     sync.Mutex
	events []metrics.Event
}

func (s *memSink) Deliver(ev metrics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestIdentifiesThenRecordsBagActivity(t *testing.T) {
	logger := zaptest.NewLogger(t)
	queue := metrics.NewQueue(10, metrics.DropOldest, logger)
	queue.Record("Viewed Product", nil)

	sink := &memSink{}
	p, err := page.New(page.Options{
		Doc:      dom.MustParse(`<html><body></body></html>`),
		BaseURL:  "http://shop.test",
		Fetcher:  scripts.FetcherFunc(func(context.Context, string) error { return nil }),
		Metrics:  queue,
		Features: []page.Feature{New(sink)},
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = p.Init(context.Background(), pagectx.Bundle{Data: map[string]any{pagectx.KeyUserEmail: "ada@example.com"}})
	if err != nil {
		t.Fatal(err)
	}

	p.Notify(events.ProductRemoved, shoppingbag.Result{Args: shoppingbag.RemoveArgs{ItemKey: "k1"}})
	p.Notify(events.ProductAddedToWaitlist, shoppingbag.Result{Args: shoppingbag.ProductArgs{ProductID: "42"}})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 4 {
		t.Fatalf("events = %+v", sink.events)
	}
	if sink.events[0].Kind != metrics.KindIdentify || sink.events[0].Name != "ada@example.com" {
		t.Errorf("first event = %+v", sink.events[0])
	}
	if sink.events[1].Name != "Viewed Product" {
		t.Errorf("buffered event = %+v", sink.events[1])
	}
	if sink.events[2].Name != EventRemoved || sink.events[2].Props["item_key"] != "k1" {
		t.Errorf("removal = %+v", sink.events[2])
	}
	if sink.events[3].Name != EventWaitlisted || sink.events[3].Props["product_id"] != "42" {
		t.Errorf("waitlist = %+v", sink.events[3])
	}
}
