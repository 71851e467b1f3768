// Package tracking forwards bag activity to the analytics queue and ties
// it to the signed-in customer.
package tracking

import (
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/features/shoppingbag"
	"github.com/tailorshop/storefront/internal/metrics"
	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
)

// Event names recorded for bag activity.
const (
	EventRemoved    = "Removed from Bag"
	EventAdded      = "Added to Bag"
	EventWaitlisted = "Added to Waitlist"
)

// Feature identifies the customer, opens the queue to its sink and records
// bag notifications.
type Feature struct {
	sink  metrics.Sink
	queue *metrics.Queue
	offs  []func()
}

// New creates the feature delivering to sink.
func New(sink metrics.Sink) *Feature { return &Feature{sink: sink} }

func (f *Feature) Name() string { return "tracking" }

func (f *Feature) Init(p *page.Page) error {
	f.queue = p.Metrics()
	if email, ok := p.ContextData(pagectx.KeyUserEmail).(string); ok {
		f.queue.Identify(email)
	}
	f.queue.Ready(f.sink)

	f.offs = append(f.offs,
		p.Subscribe(events.ProductRemoved, func(payload any) {
			f.queue.Record(EventRemoved, props(payload))
		}),
		p.Subscribe(events.ProductAdded, func(payload any) {
			f.queue.Record(EventAdded, props(payload))
		}),
		p.Subscribe(events.ProductAddedToWaitlist, func(payload any) {
			f.queue.Record(EventWaitlisted, props(payload))
		}),
	)
	return nil
}

func (f *Feature) Destruct() {
	for _, off := range f.offs {
		off()
	}
	f.offs = nil
}

func props(payload any) map[string]any {
	res, ok := payload.(shoppingbag.Result)
	if !ok {
		return nil
	}
	switch a := res.Args.(type) {
	case shoppingbag.RemoveArgs:
		return map[string]any{"item_key": a.ItemKey}
	case shoppingbag.ProductArgs:
		return map[string]any{"product_id": a.ProductID}
	}
	return nil
}
