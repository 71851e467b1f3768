package shoppingbag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/envelope"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/scripts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const bagPage = `<html><body>
<div class="user-navigation"><a href="/bag">Bag (<span class="item_count">2</span>)</a></div>
<ul>
  <li class="shopping-bag-item" data-item-key="k1"><a class="btn shopping-bag-item-remove" id="remove-k1">Remove</a></li>
  <li class="shopping-bag-item" data-item-key="k2"><a class="btn shopping-bag-item-remove" id="remove-k2">Remove</a></li>
</ul>
<a class="btn shopping-bag-item-add" id="add" data-product-id="7">Add</a>
<a class="btn shopping-bag-waitlist" id="waitlist" data-product-id="42">Notify me</a>
</body></html>`

type backend struct {
	mu      sync.Mutex
	removed []string
	added   []string
	waited  []string
}

func (b *backend) seen(list *[]string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), *list...)
}

func (b *backend) handler() http.Handler {
	r := chi.NewRouter()
	r.Post(RemoveURL, func(w http.ResponseWriter, r *http.Request) {
		key := r.FormValue("item_key")
		if key != "k1" {
			envelope.Write(w, http.StatusOK, envelope.ErrorDialog("That item is no longer in your bag."))
			return
		}
		b.mu.Lock()
		b.removed = append(b.removed, key)
		b.mu.Unlock()
		envelope.Write(w, http.StatusOK, envelope.OK())
	})
	r.Post(AddURL, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.added = append(b.added, r.FormValue("product_id"))
		b.mu.Unlock()
		envelope.Write(w, http.StatusOK, envelope.OK())
	})
	r.Post("/customer/add-to-waitlist/{productID}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.waited = append(b.waited, chi.URLParam(r, "productID"))
		b.mu.Unlock()
		envelope.Write(w, http.StatusOK, envelope.Dialog("We'll let you know."))
	})
	return r
}

type fixture struct {
	page  *page.Page
	doc   *dom.Document
	clock *loop.ManualClock
	be    *backend
	mu    sync.Mutex
	seen  []events.Name
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	doc := dom.MustParse(bagPage)
	clock := loop.NewManualClock()
	p, err := page.New(page.Options{
		Doc:        doc,
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Clock:      clock,
		Fetcher:    scripts.FetcherFunc(func(context.Context, string) error { return nil }),
		Features:   []page.Feature{New()},
		Logger:     zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = p.Init(context.Background(), pagectx.Bundle{
		Data: map[string]any{pagectx.KeyItemCount: float64(2)},
		Strings: map[string]string{
			pagectx.StringDialog: `<div id="dialog-container" class="modal hide"><div class="hd"><a class="close">x</a></div><div class="bd"></div></div>`,
			pagectx.StringMask:   `<div id="screen-mask"></div>`,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{page: p, doc: doc, clock: clock, be: be}
	for _, name := range []events.Name{events.ProductRemoved, events.ProductAdded, events.ProductAddedToWaitlist} {
		name := name
		p.Subscribe(name, func(any) {
			f.mu.Lock()
			f.seen = append(f.seen, name)
			f.mu.Unlock()
		})
	}
	t.Cleanup(p.Teardown)
	return f
}

func (f *fixture) count() string { return f.doc.One(".user-navigation .item_count").Text() }

func TestRemoveItemDecrementsCounter(t *testing.T) {
	f := newFixture(t)
	item := f.doc.One("[data-item-key=k1]")

	ev := f.page.Click(f.doc.ByID("remove-k1"))
	if !ev.DefaultPrevented() {
		t.Fatal("remove click not handled")
	}
	f.page.Wait()

	if got := f.be.seen(&f.be.removed); len(got) != 1 || got[0] != "k1" {
		t.Fatalf("server saw removals %v", got)
	}
	if item.Style("opacity") != "0" {
		t.Error("item not fading")
	}
	if !item.Attached() {
		t.Fatal("item detached before the fade finished")
	}

	f.clock.Advance(HideTime)
	if item.Attached() || f.doc.One("[data-item-key=k1]") != nil {
		t.Fatal("item still on the page")
	}
	if f.count() != "1" || f.page.Store().ItemCount() != 1 {
		t.Errorf("counter = %q / %d, want 1", f.count(), f.page.Store().ItemCount())
	}
	if len(f.seen) != 1 || f.seen[0] != events.ProductRemoved {
		t.Errorf("notifications = %v", f.seen)
	}
}

func TestRejectedRemovalKeepsItem(t *testing.T) {
	f := newFixture(t)
	f.page.Click(f.doc.ByID("remove-k2"))
	f.page.Wait()
	f.clock.Advance(HideTime)

	if f.doc.One("[data-item-key=k2]") == nil {
		t.Fatal("item removed although the server refused")
	}
	if f.count() != "2" {
		t.Errorf("counter = %q", f.count())
	}
	if !f.page.Dialogs().IsOpen() {
		t.Error("refusal not presented")
	}
	if len(f.seen) != 0 {
		t.Errorf("notifications = %v", f.seen)
	}
}

func TestRemoveWithoutItemOnlyCounts(t *testing.T) {
	f := newFixture(t)
	f.page.Notify(events.ProductRemoved, Result{Args: RemoveArgs{ItemKey: "k9"}})
	if f.count() != "1" {
		t.Errorf("counter = %q", f.count())
	}
}

func TestAddProductIncrementsCounter(t *testing.T) {
	f := newFixture(t)
	f.page.Click(f.doc.ByID("add"))
	f.page.Wait()
	if got := f.be.seen(&f.be.added); len(got) != 1 || got[0] != "7" {
		t.Fatalf("server saw adds %v", got)
	}
	if f.count() != "3" {
		t.Errorf("counter = %q", f.count())
	}
	if len(f.seen) != 1 || f.seen[0] != events.ProductAdded {
		t.Errorf("notifications = %v", f.seen)
	}
}

func TestWaitlist(t *testing.T) {
	f := newFixture(t)
	f.page.Click(f.doc.ByID("waitlist"))
	f.page.Wait()
	if got := f.be.seen(&f.be.waited); len(got) != 1 || got[0] != "42" {
		t.Fatalf("server saw waitlist %v", got)
	}
	if len(f.seen) != 1 || f.seen[0] != events.ProductAddedToWaitlist {
		t.Errorf("notifications = %v", f.seen)
	}
	if !f.page.Dialogs().IsOpen() {
		t.Error("confirmation not shown")
	}
}
