package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/scripts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) SetPageType(pt string) { r.add("setPageType " + pt) }
func (r *recorder) Set(k string, v any)   { r.add(fmt.Sprintf("set %s=%v", k, v)) }
func (r *recorder) AddCartItem(it Item)   { r.add(fmt.Sprintf("cart %s x%d", it.ProductID, it.Quantity)) }
func (r *recorder) AddOrderItem(it Item) {
	r.add(fmt.Sprintf("order %s x%d %.2f", it.ProductID, it.Quantity, it.Subtotal))
}
func (r *recorder) InitPage() { r.add("initPage") }
func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fetches struct {
	mu   sync.Mutex
	srcs []string
}

func (f *fetches) Fetch(_ context.Context, src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.srcs = append(f.srcs, src)
	return nil
}

func run(t *testing.T, data map[string]any) (*Feature, *recorder, *fetches) {
	t.Helper()
	rec := &recorder{}
	fe := &fetches{}
	feat := New("/mybuys3.js", "/setup.js", rec)
	p, err := page.New(page.Options{
		Doc:      dom.MustParse(`<html><head></head><body></body></html>`),
		BaseURL:  "http://shop.test",
		Fetcher:  fe,
		Features: []page.Feature{feat},
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Init(context.Background(), pagectx.Bundle{Data: data}); err != nil {
		t.Fatal(err)
	}
	if task := feat.Task(); task != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := task.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	p.Wait()
	return feat, rec, fe
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOrderConfirmation(t *testing.T) {
	var data map[string]any
	raw := `{"mybuys":{"page_type":"ORDER_CONFIRMATION","set_data":{"email":"ada@example.com","amount":"129.50"},
"order_items":[{"product_id":"SUIT-1","quantity":1,"subtotal":99.5},{"product_id":"TIE-2","quantity":2,"subtotal":30}]}}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatal(err)
	}
	_, rec, fe := run(t, data)

	want := []string{
		"setPageType ORDER_CONFIRMATION",
		"set amount=129.50",
		"set email=ada@example.com",
		"order SUIT-1 x1 99.50",
		"order TIE-2 x2 30.00",
		"initPage",
	}
	if got := rec.snapshot(); !equal(got, want) {
		t.Errorf("calls = %v\nwant %v", got, want)
	}
	if !equal(fe.srcs, []string{"/mybuys3.js", "/setup.js"}) {
		t.Errorf("scripts = %v", fe.srcs)
	}
}

func TestShoppingCart(t *testing.T) {
	_, rec, _ := run(t, map[string]any{"mybuys": map[string]any{
		"page_type":  "SHOPPING_CART",
		"cart_items": map[string]any{"0": map[string]any{"product_id": "SHIRT-9", "quantity": float64(3), "subtotal": float64(150)}},
	}})
	want := []string{"setPageType SHOPPING_CART", "cart SHIRT-9 x3", "initPage"}
	if got := rec.snapshot(); !equal(got, want) {
		t.Errorf("calls = %v", got)
	}
}

func TestOtherPageTypeOnlyInits(t *testing.T) {
	_, rec, _ := run(t, map[string]any{"mybuys": map[string]any{"page_type": "HOME", "set_data": map[string]any{"x": "y"}}})
	want := []string{"setPageType HOME", "initPage"}
	if got := rec.snapshot(); !equal(got, want) {
		t.Errorf("calls = %v", got)
	}
}

func TestNoEngineData(t *testing.T) {
	feat, rec, fe := run(t, map[string]any{"mybuys": false})
	if feat.Task() != nil || len(rec.snapshot()) != 0 || len(fe.srcs) != 0 {
		t.Error("engine loaded without context data")
	}
}

func TestBeaconPostsBatch(t *testing.T) {
	got := make(chan []Call, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var calls []Call
		json.NewDecoder(r.Body).Decode(&calls)
		got <- calls
	}))
	defer srv.Close()

	b := NewBeaconRecommender(srv.Client(), srv.URL, zaptest.NewLogger(t))
	b.SetPageType(ProductDetails)
	b.Set("product", "SUIT-1")
	b.InitPage()
	if err := <-b.Sent(); err != nil {
		t.Fatal(err)
	}
	calls := <-got
	if len(calls) != 3 || calls[0].Method != "setPageType" || calls[2].Method != "initPage" {
		t.Errorf("calls = %+v", calls)
	}
}

var _ scripts.Fetcher = (*fetches)(nil)

func TestItemsFromKeyedObject(t *testing.T) {
	raw := map[string]any{
		"10": map[string]any{"product_id": "p10", "quantity": "3", "subtotal": "59.90"},
		"2":  map[string]any{"product_id": "p2", "quantity": float64(1), "subtotal": float64(20)},
		"1":  map[string]any{"product_id": "p1", "quantity": "x"},
	}
	got := items(raw)
	if len(got) != 3 {
		t.Fatalf("items = %+v", got)
	}
	for i, want := range []string{"p1", "p2", "p10"} {
		if got[i].ProductID != want {
			t.Errorf("items[%d] = %q, want %q", i, got[i].ProductID, want)
		}
	}
	if got[2].Quantity != 3 || got[2].Subtotal != 59.90 {
		t.Errorf("numeric strings not read: %+v", got[2])
	}
	if got[0].Quantity != 0 {
		t.Errorf("non-numeric quantity = %d, want 0", got[0].Quantity)
	}
}
