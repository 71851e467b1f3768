package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/tailorshop/storefront/internal/db"
	"github.com/tailorshop/storefront/internal/envelope"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testOrder() Order {
	return Order{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   "12 St James's Square",
		City:      "London",
		State:     "LDN",
		Zip:       "SW1Y",
		Measurements: Measurements{
			Height: 165, Weight: 55, Chest: 86, Waist: 66, Inseam: 76,
		},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	o := testOrder()
	if err := store.Create(ctx, &o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.ID == 0 {
		t.Fatal("expected generated ID")
	}
	if o.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FirstName != "Ada" || got.Inseam != 76 {
		t.Errorf("got %+v", got)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	o := testOrder()
	o.FirstName = "  "
	o.Waist = -1
	err := store.Create(ctx, &o)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	for _, want := range []string{"First name is required", "Waist must not be negative"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("invalid order stored, count = %d", n)
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	o := testOrder()
	if err := store.Create(ctx, &o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	o.City = "Marylebone"
	o.Hips = 90
	if err := store.Update(ctx, &o); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := store.Get(ctx, o.ID)
	if got.City != "Marylebone" || got.Hips != 90 {
		t.Errorf("after update: %+v", got)
	}

	if err := store.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	missing := testOrder()
	missing.ID = 999
	if err := store.Update(ctx, &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Ada", "Grace", "Hedy"} {
		o := testOrder()
		o.FirstName = name
		if err := store.Create(ctx, &o); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].FirstName != "Hedy" {
		t.Fatalf("List = %v", all)
	}

	page, err := store.List(ctx, ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 || page[0].FirstName != "Grace" {
		t.Errorf("page = %v", page)
	}
}

// --- HTTP route tests ---

func setupRouter(t *testing.T) (*chi.Mux, *Store) {
	t.Helper()
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store, zaptest.NewLogger(t))
	return r, store
}

func ajaxForm(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *envelope.Envelope {
	t.Helper()
	env, err := envelope.Parse(w.Body.Bytes())
	if err != nil || env == nil {
		t.Fatalf("envelope: %v (body %q)", err, w.Body.String())
	}
	return env
}

func TestRouteCreate(t *testing.T) {
	r, store := setupRouter(t)

	form := url.Values{
		"order[first_name]": {"Grace"},
		"order[last_name]":  {"Hopper"},
		"order[chest]":      {"88"},
		"city":              {"Arlington"},
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, ajaxForm(http.MethodPost, "/orders", form))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Method != envelope.MethodRedirect || !strings.HasPrefix(env.URI, "/orders/") {
		t.Fatalf("envelope = %+v", env)
	}

	all, _ := store.List(context.Background(), ListFilter{})
	if len(all) != 1 || all[0].Chest != 88 || all[0].City != "Arlington" {
		t.Errorf("stored = %+v", all)
	}
}

func TestRouteCreateInvalid(t *testing.T) {
	r, store := setupRouter(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing names", url.Values{"order[chest]": {"88"}}, "First name is required"},
		{"negative", url.Values{"first_name": {"A"}, "last_name": {"B"}, "hips": {"-3"}}, "Hips must not be negative"},
		{"not a number", url.Values{"first_name": {"A"}, "last_name": {"B"}, "height": {"tall"}}, "Height must be a whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, ajaxForm(http.MethodPost, "/orders", tt.form))

			env := decodeEnvelope(t, w)
			if !env.IsError() || env.Method != envelope.MethodDialog {
				t.Fatalf("envelope = %+v, want red dialog", env)
			}
			if !strings.Contains(env.DialogText, tt.want) {
				t.Errorf("dialog_text = %q, want %q", env.DialogText, tt.want)
			}
		})
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestRouteCreateJSON(t *testing.T) {
	r, _ := setupRouter(t)

	body, _ := json.Marshal(testOrder())
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// No X-Requested-With: a plain client gets a real redirect.
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, loc, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d", loc, w.Code)
	}
	var got Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.LastName != "Lovelace" || got.Height != 165 {
		t.Errorf("got %+v", got)
	}
}

func TestRouteUpdate(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	o := testOrder()
	if err := store.Create(ctx, &o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, method := range []string{http.MethodPut, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, ajaxForm(method, orderPath(o.ID), url.Values{"order[outseam]": {"101"}}))

			env := decodeEnvelope(t, w)
			if env.Method != envelope.MethodRedirect || env.URI != orderPath(o.ID) {
				t.Fatalf("envelope = %+v", env)
			}
			got, _ := store.Get(ctx, o.ID)
			if got.Outseam != 101 || got.FirstName != "Ada" {
				t.Errorf("after update: %+v", got)
			}
		})
	}
}

func TestRouteUpdateMissing(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, ajaxForm(http.MethodPut, "/orders/77", url.Values{"city": {"x"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("ajax status = %d, want 200 so the dialog is shown", w.Code)
	}
	env := decodeEnvelope(t, w)
	if !env.IsError() || env.DialogText != "That order no longer exists." {
		t.Errorf("envelope = %+v", env)
	}

	req := httptest.NewRequest(http.MethodDelete, "/orders/77", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("plain status = %d, want 404", w.Code)
	}
}

func TestRouteDelete(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	o := testOrder()
	if err := store.Create(ctx, &o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, orderPath(o.ID), nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	env := decodeEnvelope(t, w)
	if env.Method != envelope.MethodRedirect || env.URI != "/orders" {
		t.Fatalf("envelope = %+v", env)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestRouteListAndGet(t *testing.T) {
	r, store := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty list body = %q", w.Body.String())
	}

	o := testOrder()
	if err := store.Create(context.Background(), &o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	var list []Order
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %v", list)
	}

	for _, path := range []string{"/orders/999", "/orders/abc"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}
