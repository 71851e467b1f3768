package bag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/envelope"
)

// CookieName holds the visitor's bag id.
const CookieName = "bag_id"

// RegisterRoutes mounts the bag and waitlist endpoints.
func RegisterRoutes(r chi.Router, store *Store, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{store: store, logger: logger.Named("bag")}

	r.Group(func(r chi.Router) {
		r.Use(WithBag)
		r.Get("/shoppingbag/items", h.items)
		r.Post("/shoppingbag/add_item", h.add)
		r.Post("/shoppingbag/remove_item", h.remove)
		r.Post("/customer/add-to-waitlist/{productID}", h.waitlist)
	})
}

type bagKey struct{}

// WithBag makes sure every request carries a bag id, issuing a cookie on
// the first visit.
func WithBag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && uuid.Validate(c.Value) == nil {
			next.ServeHTTP(w, r.WithContext(withBagID(r.Context(), c.Value)))
			return
		}
		id := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(withBagID(r.Context(), id)))
	})
}

// ID returns the bag id WithBag attached to r, "" outside the middleware.
func ID(r *http.Request) string {
	id, _ := r.Context().Value(bagKey{}).(string)
	return id
}

func withBagID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, bagKey{}, id)
}

type handlers struct {
	store  *Store
	logger *zap.Logger
}

func (h *handlers) items(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Items(r.Context(), ID(r))
	if err != nil {
		h.internalError(w, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *handlers) add(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.FormValue("product_id"))
	if productID == "" {
		envelope.Respond(w, r, envelope.ErrorDialog("Please choose a product."))
		return
	}
	it, err := h.store.AddItem(r.Context(), ID(r), productID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.logger.Debug("item added", zap.String("bag", it.BagID), zap.String("product", productID))
	envelope.Respond(w, r, envelope.OK())
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.FormValue("item_key"))
	err := h.store.RemoveItem(r.Context(), ID(r), key)
	if errors.Is(err, ErrNotFound) || key == "" {
		envelope.Respond(w, r, envelope.ErrorDialog("That item is no longer in your bag."))
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}
	envelope.Respond(w, r, envelope.OK())
}

func (h *handlers) waitlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	added, err := h.store.AddToWaitlist(r.Context(), ID(r), productID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if !added {
		envelope.Respond(w, r, envelope.Dialog("You are already on the waitlist for this item."))
		return
	}
	envelope.Respond(w, r, envelope.Dialog("We'll let you know as soon as it is back in stock."))
}

func (h *handlers) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("bag request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
