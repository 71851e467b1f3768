package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/envelope"
)

// RegisterRoutes mounts order endpoints under /orders on the given router.
func RegisterRoutes(r chi.Router, store *Store, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{store: store, logger: logger.Named("orders")}

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Post("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type handlers struct {
	store  *Store
	logger *zap.Logger
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	orders, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var o Order
	if err := decodeOrder(r, &o); err != nil {
		h.reject(w, r, err)
		return
	}
	if err := h.store.Create(r.Context(), &o); err != nil {
		h.reject(w, r, err)
		return
	}
	h.logger.Info("order created", zap.Int64("id", o.ID))
	envelope.Respond(w, r, envelope.Redirect(orderPath(o.ID)))
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.reject(w, r, err)
		return
	}
	if err := decodeOrder(r, o); err != nil {
		h.reject(w, r, err)
		return
	}
	o.ID = id
	if err := h.store.Update(r.Context(), o); err != nil {
		h.reject(w, r, err)
		return
	}
	envelope.Respond(w, r, envelope.Redirect(orderPath(id)))
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.reject(w, r, err)
		return
	}
	h.logger.Info("order deleted", zap.Int64("id", id))
	envelope.Respond(w, r, envelope.Redirect("/orders"))
}

// reject maps store and decode errors onto a reply the page can present.
func (h *handlers) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalid):
		msg := strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": ")
		envelope.Respond(w, r, envelope.ErrorDialog(msg))
	case errors.Is(err, ErrNotFound):
		// The page presents any non-200 reply as a generic failure.
		status := http.StatusNotFound
		if envelope.IsAjax(r) {
			status = http.StatusOK
		}
		envelope.Write(w, status, envelope.ErrorDialog("That order no longer exists."))
	default:
		h.internalError(w, err)
	}
}

func (h *handlers) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("order request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func orderPath(id int64) string { return fmt.Sprintf("/orders/%d", id) }

// decodeOrder overlays the request's fields onto o. JSON bodies and form
// posts are accepted; form keys may be bare ("city") or nested
// ("order[city]"). Fields the request leaves out keep their value.
func decodeOrder(r *http.Request, o *Order) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(o); err != nil {
			return fmt.Errorf("%w: unreadable request body", ErrInvalid)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: unreadable form", ErrInvalid)
	}
	for i, f := range o.fields() {
		col := columns[i]
		v, ok := formValue(r, col)
		if !ok {
			continue
		}
		switch p := f.(type) {
		case *string:
			*p = strings.TrimSpace(v)
		case *int:
			v = strings.TrimSpace(v)
			if v == "" {
				*p = 0
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s must be a whole number", ErrInvalid, label(col))
			}
			*p = n
		}
	}
	return nil
}

func formValue(r *http.Request, key string) (string, bool) {
	for _, k := range []string{"order[" + key + "]", key} {
		if vs, ok := r.Form[k]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
