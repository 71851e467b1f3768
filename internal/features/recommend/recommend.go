// Package recommend bridges page context to the product recommendation
// engine. The engine's scripts are loaded one after the other, then the
// page is described to it.
package recommend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/scripts"
)

// Page types the engine distinguishes.
const (
	HighLevelCategory = "HIGH_LEVEL_CATEGORY"
	Category          = "CATEGORY"
	ProductDetails    = "PRODUCT_DETAILS"
	AddToCart         = "ADD_TO_CART"
	ShoppingCart      = "SHOPPING_CART"
	OrderConfirmation = "ORDER_CONFIRMATION"
)

// Item is one cart or order line.
type Item struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// Recommender is the engine's client API.
type Recommender interface {
	SetPageType(pageType string)
	Set(key string, value any)
	AddCartItem(it Item)
	AddOrderItem(it Item)
	InitPage()
}

// Feature loads the engine when the page context asks for it.
type Feature struct {
	engineURL string
	setupURL  string
	rec       Recommender

	logger *zap.Logger
	task   *scripts.Task
}

// New creates the feature. engineURL must load before setupURL.
func New(engineURL, setupURL string, rec Recommender) *Feature {
	return &Feature{engineURL: engineURL, setupURL: setupURL, rec: rec}
}

func (f *Feature) Name() string { return "recommend" }

// Init starts the script chain when the context bundle carries engine data.
func (f *Feature) Init(p *page.Page) error {
	f.logger = p.Logger().Named("recommend")
	if !p.Store().Has(pagectx.KeyMyBuys) {
		return nil
	}
	data := p.Store().Map(pagectx.KeyMyBuys)
	if data == nil {
		return fmt.Errorf("recommend: %q is not an object", pagectx.KeyMyBuys)
	}
	f.task = p.Scripts().Chain(p.Context(), []string{f.engineURL, f.setupURL}, func(err error) {
		if err != nil {
			f.logger.Warn("engine scripts did not load", zap.Error(err))
			return
		}
		f.describe(data)
	})
	return nil
}

// Task returns the pending script chain, or nil when nothing was started.
func (f *Feature) Task() *scripts.Task { return f.task }

func (f *Feature) Destruct() {}

func (f *Feature) describe(data map[string]any) {
	pageType, _ := data["page_type"].(string)
	f.rec.SetPageType(pageType)

	switch pageType {
	case HighLevelCategory, Category, ProductDetails:
		f.callSet(data)
	case AddToCart, ShoppingCart:
		f.callSet(data)
		for _, it := range items(data["cart_items"]) {
			f.rec.AddCartItem(it)
		}
	case OrderConfirmation:
		f.callSet(data)
		for _, it := range items(data["order_items"]) {
			f.rec.AddOrderItem(it)
		}
	}
	f.rec.InitPage()
}

// callSet passes set_data through in key order.
func (f *Feature) callSet(data map[string]any) {
	set, _ := data["set_data"].(map[string]any)
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.rec.Set(k, set[k])
	}
}

// items accepts a JSON array or object of line items.
func items(v any) []Item {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
		for _, k := range keys {
			raw = append(raw, t[k])
		}
	}
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		it := Item{}
		it.ProductID = fmt.Sprint(m["product_id"])
		if q, ok := number(m["quantity"]); ok {
			it.Quantity = int(q)
		}
		if s, ok := number(m["subtotal"]); ok {
			it.Subtotal = s
		}
		out = append(out, it)
	}
	return out
}

// keyLess orders integer keys numerically, ahead of any other keys, which
// sort as strings.
func keyLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// number reads a JSON number or a numeric string.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
