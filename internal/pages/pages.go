// Package pages renders the storefront's HTML shells and the context
// bundle each one carries.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/bag"
	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/features/recommend"
	"github.com/tailorshop/storefront/internal/pagectx"
)

// BundleID is the id of the script block holding the context bundle.
const BundleID = "context-bundle"

// EmailCookie carries the signed-in shopper's address, when there is one.
const EmailCookie = "user_email"

// Product is a catalogue entry shown on the home page.
type Product struct {
	ID      string
	Name    string
	InStock bool
}

// DefaultCatalog is shown when no catalogue is configured.
var DefaultCatalog = []Product{
	{ID: "shirt-oxford", Name: "Oxford shirt", InStock: true},
	{ID: "trouser-flannel", Name: "Flannel trousers", InStock: true},
	{ID: "coat-overcoat", Name: "Overcoat", InStock: false},
}

// Options controls what the pages render and put in the bundle.
type Options struct {
	AppScript string
	Scripts   []string
	MyBuys    bool
	Catalog   []Product
	// Strings overrides the default context strings by key.
	Strings map[string]string
}

// Pages serves the HTML shells.
type Pages struct {
	bags   *bag.Store
	opts   Options
	home   *template.Template
	bag    *template.Template
	logger *zap.Logger
}

// New parses the templates.
func New(bags *bag.Store, opts Options, logger *zap.Logger) (*Pages, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog
	}
	if opts.AppScript == "" {
		opts.AppScript = "/assets/app.js"
	}
	home, err := template.New("home").Parse(layoutTemplate + homeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing home template: %w", err)
	}
	bagTmpl, err := template.New("bag").Parse(layoutTemplate + bagTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing bag template: %w", err)
	}
	return &Pages{bags: bags, opts: opts, home: home, bag: bagTmpl, logger: logger.Named("pages")}, nil
}

// RegisterRoutes mounts the pages. The bag cookie middleware runs first.
func (p *Pages) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(bag.WithBag)
		r.Get("/", p.handleHome)
		r.Get("/bag", p.handleBag)
		r.Get("/context", p.handleContext)
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))
}

// Bundle builds the context bundle for a page of the given type.
func (p *Pages) Bundle(ctx context.Context, r *http.Request, pageType string) (pagectx.Bundle, []bag.Item, error) {
	items, err := p.bags.Items(ctx, bag.ID(r))
	if err != nil {
		return pagectx.Bundle{}, nil, err
	}

	strs := map[string]string{
		pagectx.StringDialog: dialogMarkup,
		pagectx.StringMask:   maskMarkup,
		pagectx.StringError:  errorMarkup,
	}
	for k, v := range p.opts.Strings {
		strs[k] = v
	}

	data := map[string]any{
		pagectx.KeyItemCount: len(items),
		pagectx.KeyScripts:   p.opts.Scripts,
	}
	if c, err := r.Cookie(EmailCookie); err == nil && c.Value != "" {
		data[pagectx.KeyUserEmail] = c.Value
	}
	if p.opts.MyBuys {
		data[pagectx.KeyMyBuys] = myBuys(pageType, items)
	}
	return pagectx.Bundle{Data: data, Strings: strs}, items, nil
}

func myBuys(pageType string, items []bag.Item) map[string]any {
	m := map[string]any{"page_type": pageType}
	if pageType == recommend.ShoppingCart {
		lines := make([]recommend.Item, 0, len(items))
		for _, it := range items {
			lines = append(lines, recommend.Item{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		m["cart_items"] = lines
	}
	return m
}

type view struct {
	Title        string
	AppScript    string
	ItemCount    int
	BundleJSON   template.JS
	Products     []Product
	Items        []bag.Item
	Measurements []string
}

var measurementFields = []string{
	"height", "weight", "chest", "arms", "bust", "waist", "hips", "inseam", "outseam",
	"arm_circumference", "leg_circumference",
}

func (p *Pages) handleHome(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, p.home, recommend.HighLevelCategory, view{
		Title:        "Storefront",
		Products:     p.opts.Catalog,
		Measurements: measurementFields,
	})
}

func (p *Pages) handleBag(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, p.bag, recommend.ShoppingCart, view{Title: "Your bag"})
}

func (p *Pages) handleContext(w http.ResponseWriter, r *http.Request) {
	pageType := r.URL.Query().Get("page_type")
	if pageType == "" {
		pageType = recommend.HighLevelCategory
	}
	b, _, err := p.Bundle(r.Context(), r, pageType)
	if err != nil {
		p.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, pageType string, v view) {
	b, items, err := p.Bundle(r.Context(), r, pageType)
	if err != nil {
		p.internalError(w, err)
		return
	}
	// json.Marshal escapes <, > and &, so the payload cannot close the
	// script block early.
	raw, err := json.Marshal(b)
	if err != nil {
		p.internalError(w, err)
		return
	}
	v.AppScript = p.opts.AppScript
	v.ItemCount = len(items)
	v.BundleJSON = template.JS(raw)
	v.Items = items

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", v); err != nil {
		p.logger.Error("rendering page", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (p *Pages) internalError(w http.ResponseWriter, err error) {
	p.logger.Error("page request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// ErrNoBundle is returned by ExtractBundle for a page without a bundle.
var ErrNoBundle = errors.New("page has no context bundle")

// ExtractBundle reads the context bundle out of a rendered page.
func ExtractBundle(doc *dom.Document) (pagectx.Bundle, error) {
	n := doc.ByID(BundleID)
	if n == nil {
		return pagectx.Bundle{}, ErrNoBundle
	}
	return pagectx.Decode([]byte(n.Text()))
}
