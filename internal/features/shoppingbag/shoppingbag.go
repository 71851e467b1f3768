// Package shoppingbag keeps the page's shopping bag in step with the
// server: removing items, adding items, joining a product's waitlist, and
// the item counter in the navigation bar.
package shoppingbag

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/ajax"
	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/envelope"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/page"
)

// Trigger classes.
const (
	TriggerRemove   = "shopping-bag-item-remove"
	TriggerAdd      = "shopping-bag-item-add"
	TriggerWaitlist = "shopping-bag-waitlist"
)

// Endpoints.
const (
	RemoveURL = "/shoppingbag/remove_item"
	AddURL    = "/shoppingbag/add_item"
)

// HideTime is how long a removed item takes to fade before it is detached.
const HideTime = 150 * time.Millisecond

// WaitlistURL is the endpoint for joining a product's waitlist.
func WaitlistURL(productID string) string {
	return "/customer/add-to-waitlist/" + url.PathEscape(productID)
}

// RemoveArgs is the payload of shopping-bag:remove-product.
type RemoveArgs struct {
	ItemKey string
	Item    *dom.Node
}

// ProductArgs is the payload of add and waitlist requests.
type ProductArgs struct {
	ProductID string
	Trigger   *dom.Node
}

// Result is the payload of the product-removed, product-added and
// product-added-to-waitlist notifications.
type Result struct {
	Response ajax.Response
	Args     any
}

// Feature is the shopping bag page behaviour.
type Feature struct {
	p         *page.Page
	logger    *zap.Logger
	itemCount *dom.Node
	offs      []func()
}

// New creates the feature.
func New() *Feature { return &Feature{} }

func (f *Feature) Name() string { return "shopping-bag" }

// Init registers the bag triggers and subscriptions.
func (f *Feature) Init(p *page.Page) error {
	f.p = p
	f.logger = p.Logger().Named("shopping-bag")
	f.itemCount = p.Document().One(".user-navigation .item_count")

	p.RegisterClickHandler(TriggerRemove, f.onRemoveClick)
	p.RegisterClickHandler(TriggerAdd, f.onAddClick)
	p.RegisterClickHandler(TriggerWaitlist, f.onWaitlistClick)

	f.offs = append(f.offs,
		p.Subscribe(events.RemoveProduct, f.removeProduct),
		p.Subscribe(events.AddProductToWaitlist, f.addToWaitlist),
		p.Subscribe(events.ProductRemoved, f.handleRemoveItem),
	)
	return nil
}

// Destruct drops the subscriptions.
func (f *Feature) Destruct() {
	for _, off := range f.offs {
		off()
	}
	f.offs = nil
	f.itemCount = nil
}

func (f *Feature) onRemoveClick(ev *dom.Event) {
	item := ev.Target.Ancestor(".shopping-bag-item")
	if item == nil {
		f.logger.Warn("remove trigger outside a bag item")
		return
	}
	f.p.Notify(events.RemoveProduct, RemoveArgs{ItemKey: item.Data("item-key"), Item: item})
}

func (f *Feature) onAddClick(ev *dom.Event) {
	f.AddProduct(ProductArgs{ProductID: ev.Target.Data("product-id"), Trigger: ev.Target})
}

func (f *Feature) onWaitlistClick(ev *dom.Event) {
	f.p.Notify(events.AddProductToWaitlist, ProductArgs{ProductID: ev.Target.Data("product-id"), Trigger: ev.Target})
}

func (f *Feature) removeProduct(payload any) {
	args, ok := payload.(RemoveArgs)
	if !ok || args.ItemKey == "" {
		f.logger.Warn("remove-product without an item key")
		return
	}
	f.p.MakeRequest(ajax.Request{
		URL:  RemoveURL,
		Data: url.Values{"item_key": {args.ItemKey}}.Encode(),
		Args: args,
	}, func(resp ajax.Response) {
		if !succeeded(resp) {
			f.p.Interpret(resp, args.Item)
			return
		}
		f.p.Notify(events.ProductRemoved, Result{Response: resp, Args: args})
	})
}

// AddProduct puts a product in the bag and announces it.
func (f *Feature) AddProduct(args ProductArgs) {
	if args.ProductID == "" {
		f.logger.Warn("add without a product id")
		return
	}
	f.p.MakeRequest(ajax.Request{
		URL:  AddURL,
		Data: url.Values{"product_id": {args.ProductID}}.Encode(),
		Args: args,
	}, func(resp ajax.Response) { f.HandleAddProduct(resp, args) })
}

// HandleAddProduct handles the reply to an add request.
func (f *Feature) HandleAddProduct(resp ajax.Response, args ProductArgs) {
	if !succeeded(resp) {
		f.p.Interpret(resp, args.Trigger)
		return
	}
	f.adjustCount(1)
	f.p.Notify(events.ProductAdded, Result{Response: resp, Args: args})
}

func (f *Feature) addToWaitlist(payload any) {
	args, ok := payload.(ProductArgs)
	if !ok || args.ProductID == "" {
		f.logger.Warn("add-product-to-waitlist without a product id")
		return
	}
	f.p.MakeRequest(ajax.Request{URL: WaitlistURL(args.ProductID), Args: args}, func(resp ajax.Response) {
		f.p.Interpret(resp, args.Trigger)
		if succeeded(resp) {
			f.p.Notify(events.ProductAddedToWaitlist, Result{Response: resp, Args: args})
		}
	})
}

// handleRemoveItem fades the removed item out, detaches it, then updates
// the counter. Without an item only the counter changes.
func (f *Feature) handleRemoveItem(payload any) {
	res, _ := payload.(Result)
	args, _ := res.Args.(RemoveArgs)
	item := args.Item
	if item == nil {
		f.adjustCount(-1)
		return
	}
	item.SetStyle("transition", "opacity 0.15s")
	item.SetStyle("opacity", "0")
	f.p.Clock().AfterFunc(HideTime, func() {
		item.SetStyle("display", "none")
		item.Remove()
		f.adjustCount(-1)
	})
}

// adjustCount moves the bag counter by delta and mirrors it in the
// navigation bar.
func (f *Feature) adjustCount(delta int) {
	store := f.p.Store()
	n := store.ItemCount()
	if n == 0 && f.itemCount != nil {
		n, _ = strconv.Atoi(strings.TrimSpace(f.itemCount.Text()))
	}
	n += delta
	if n < 0 {
		n = 0
	}
	store.SetItemCount(n)
	f.itemCount.SetText(strconv.Itoa(n))
}

// succeeded reports a 200 reply that does not carry an error envelope.
func succeeded(resp ajax.Response) bool {
	if !resp.OK() {
		return false
	}
	env, err := envelope.Parse(resp.Body)
	if err != nil {
		return false
	}
	return !env.IsError()
}
