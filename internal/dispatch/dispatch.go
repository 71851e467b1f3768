// Package dispatch routes page-level clicks to handlers by trigger class.
//
// A single document-level listener inspects the click target's class list
// and runs at most one registered handler, instead of wiring a listener to
// every interactive element.
package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
)

// HandlerFunc handles a click routed by trigger class.
type HandlerFunc func(ev *dom.Event)

// Option configures a registration.
type Option func(*entry)

// WithPriority sets the entry's precedence when several registered trigger
// classes appear on the same target. Higher wins; the default is 0.
func WithPriority(p int) Option {
	return func(e *entry) { e.priority = p }
}

type entry struct {
	class    string
	handler  HandlerFunc
	priority int
}

// Dispatcher maps trigger classes to handlers.
type Dispatcher struct {
	logger *zap.Logger
	bus    *events.Bus

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a Dispatcher that reports every click on bus.
func New(bus *events.Bus, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:  logger.Named("dispatch"),
		bus:     bus,
		entries: make(map[string]entry),
	}
}

// Register maps triggerClass to h. Registering a class again replaces the
// previous handler.
func (d *Dispatcher) Register(triggerClass string, h HandlerFunc, opts ...Option) {
	e := entry{class: triggerClass, handler: h}
	for _, o := range opts {
		o(&e)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[triggerClass]; exists {
		d.logger.Debug("replacing click handler", zap.String("class", triggerClass))
	}
	d.entries[triggerClass] = e
}

// Unregister removes the handler for triggerClass.
func (d *Dispatcher) Unregister(triggerClass string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, triggerClass)
}

// Registered reports whether triggerClass has a handler.
func (d *Dispatcher) Registered(triggerClass string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[triggerClass]
	return ok
}

// Resolve returns the class whose handler a click on target would run.
//
// The highest priority wins. Among equal priorities the class that appears
// last in the target's class attribute wins.
func (d *Dispatcher) Resolve(target *dom.Node) (string, bool) {
	e, ok := d.resolve(target)
	return e.class, ok
}

func (d *Dispatcher) resolve(target *dom.Node) (entry, bool) {
	classes := target.Classes()

	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		chosen entry
		found  bool
	)
	for i := len(classes) - 1; i >= 0; i-- {
		e, ok := d.entries[classes[i]]
		if !ok {
			continue
		}
		if !found || e.priority > chosen.priority {
			chosen, found = e, true
		}
	}
	return chosen, found
}

// Conflicts returns the registered trigger classes present on target when
// there is more than one.
func (d *Dispatcher) Conflicts(target *dom.Node) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var hits []string
	for _, c := range target.Classes() {
		if _, ok := d.entries[c]; ok {
			hits = append(hits, c)
		}
	}
	if len(hits) < 2 {
		return nil
	}
	return hits
}

// Click routes a click event. When a trigger class matches, exactly one
// handler runs and the default action is prevented. The view event is
// published either way. It reports whether a handler ran.
func (d *Dispatcher) Click(ev *dom.Event) bool {
	e, ok := d.resolve(ev.Target)
	if !ok {
		d.bus.Notify(events.ViewEvent, ev)
		return false
	}

	if conflicts := d.Conflicts(ev.Target); conflicts != nil {
		d.logger.Warn("several trigger classes on one element",
			zap.Strings("classes", conflicts), zap.String("chosen", e.class))
	}

	e.handler(ev)
	d.bus.Notify(events.ViewEvent, ev)
	ev.PreventDefault()
	return true
}

// KeyDown broadcasts a key event.
func (d *Dispatcher) KeyDown(ev *dom.Event) {
	d.bus.Notify(events.KeyEvent, ev)
}

// Resize broadcasts a window resize.
func (d *Dispatcher) Resize(ev *dom.Event) {
	d.bus.Notify(events.ResizeEvent, ev)
}

// Teardown drops every registration.
func (d *Dispatcher) Teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]entry)
}
