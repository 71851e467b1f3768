// Package page is the per-page context object. It owns every runtime
// component and is handed to feature handlers, which reach the core only
// through it.
package page

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/ajax"
	"github.com/tailorshop/storefront/internal/dialog"
	"github.com/tailorshop/storefront/internal/dispatch"
	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/forms"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/metrics"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/scripts"
)

// Feature is a self-contained page behaviour built on the core.
type Feature interface {
	Name() string
	Init(p *Page) error
	Destruct()
}

// Options configures a Page. Doc and BaseURL are required.
type Options struct {
	Doc        *dom.Document
	BaseURL    string
	HTTPClient *http.Client
	// Poster receives every asynchronous completion. Defaults to loop.Immediate.
	Poster loop.Poster
	// Clock drives fades. Defaults to a RealClock on Poster.
	Clock   loop.Clock
	Fetcher scripts.Fetcher
	// ScriptAllow limits the default fetcher to matching script locations.
	ScriptAllow []string
	Navigator   ajax.Navigator
	Presenter   dialog.Presenter
	Metrics     *metrics.Queue
	Features    []Feature
	Logger      *zap.Logger
}

// Page wires the runtime for one loaded document.
type Page struct {
	logger   *zap.Logger
	doc      *dom.Document
	poster   loop.Poster
	clock    loop.Clock
	nav      ajax.Navigator
	features []Feature

	bus        *events.Bus
	dispatcher *dispatch.Dispatcher
	transport  *ajax.Transport
	loader     *scripts.Loader
	metrics    *metrics.Queue
	presenter  dialog.Presenter

	store     *pagectx.Store
	dialogs   *dialog.Manager
	interp    *ajax.Interpreter
	submitter *forms.Submitter

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New builds a Page. Nothing on the document changes until Init.
func New(opts Options) (*Page, error) {
	if opts.Doc == nil {
		return nil, fmt.Errorf("page: document is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poster := opts.Poster
	if poster == nil {
		poster = loop.Immediate{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = loop.RealClock{Poster: poster}
	}
	nav := opts.Navigator
	if nav == nil {
		nav = &LogNavigator{Logger: logger}
	}

	transport, err := ajax.NewTransport(opts.HTTPClient, opts.BaseURL, poster, logger)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		f, err := scripts.NewHTTPFetcher(opts.HTTPClient, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("page: %w", err)
		}
		if err := f.Allow(opts.ScriptAllow...); err != nil {
			return nil, fmt.Errorf("page: %w", err)
		}
		fetcher = f
	}
	queue := opts.Metrics
	if queue == nil {
		queue = metrics.NewQueue(0, metrics.DropOldest, logger)
	}

	bus := events.NewBus(logger)
	return &Page{
		logger:     logger.Named("page"),
		doc:        opts.Doc,
		poster:     poster,
		clock:      clock,
		nav:        nav,
		features:   opts.Features,
		bus:        bus,
		dispatcher: dispatch.New(bus, logger),
		transport:  transport,
		loader:     scripts.NewLoader(opts.Doc, fetcher, poster, logger),
		metrics:    queue,
		presenter:  opts.Presenter,
		store:      pagectx.NewStore(pagectx.Bundle{}),
	}, nil
}

// Init runs once per page with the server's context bundle: it builds the
// dialog and reply handling, queues the bundle's scripts, starts every
// feature and announces util:init. A feature that fails to start is logged
// and skipped.
func (p *Page) Init(ctx context.Context, bundle pagectx.Bundle) error {
	if p.started {
		return fmt.Errorf("page: already initialized")
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.store = pagectx.NewStore(bundle)
	p.dialogs = dialog.New(p.doc, p.store, p.bus, p.clock, p.presenter, p.logger)
	p.interp = ajax.NewInterpreter(p.dialogs, p.store, p.bus, p.nav, p.clock, p.logger)
	p.submitter = forms.NewSubmitter(p.bus, p.transport, p.interp, p.logger)

	dispatch.RegisterDefaults(p.dispatcher, p.doc, p.clock)
	for _, src := range p.store.Scripts() {
		p.loader.Enqueue(src, nil)
	}

	for _, f := range p.features {
		if err := f.Init(p); err != nil {
			p.logger.Error("feature failed to start", zap.String("feature", f.Name()), zap.Error(err))
			continue
		}
		p.logger.Debug("feature started", zap.String("feature", f.Name()))
	}

	forms.InitSelects(p.doc)
	p.bus.Notify(events.Init, nil)
	return nil
}

// Load handles the window load event.
func (p *Page) Load() {
	p.loader.OnLoad(p.context())
}

// Click delivers a click on target: element listeners first, then the
// trigger-class dispatcher unless a listener stopped propagation.
func (p *Page) Click(target *dom.Node) *dom.Event {
	ev := dom.NewEvent("click", target)
	p.doc.Dispatch(ev)
	if !ev.PropagationStopped() {
		p.dispatcher.Click(ev)
	}
	return ev
}

// KeyDown delivers a key press.
func (p *Page) KeyDown(key string) {
	ev := &dom.Event{Type: "keydown", Target: p.doc.Body(), Key: key}
	p.doc.Dispatch(ev)
	p.dispatcher.KeyDown(ev)
}

// Resize delivers a window resize.
func (p *Page) Resize(width, height int) {
	p.dispatcher.Resize(&dom.Event{Type: "resize", Width: width, Height: height})
}

// Submit delivers a form submission. It reports whether the form went out
// as a background request.
func (p *Page) Submit(form *dom.Node) (*dom.Event, bool) {
	ev := dom.NewEvent("submit", form)
	p.doc.Dispatch(ev)
	return ev, p.submitter.Submit(p.context(), ev)
}

// Change delivers a change on a form control.
func (p *Page) Change(control *dom.Node) {
	ev := dom.NewEvent("change", control)
	p.doc.Dispatch(ev)
	if control.Tag() == "select" && control.Ancestor(".select-wrap") != nil {
		forms.SelectChanged(control)
	}
}

// Teardown announces util:destruct, stops every feature and detaches all
// handlers. In-flight requests are cancelled.
func (p *Page) Teardown() {
	p.bus.Notify(events.Destruct, nil)
	for i := len(p.features) - 1; i >= 0; i-- {
		p.features[i].Destruct()
	}
	p.dispatcher.Teardown()
	if p.dialogs != nil {
		p.dialogs.Teardown()
	}
	p.doc.ClearListeners()
	p.bus.Reset()
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until every request and script load started so far has
// delivered its completion. It must not be called from the loop.
func (p *Page) Wait() {
	p.transport.Wait()
	p.loader.Wait()
}

func (p *Page) context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// RegisterClickHandler routes clicks on triggerClass to h.
func (p *Page) RegisterClickHandler(triggerClass string, h dispatch.HandlerFunc, opts ...dispatch.Option) {
	p.dispatcher.Register(triggerClass, h, opts...)
}

// MakeRequest sends a background request; cb runs on the loop.
func (p *Page) MakeRequest(req ajax.Request, cb ajax.Callback) {
	p.transport.MakeRequest(p.context(), req, cb)
}

// Interpret presents a reply the standard way.
func (p *Page) Interpret(resp ajax.Response, requestor *dom.Node) {
	p.interp.Interpret(resp, requestor)
}

// Notify publishes on the page bus.
func (p *Page) Notify(name events.Name, payload any) { p.bus.Notify(name, payload) }

// Subscribe listens on the page bus.
func (p *Page) Subscribe(name events.Name, fn events.Handler) (unsubscribe func()) {
	return p.bus.Subscribe(name, fn)
}

// ContextData reads feature data from the context bundle.
func (p *Page) ContextData(key string) any { return p.store.Data(key) }

// ContextString reads a markup snippet from the context bundle.
func (p *Page) ContextString(key string) string { return p.store.String(key) }

func (p *Page) Context() context.Context { return p.context() }
func (p *Page) Document() *dom.Document  { return p.doc }
func (p *Page) Store() *pagectx.Store    { return p.store }
func (p *Page) Bus() *events.Bus         { return p.bus }
func (p *Page) Dialogs() *dialog.Manager { return p.dialogs }
func (p *Page) Scripts() *scripts.Loader { return p.loader }
func (p *Page) Metrics() *metrics.Queue  { return p.metrics }
func (p *Page) Clock() loop.Clock        { return p.clock }
func (p *Page) Logger() *zap.Logger      { return p.logger }
