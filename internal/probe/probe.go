// Package probe drives one storefront page headlessly: it fetches the
// page, boots the page runtime on it and replays clicks and submissions
// against the live backend.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tailorshop/storefront/internal/config"
	"github.com/tailorshop/storefront/internal/dialog"
	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/features/recommend"
	"github.com/tailorshop/storefront/internal/features/shoppingbag"
	"github.com/tailorshop/storefront/internal/features/social"
	"github.com/tailorshop/storefront/internal/features/tracking"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/metrics"
	"github.com/tailorshop/storefront/internal/page"
	"github.com/tailorshop/storefront/internal/pagectx"
	"github.com/tailorshop/storefront/internal/pages"
)

// Action kinds.
const (
	ActionRemove   = "remove"
	ActionAdd      = "add"
	ActionWaitlist = "waitlist"
	ActionSubmit   = "submit"
	ActionClose    = "close"
)

// Action is one user gesture. Arg is a product id for add and waitlist,
// and "field=value,..." for submit.
type Action struct {
	Kind string
	Arg  string
}

// ParseAction reads "kind" or "kind:arg".
func ParseAction(s string) (Action, error) {
	kind, arg, _ := strings.Cut(s, ":")
	switch kind {
	case ActionRemove, ActionClose:
	case ActionAdd, ActionWaitlist, ActionSubmit:
		if arg == "" {
			return Action{}, fmt.Errorf("action %q needs an argument", kind)
		}
	default:
		return Action{}, fmt.Errorf("unknown action %q", kind)
	}
	return Action{Kind: kind, Arg: arg}, nil
}

// Options configures a probe run.
type Options struct {
	BaseURL string
	Path    string
	Page    config.PageConfig
	Metrics config.MetricsConfig
	// BeaconEndpoint enables the recommendation bridge when set.
	BeaconEndpoint string
	Actions        []Action
	// Settle is how long to let fades finish after each action.
	Settle time.Duration
	// OnAction, if set, is called off the loop after each action settled.
	OnAction   func(done int, a Action)
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Report is the page state once every action has settled.
type Report struct {
	ItemCount   int      `json:"item_count"`
	BagItems    int      `json:"bag_items"`
	DialogOpen  bool     `json:"dialog_open"`
	DialogText  string   `json:"dialog_text,omitempty"`
	AlertText   string   `json:"alert_text,omitempty"`
	Navigations []string `json:"navigations,omitempty"`
	Reloads     int      `json:"reloads,omitempty"`
	Queued      int      `json:"metrics_queued"`
	Dropped     int      `json:"metrics_dropped"`
}

// ErrNoTarget is returned when an action finds nothing on the page to act on.
var ErrNoTarget = errors.New("no element for action")

// Run performs the probe.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("probe")
	if opts.Path == "" {
		opts.Path = "/bag"
	}
	if opts.Settle <= 0 {
		opts.Settle = shoppingbag.HideTime + 100*time.Millisecond
	}
	client := opts.HTTPClient
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client = &http.Client{Timeout: 15 * time.Second, Jar: jar}
	}

	doc, err := fetchDocument(ctx, client, strings.TrimSuffix(opts.BaseURL, "/")+opts.Path)
	if err != nil {
		return nil, err
	}
	bundle, err := pages.ExtractBundle(doc)
	if err != nil {
		return nil, err
	}

	presenter, err := dialog.NewPresenter(opts.Page.Presentation)
	if err != nil {
		return nil, err
	}
	policy, err := metrics.ParsePolicy(opts.Metrics.Policy)
	if err != nil {
		return nil, err
	}
	queue := metrics.NewQueue(opts.Metrics.Capacity, policy, logger)

	var sink metrics.Sink = metrics.LogSink{Logger: logger}
	if opts.Metrics.Endpoint != "" {
		hs := metrics.NewHTTPSink(client, opts.Metrics.Endpoint, logger)
		defer hs.Close()
		sink = hs
	}

	features := []page.Feature{
		shoppingbag.New(),
		social.New(opts.Page.Social),
		tracking.New(sink),
	}
	if opts.BeaconEndpoint != "" {
		rec := recommend.NewBeaconRecommender(client, opts.BeaconEndpoint, logger)
		features = append(features, recommend.New(opts.Page.EngineURL, opts.Page.SetupURL, rec))
	}

	lp := loop.New(64)
	nav := &page.LogNavigator{Logger: logger}
	p, err := page.New(page.Options{
		Doc:        doc,
		BaseURL:    opts.BaseURL,
		HTTPClient: client,
		Poster:     lp,
		Clock:      loop.RealClock{Poster: lp},
		Navigator:  nav,
		Presenter:  presenter,
		Metrics:    queue,
		Features:   features,
		Logger:     logger,

		ScriptAllow: opts.Page.ScriptAllow,
	})
	if err != nil {
		return nil, err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := lp.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	var (
		report *Report
		runErr error
	)
	g.Go(func() error {
		defer stop()
		s := &session{lp: lp, p: p, nav: nav, opts: opts, logger: logger}
		report, runErr = s.run(gctx, bundle)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, runErr
}

func fetchDocument(ctx context.Context, client *http.Client, url string) (*dom.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building page request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return dom.Parse(resp.Body)
}

type session struct {
	lp     *loop.Loop
	p      *page.Page
	nav    *page.LogNavigator
	opts   Options
	logger *zap.Logger
}

func (s *session) run(ctx context.Context, bundle pagectx.Bundle) (*Report, error) {
	var initErr error
	if err := s.lp.Do(ctx, func() {
		if initErr = s.p.Init(ctx, bundle); initErr == nil {
			s.p.Load()
		}
	}); err != nil {
		return nil, err
	}
	if initErr != nil {
		return nil, initErr
	}
	defer s.lp.Do(context.Background(), s.p.Teardown)

	if err := s.settle(ctx); err != nil {
		return nil, err
	}

	for i, a := range s.opts.Actions {
		var actErr error
		if err := s.lp.Do(ctx, func() { actErr = s.perform(a) }); err != nil {
			return nil, err
		}
		if actErr != nil {
			return nil, fmt.Errorf("%s: %w", a.Kind, actErr)
		}
		s.logger.Debug("action sent", zap.String("kind", a.Kind), zap.String("arg", a.Arg))
		if err := s.settle(ctx); err != nil {
			return nil, err
		}
		if s.opts.OnAction != nil {
			s.opts.OnAction(i+1, a)
		}
	}

	var r Report
	if err := s.lp.Do(ctx, func() { r = s.snapshot() }); err != nil {
		return nil, err
	}
	return &r, nil
}

// settle waits for in-flight requests, then for timers they started.
func (s *session) settle(ctx context.Context) error {
	s.p.Wait()
	if err := s.lp.Do(ctx, func() {}); err != nil {
		return err
	}
	select {
	case <-time.After(s.opts.Settle):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.lp.Do(ctx, func() {})
}

func (s *session) perform(a Action) error {
	doc := s.p.Document()
	switch a.Kind {
	case ActionRemove:
		n := doc.One("." + shoppingbag.TriggerRemove)
		if n == nil {
			return ErrNoTarget
		}
		s.p.Click(n)
	case ActionAdd, ActionWaitlist:
		cls := shoppingbag.TriggerAdd
		if a.Kind == ActionWaitlist {
			cls = shoppingbag.TriggerWaitlist
		}
		for _, n := range doc.All("." + cls) {
			if n.Data("product-id") == a.Arg {
				s.p.Click(n)
				return nil
			}
		}
		return ErrNoTarget
	case ActionSubmit:
		form := doc.One("form.ajax_request_form")
		if form == nil {
			return ErrNoTarget
		}
		for _, pair := range strings.Split(a.Arg, ",") {
			name, value, _ := strings.Cut(pair, "=")
			field := formField(form, name)
			if field == nil {
				return fmt.Errorf("%w: field %s", ErrNoTarget, name)
			}
			field.SetValue(value)
		}
		s.p.Submit(form)
	case ActionClose:
		n := doc.One("#" + dialog.ContainerID + " .hd .close")
		if n == nil {
			return ErrNoTarget
		}
		s.p.Click(n)
	}
	return nil
}

// formField finds a control by bare or nested ("order[name]") name.
func formField(form *dom.Node, name string) *dom.Node {
	for _, f := range form.All("input, textarea, select") {
		if n := f.Attr("name"); n == name || n == "order["+name+"]" {
			return f
		}
	}
	return nil
}

func (s *session) snapshot() Report {
	doc := s.p.Document()
	r := Report{
		ItemCount:   s.p.Store().ItemCount(),
		BagItems:    len(doc.All(".shopping-bag-item")),
		Navigations: s.nav.Visited(),
		Reloads:     s.nav.Reloads(),
		Queued:      s.p.Metrics().Len(),
		Dropped:     s.p.Metrics().Dropped(),
	}
	if n := doc.One(".user-navigation .item_count"); n != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(n.Text())); err == nil {
			r.ItemCount = v
		}
	}
	if d := s.p.Dialogs(); d != nil && d.IsOpen() {
		r.DialogOpen = true
		r.DialogText = strings.TrimSpace(d.Container().One(".bd").Text())
	}
	for _, a := range doc.All(".alert") {
		if !a.HasClass("hide") && (a.HasClass("alert-error") || a.HasClass("alert-success")) {
			r.AlertText = strings.TrimSpace(a.One("p").Text())
		}
	}
	return r
}
