// Package scripts loads third-party scripts after the page has loaded.
package scripts

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/loop"
)

// maxParallel bounds concurrent script downloads.
const maxParallel = 8

// Done is called on the page loop once a script finished loading. err is
// non-nil when it could not be fetched.
type Done func(err error)

type queued struct {
	src  string
	done Done
}

// Loader queues scripts until the page load event and then loads them all
// in parallel. Each script gets an async <script> tag in the document.
//
// Enqueue, OnLoad, Load and Chain must be called from the page loop.
type Loader struct {
	doc     *dom.Document
	fetcher Fetcher
	poster  loop.Poster
	logger  *zap.Logger

	queue  []queued
	loaded bool
	ctx    context.Context

	wg sync.WaitGroup
}

// NewLoader creates a Loader.
func NewLoader(doc *dom.Document, fetcher Fetcher, poster loop.Poster, logger *zap.Logger) *Loader {
	if poster == nil {
		poster = loop.Immediate{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		doc:     doc,
		fetcher: fetcher,
		poster:  poster,
		logger:  logger.Named("scripts"),
		ctx:     context.Background(),
	}
}

// Enqueue schedules src for loading after the page load event. Once that
// event has passed the script loads right away.
func (l *Loader) Enqueue(src string, done Done) {
	if l.loaded {
		l.Load(l.ctx, src, done)
		return
	}
	l.queue = append(l.queue, queued{src: src, done: done})
}

// Pending returns the number of scripts waiting for the load event.
func (l *Loader) Pending() int { return len(l.queue) }

// OnLoad handles the page load event: every queued script starts loading
// independently. It does not wait for them.
func (l *Loader) OnLoad(ctx context.Context) {
	if l.loaded {
		return
	}
	l.loaded = true
	l.ctx = ctx
	queue := l.queue
	l.queue = nil
	if len(queue) == 0 {
		return
	}

	tags := make([]*dom.Node, len(queue))
	for i, q := range queue {
		tags[i] = l.insertTag(q.src)
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		var g errgroup.Group
		g.SetLimit(maxParallel)
		for i, q := range queue {
			g.Go(func() error {
				err := l.fetcher.Fetch(ctx, q.src)
				l.poster.Post(func() { l.finish(tags[i], q, err) })
				return err
			})
		}
		if err := g.Wait(); err != nil {
			l.logger.Warn("some scripts failed to load", zap.Error(err))
		}
	}()
}

// Load loads a single script now and calls done when it is in.
func (l *Loader) Load(ctx context.Context, src string, done Done) {
	q := queued{src: src, done: done}
	tag := l.insertTag(src)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := l.fetcher.Fetch(ctx, src)
		l.poster.Post(func() { l.finish(tag, q, err) })
	}()
}

// Chain loads srcs one after another: each starts only once the previous
// one's completion has run on the loop. It stops at the first failure or
// when ctx is cancelled. done, if not nil, is posted to the loop with the
// outcome; the returned Task lets a host await the same outcome.
func (l *Loader) Chain(ctx context.Context, srcs []string, done Done) *Task {
	t := newTask()
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := l.runChain(ctx, srcs)
		t.finish(err)
		if done != nil {
			l.poster.Post(func() { done(err) })
		}
	}()
	return t
}

func (l *Loader) runChain(ctx context.Context, srcs []string) error {
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := make(chan error, 1)
		l.poster.Post(func() {
			l.Load(ctx, src, func(err error) { step <- err })
		})
		select {
		case err := <-step:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Wait blocks until every started load has posted its completion.
func (l *Loader) Wait() { l.wg.Wait() }

func (l *Loader) finish(tag *dom.Node, q queued, err error) {
	if err != nil {
		l.logger.Warn("script failed", zap.String("src", q.src), zap.Error(err))
		tag.SetAttr("data-state", "error")
	} else {
		l.logger.Debug("script loaded", zap.String("src", q.src))
		tag.SetAttr("data-state", "loaded")
	}
	if q.done != nil {
		q.done(err)
	}
}

// insertTag adds an async script element before the first script on the
// page, or at the end of <head> when there is none.
func (l *Loader) insertTag(src string) *dom.Node {
	attrs := map[string]string{"src": src, "async": "async", "type": "text/javascript"}
	if first := l.doc.One("script"); first != nil {
		return first.InsertElementBefore("script", attrs)
	}
	return l.doc.Head().AppendElement("script", attrs)
}
