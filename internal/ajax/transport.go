// Package ajax issues the page's background requests and turns their
// replies into on-page feedback.
package ajax

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/loop"
)

// maxBody caps how much of a reply is read.
const maxBody = 1 << 20

// Request describes one background call. Data is a url-encoded query
// string; when Form is set its fields are sent instead.
type Request struct {
	URL    string
	Method string
	Data   string
	Form   *dom.Node
	// Args travels back to the callback untouched.
	Args any
}

// Response is what a callback receives. Err is set when no HTTP reply was
// obtained at all.
type Response struct {
	Request Request
	Status  int
	Body    []byte
	Err     error
}

// OK reports whether the server answered 200.
func (r Response) OK() bool { return r.Err == nil && r.Status == http.StatusOK }

// Callback handles a completed request on the page loop.
type Callback func(Response)

// Transport runs requests off the loop and posts completions back onto it.
type Transport struct {
	client *http.Client
	base   *url.URL
	poster loop.Poster
	logger *zap.Logger

	wg sync.WaitGroup
}

// NewTransport creates a Transport resolving relative URLs against baseURL.
// A nil client gets a 30 second timeout client.
func NewTransport(client *http.Client, baseURL string, poster loop.Poster, logger *zap.Logger) (*Transport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if poster == nil {
		poster = loop.Immediate{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{client: client, base: base, poster: poster, logger: logger.Named("ajax")}, nil
}

// MakeRequest starts req and posts cb with the outcome exactly once. Form
// fields are read before returning, so it must be called from the loop.
func (t *Transport) MakeRequest(ctx context.Context, req Request, cb Callback) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}
	req.Method = method

	payload := req.Data
	if req.Form != nil {
		payload = FormValues(req.Form).Encode()
	}

	target, err := t.base.Parse(req.URL)
	if err != nil {
		t.poster.Post(func() { cb(Response{Request: req, Err: fmt.Errorf("parsing request url: %w", err)}) })
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		resp := t.do(ctx, method, target, payload)
		resp.Request = req
		if resp.Err != nil {
			t.logger.Warn("request failed", zap.String("method", method), zap.String("url", target.String()), zap.Error(resp.Err))
		} else {
			t.logger.Debug("request done", zap.String("method", method), zap.String("url", target.String()), zap.Int("status", resp.Status))
		}
		if cb != nil {
			t.poster.Post(func() { cb(resp) })
		}
	}()
}

func (t *Transport) do(ctx context.Context, method string, target *url.URL, payload string) Response {
	var body io.Reader
	u := *target
	if method == http.MethodGet || method == http.MethodHead {
		if payload != "" {
			if u.RawQuery != "" {
				u.RawQuery += "&"
			}
			u.RawQuery += payload
		}
	} else {
		body = strings.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return Response{Err: fmt.Errorf("building request: %w", err)}
	}
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := t.client.Do(httpReq)
	if err != nil {
		return Response{Err: fmt.Errorf("sending request: %w", err)}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return Response{Status: res.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	return Response{Status: res.StatusCode, Body: data}
}

// Wait blocks until every started request has posted its callback.
func (t *Transport) Wait() { t.wg.Wait() }

// FormValues collects the successful controls of form the way a browser
// serializes it: named, enabled fields, checked boxes only, no buttons.
func FormValues(form *dom.Node) url.Values {
	vals := url.Values{}
	for _, f := range form.All("input, select, textarea") {
		name := f.Attr("name")
		if name == "" || f.Disabled() {
			continue
		}
		if f.Tag() == "input" {
			switch strings.ToLower(f.Attr("type")) {
			case "submit", "button", "reset", "image", "file":
				continue
			case "checkbox", "radio":
				if !f.HasAttr("checked") {
					continue
				}
				v := f.Attr("value")
				if v == "" && !f.HasAttr("value") {
					v = "on"
				}
				vals.Add(name, v)
				continue
			}
		}
		vals.Add(name, f.Value())
	}
	return vals
}
