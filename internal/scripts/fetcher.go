package scripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotAllowed is returned for a script whose location matches no allow pattern.
var ErrNotAllowed = errors.New("script source not allowed")

// Fetcher retrieves a script's source.
type Fetcher interface {
	Fetch(ctx context.Context, src string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src string) error

func (f FetcherFunc) Fetch(ctx context.Context, src string) error { return f(ctx, src) }

// HTTPFetcher downloads scripts over HTTP. Relative sources resolve against Base.
type HTTPFetcher struct {
	client   *http.Client
	base     *url.URL
	maxBytes int64
	allow    []string
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a 30 second timeout.
func NewHTTPFetcher(client *http.Client, baseURL string) (*HTTPFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, base: base, maxBytes: 5 << 20}, nil
}

// Allow restricts fetching to scripts whose host and path, joined as
// "host/path", match one of the glob patterns. No patterns allows everything.
func (f *HTTPFetcher) Allow(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid script pattern %q", p)
		}
	}
	f.allow = patterns
	return nil
}

func (f *HTTPFetcher) allowed(u *url.URL) bool {
	if len(f.allow) == 0 {
		return true
	}
	loc := u.Host + u.Path
	for _, p := range f.allow {
		if ok, _ := doublestar.Match(p, loc); ok {
			return true
		}
	}
	return false
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, src string) error {
	u, err := f.base.Parse(src)
	if err != nil {
		return fmt.Errorf("parsing script url: %w", err)
	}
	if !f.allowed(u) {
		return fmt.Errorf("%w: %s", ErrNotAllowed, u)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("http %d for %s", resp.StatusCode, u)
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBytes)); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return nil
}
