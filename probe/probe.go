// Package probe implements parley.ImageProber with an HTTP HEAD request that
// inspects the Content-Type of a URL.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/parley"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 5 * time.Second

// userAgent is sent with every probe; some image hosts reject requests
// without a browser-like agent.
const userAgent = "Mozilla/5.0"

var _ parley.ImageProber = (*Prober)(nil)

// Prober issues HEAD requests and remembers URLs already confirmed as
// images. Failed probes are not cached so a flaky host is retried on the
// next request. It is safe for concurrent use.
type Prober struct {
	client  *http.Client
	timeout time.Duration

	mu     sync.Mutex
	images map[string]bool
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// New returns a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		images:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsImage reports whether url serves content whose type mentions "image".
func (p *Prober) IsImage(ctx context.Context, url string) (bool, error) {
	p.mu.Lock()
	cached, ok := p.images[url]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("probe: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe: %w", err)
	}
	resp.Body.Close()

	image := strings.Contains(resp.Header.Get("Content-Type"), "image")
	p.mu.Lock()
	p.images[url] = image
	p.mu.Unlock()
	return image, nil
}
