package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a Prometheus exposition that is regenerated at
// most once per ttl, so concurrent scrapers share one gather.
type CachedPromHandler struct {
	mu    sync.RWMutex
	cache []byte
	ttl   time.Duration
	h     http.Handler
}

// NewCachedPromHandler starts a refresh loop bound to ctx. The first
// exposition is rendered before it returns.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration) *CachedPromHandler {
	c := &CachedPromHandler{
		ttl: ttl,
		h:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}

	c.refresh(ctx)
	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *CachedPromHandler) refresh(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/metrics", nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	rec := &responseRecorder{buf: &bytes.Buffer{}, status: http.StatusOK}
	c.h.ServeHTTP(rec, req)
	if rec.status != http.StatusOK {
		return
	}

	c.mu.Lock()
	c.cache = rec.buf.Bytes()
	c.mu.Unlock()
}

// ServeHTTP writes the cached exposition, falling back to a live gather
// while the cache is empty.
func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	body := c.cache
	c.mu.RUnlock()

	if len(body) == 0 {
		c.h.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(body)
}

// responseRecorder captures promhttp output into a buffer.
type responseRecorder struct {
	buf    *bytes.Buffer
	header http.Header
	status int
}

func (rr *responseRecorder) Write(b []byte) (int, error) { return rr.buf.Write(b) }

func (rr *responseRecorder) Header() http.Header {
	if rr.header == nil {
		rr.header = http.Header{}
	}
	return rr.header
}

func (rr *responseRecorder) WriteHeader(statusCode int) { rr.status = statusCode }
