package app

import (
	"net"
	"net/http"
	"strconv"
	"time"
)

// OutgoingObserver receives the latency of each outgoing request.
type OutgoingObserver interface {
	ObserveOutgoing(url, method, status string, elapsed time.Duration)
}

// latencyTrackingRoundTripper wraps another RoundTripper and reports how long
// each request took, labelled by URL without query, method and status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
	obs  OutgoingObserver
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	elapsed := time.Since(start)

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// Query strings may carry API keys.
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	rt.obs.ObserveOutgoing(safeURL, req.Method, status, elapsed)
	return resp, err
}

// NewPooledClient returns the HTTP client used for GTFS downloads.
//
// Idle connections are kept for 90s so periodic refreshes reuse them. Dial
// and TLS handshakes time out after 5s. A GTFS bundle can be tens of
// megabytes, so the overall timeout is generous.
func NewPooledClient(obs OutgoingObserver) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	var rt http.RoundTripper = transport
	if obs != nil {
		rt = &latencyTrackingRoundTripper{next: transport, obs: obs}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   2 * time.Minute,
	}
}
