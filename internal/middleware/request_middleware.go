package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	RequestIDHeader   = "X-Request-ID"
	ProcessTimeHeader = "X-Process-Time"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID propagates an incoming X-Request-ID or assigns a new UUID, and
// stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the id set by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ProcessTime reports handler latency in seconds in the X-Process-Time header.
// The header is set just before the status line is written.
func ProcessTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, start: time.Now(), stampHeader: true}
		next.ServeHTTP(sw, r)
		sw.ensureHeader()
	})
}

// HTTPObserver receives one observation per served request.
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Instrument records latency and status for requests handled by next under
// the given route pattern.
func Instrument(obs HTTPObserver, route string, next http.Handler) http.Handler {
	if obs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(sw, r)
		obs.ObserveHTTP(route, r.Method, sw.statusCode(), time.Since(sw.start))
	})
}

// statusWriter remembers the status code and optionally stamps the
// process-time header once.
type statusWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	stampHeader bool
}

func (sw *statusWriter) ensureHeader() {
	if sw.status != 0 {
		return
	}
	sw.WriteHeader(http.StatusOK)
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status != 0 {
		return
	}
	sw.status = code
	if sw.stampHeader {
		sw.Header().Set(ProcessTimeHeader, fmt.Sprintf("%.6f", time.Since(sw.start).Seconds()))
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) statusCode() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
