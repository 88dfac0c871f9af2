package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

// SentryMiddleware attaches a Sentry hub to each request and reports panics
// before re-raising them. The hub's scope carries the request id and, on
// /bus/ paths, the bus number. Run it inside RequestID.
func SentryMiddleware(next http.Handler) http.Handler {
	sentryHandler := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: true,
		Timeout:         2 * time.Second,
	})

	return sentryHandler.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.ConfigureScope(func(scope *sentry.Scope) {
				if id := RequestIDFromContext(r.Context()); id != "" {
					scope.SetTag("request_id", id)
				}
				if bus := busNumberFromPath(r.URL.Path); bus != "" {
					scope.SetTag("bus_number", bus)
				}
			})
		}
		next.ServeHTTP(w, r)
	}))
}

// busNumberFromPath returns the :bus segment of /bus/:bus/... paths.
func busNumberFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/bus/")
	if !ok {
		return ""
	}
	bus, _, _ := strings.Cut(rest, "/")
	return bus
}
