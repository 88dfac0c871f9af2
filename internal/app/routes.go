package app

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"bustracker.transport.org/internal/middleware"
)

// Routes registers every endpoint and wraps the router in the middleware
// chain: request id, process time, Sentry, security headers.
//
// The :bus parameter is a bus number on the ETA and routes endpoints and a
// numeric bus id on live and history.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.notFound(w, "Not Found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.errorResponse(w, http.StatusMethodNotAllowed, "Method Not Allowed", "MethodNotAllowed")
	})

	handle := func(method, pattern string, h http.HandlerFunc) {
		router.Handler(method, pattern, middleware.Instrument(app.Metrics, pattern, h))
	}

	handle(http.MethodGet, "/", app.rootHandler)
	handle(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	handle(http.MethodGet, "/health/detailed", app.detailedHealthHandler)
	handle(http.MethodGet, "/info", app.infoHandler)

	handle(http.MethodGet, "/bus/:bus/eta", app.etaHandler)
	handle(http.MethodDelete, "/bus/:bus/eta", app.invalidateETAHandler)
	handle(http.MethodGet, "/bus/:bus/eta/detailed", app.detailedETAHandler)
	handle(http.MethodGet, "/bus/:bus/live", app.liveLocationHandler)
	handle(http.MethodGet, "/bus/:bus/history", app.locationHistoryHandler)
	handle(http.MethodGet, "/bus/:bus/routes", app.busRoutesHandler)
	handle(http.MethodGet, "/buses/active", app.activeBusesHandler)
	handle(http.MethodGet, "/routes", app.routesHandler)
	handle(http.MethodDelete, "/cache", app.clearCacheHandler)

	router.Handler(http.MethodGet, "/metrics",
		middleware.NewCachedPromHandler(ctx, app.Metrics.Gatherer(), app.Config.MetricsCacheTTL()))

	var handler http.Handler = router
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.SentryMiddleware(handler)
	handler = middleware.ProcessTime(handler)
	return middleware.RequestID(handler)
}
