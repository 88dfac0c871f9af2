package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"bustracker.transport.org/internal/cache"
)

const apiTitle = "Public Transport Tracking API"

// HealthStatus is the body of /v1/healthcheck. Ready means the store
// answered a ping.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Database    bool   `json:"database"`
	Ready       bool   `json:"ready"`
}

func (app *Application) pingStore(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return app.Store.Ping(ctx) == nil
}

// healthcheckHandler answers 200 when the store is reachable, 500 otherwise.
func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ready := app.pingStore(r.Context())

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		Database:    ready,
		Ready:       ready,
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, code, status)
}

type cacheReport struct {
	cache.Stats
	TTLSeconds             int `json:"ttl_seconds"`
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds"`
}

func (app *Application) cacheReport() cacheReport {
	return cacheReport{
		Stats:                  app.Cache.Stats(),
		TTLSeconds:             int(app.Cache.DefaultTTL().Seconds()),
		CleanupIntervalSeconds: app.Config.Cache.CleanupIntervalSeconds,
	}
}

func (app *Application) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	status := "healthy"
	if !app.pingStore(r.Context()) {
		database = "disconnected"
		status = "degraded"
	}
	nats := "disabled"
	if app.natsEnabled {
		nats = "enabled"
	}

	app.writeJSON(w, http.StatusOK, envelope{
		"status":      status,
		"api_version": app.Version,
		"cache":       app.cacheReport(),
		"components": envelope{
			"database": database,
			"cache":    "active",
			"nats":     nats,
		},
	})
}

type poolStatser interface {
	Stats() sql.DBStats
}

func (app *Application) databaseInfo() envelope {
	ps, ok := app.Store.(poolStatser)
	if !ok {
		return envelope{"backend": "memory"}
	}
	s := ps.Stats()
	return envelope{
		"backend":              "postgres",
		"max_open_connections": s.MaxOpenConnections,
		"open_connections":     s.OpenConnections,
		"in_use":               s.InUse,
		"idle":                 s.Idle,
		"wait_count":           s.WaitCount,
	}
}

func (app *Application) infoHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, envelope{
		"api":      envelope{"title": apiTitle, "version": app.Version},
		"cache":    app.cacheReport(),
		"database": app.databaseInfo(),
	})
}

func (app *Application) rootHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, envelope{
		"title":   apiTitle,
		"version": app.Version,
		"status":  "running",
		"endpoints": envelope{
			"health":       "/v1/healthcheck",
			"bus_location": "/bus/{bus_id}/live",
			"bus_routes":   "/bus/{bus_number}/routes",
			"bus_eta":      "/bus/{bus_number}/eta",
			"metrics":      "/metrics",
		},
	})
}
