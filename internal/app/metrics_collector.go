package app

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/metrics"
	"bustracker.transport.org/internal/report"
)

// StartMetricsCollection refreshes the database and fleet gauges every
// interval until ctx is cancelled.
func (app *Application) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.CollectMetrics(ctx)
	for {
		select {
		case <-ctx.Done():
			app.Logger.Info("Stopping metrics collection routine")
			return
		case <-ticker.C:
			app.CollectMetrics(ctx)
		}
	}
}

// CollectMetrics pings the store and summarises the active fleet.
func (app *Application) CollectMetrics(ctx context.Context) {
	if err := app.Store.Ping(ctx); err != nil {
		app.Metrics.SetDatabaseUp(false)
		app.Logger.Error("Database ping failed", "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  report.Tags("component", "database"),
			Level: sentry.LevelError,
		})
		return
	}
	app.Metrics.SetDatabaseUp(true)

	buses, err := app.Store.ListActiveBuses(ctx)
	if err != nil {
		app.Logger.Error("Failed to list active buses", "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  report.Tags("component", "fleet_metrics"),
			Level: sentry.LevelWarning,
		})
		return
	}

	var area *geo.BoundingBox
	if routes, err := app.Store.ListRoutes(ctx); err == nil {
		area = metrics.ServiceArea(routes)
	} else {
		app.Logger.Warn("Failed to list routes for service area", "error", err)
	}

	snap := metrics.SummarizeFleet(buses, area, time.Now().UTC(), metrics.DefaultStaleAfter)
	app.Metrics.RecordFleet(snap)
	app.Logger.Debug("Collected fleet metrics",
		"active", snap.Active,
		"stale", snap.Stale,
		"out_of_area", snap.OutOfArea,
		"clusters", len(snap.Clusters))
}
