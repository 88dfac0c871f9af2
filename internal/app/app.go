package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"bustracker.transport.org/internal/cache"
	"bustracker.transport.org/internal/config"
	"bustracker.transport.org/internal/eta"
	"bustracker.transport.org/internal/metrics"
	"bustracker.transport.org/internal/store"
)

// Application wires configuration, storage, the ETA service and metrics
// together and serves them over HTTP.
type Application struct {
	Config     *config.Config
	Store      store.Store
	ETAService *eta.Service
	Cache      *eta.Cache
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	Version    string

	natsEnabled bool
}

// Deps are the collaborators New does not build itself.
type Deps struct {
	Store     store.Store
	Publisher eta.Publisher
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	// Clock overrides the cache clock. Nil means time.Now.
	Clock func() time.Time
}

// New creates the ETA cache, engine and service and returns the wired Application.
func New(cfg *config.Config, deps Deps, version string) *Application {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}

	cacheOpts := []cache.Option{cache.WithObserver(collector)}
	if deps.Clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(deps.Clock))
	}
	etaCache := cache.New[eta.CacheKey, eta.Computation](cfg.CacheTTL(), cacheOpts...)

	engine := eta.NewEngine(cfg.ETAOptions(), logger)

	svcOpts := []eta.ServiceOption{eta.WithMetrics(collector)}
	if deps.Publisher != nil {
		svcOpts = append(svcOpts, eta.WithPublisher(deps.Publisher))
	}
	service := eta.NewService(deps.Store, engine, etaCache, logger, svcOpts...)

	return &Application{
		Config:      cfg,
		Store:       deps.Store,
		ETAService:  service,
		Cache:       etaCache,
		Metrics:     collector,
		Logger:      logger,
		Version:     version,
		natsEnabled: deps.Publisher != nil,
	}
}

// StartBackground launches the cache sweep and the fleet metrics loop. Both
// stop when ctx is cancelled.
func (app *Application) StartBackground(ctx context.Context) {
	go app.Cache.SweepRoutine(ctx, app.Config.CleanupInterval(), app.Logger)
	go app.StartMetricsCollection(ctx, 30*time.Second)
}
