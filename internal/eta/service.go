package eta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bustracker.transport.org/internal/models"
)

// DataSource supplies the data an ETA is computed from.
type DataSource interface {
	GetBusByNumber(ctx context.Context, number string) (models.Bus, error)
	// GetRecentLocations returns at most limit samples, newest first.
	GetRecentLocations(ctx context.Context, busID int64, limit int) ([]models.LocationSample, error)
	// GetStopsForRoute returns the route's stops ordered by ascending order.
	GetStopsForRoute(ctx context.Context, routeID int64) ([]models.Stop, error)
	// GetCurrentRoute reports the bus's current route, if any.
	GetCurrentRoute(ctx context.Context, busID int64) (int64, bool, error)
}

// Publisher receives every freshly computed ETA. Cache hits are not published.
type Publisher interface {
	PublishETA(c Computation) error
}

// Metrics records computation outcomes.
type Metrics interface {
	ObserveETA(mode models.Mode, degraded bool, elapsed time.Duration)
}

// Query identifies what a caller wants an ETA for.
type Query struct {
	BusNumber string
	RouteID   *int64
	StopOrder *int
}

// Computation is a computed ETA together with the context it was derived from.
type Computation struct {
	Bus              models.Bus
	RequestedRouteID int64
	Result           models.ETAResult
	Detail           models.ETADetail
	TotalStops       int
	CurrentLocation  *models.LocationSample
	ComputedAt       time.Time
}

// clone returns a copy that shares no pointers with c.
func (c Computation) clone() Computation {
	if c.Result.CurrentRouteID != nil {
		id := *c.Result.CurrentRouteID
		c.Result.CurrentRouteID = &id
	}
	if c.Detail.TargetStop != nil {
		stop := *c.Detail.TargetStop
		c.Detail.TargetStop = &stop
	}
	if c.CurrentLocation != nil {
		loc := *c.CurrentLocation
		c.CurrentLocation = &loc
	}
	return c
}

// RouteDifference is the absolute distance between requested and current route ids.
func (c Computation) RouteDifference() int64 {
	if c.Result.CurrentRouteID == nil {
		return 0
	}
	d := c.RequestedRouteID - *c.Result.CurrentRouteID
	if d < 0 {
		return -d
	}
	return d
}

// Service answers ETA queries, memoizing results in an injected Cache.
// Callers always receive copies; cached computations are never shared.
type Service struct {
	source    DataSource
	engine    *Engine
	cache     *Cache
	publisher Publisher
	metrics   Metrics
	logger    *slog.Logger
}

// ServiceOption configures optional collaborators of a Service.
type ServiceOption func(*Service)

// WithPublisher publishes fresh computations.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records computation metrics.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service.
func NewService(source DataSource, engine *Engine, c *Cache, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		source: source,
		engine: engine,
		cache:  c,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the underlying cache for stats and administration.
func (s *Service) Cache() *Cache {
	return s.cache
}

// ETA answers a summary query.
func (s *Service) ETA(ctx context.Context, q Query) (models.ETAResult, error) {
	q.StopOrder = nil
	c, err := s.lookup(ctx, q, KindSummary)
	if err != nil {
		return models.ETAResult{}, err
	}
	return c.Result, nil
}

// DetailedETA answers a detailed query, optionally aimed at an explicit stop.
func (s *Service) DetailedETA(ctx context.Context, q Query) (Computation, error) {
	return s.lookup(ctx, q, KindDetail)
}

// Invalidate drops every cached entry for a bus and returns how many were removed.
func (s *Service) Invalidate(busNumber string) int {
	return s.cache.DeleteFunc(func(k CacheKey) bool { return k.BusNumber == busNumber })
}

func (s *Service) lookup(ctx context.Context, q Query, kind Kind) (Computation, error) {
	key := newCacheKey(q, kind)
	if c, ok := s.cache.Get(key); ok {
		s.logger.Debug("eta cache hit", "bus_number", q.BusNumber, "kind", kind)
		return c.clone(), nil
	}

	c, err := s.compute(ctx, q)
	if err != nil {
		return Computation{}, err
	}

	s.cache.Set(key, c.clone())

	if s.publisher != nil {
		if err := s.publisher.PublishETA(c); err != nil {
			s.logger.Warn("failed to publish eta", "bus_number", q.BusNumber, "error", err)
		}
	}
	return c, nil
}

func (s *Service) compute(ctx context.Context, q Query) (Computation, error) {
	start := time.Now()

	bus, err := s.source.GetBusByNumber(ctx, q.BusNumber)
	if err != nil {
		return Computation{}, fmt.Errorf("get bus %q: %w", q.BusNumber, err)
	}

	req := Request{
		BusNumber:         bus.Number,
		RequestedRouteID:  q.RouteID,
		ExplicitStopOrder: q.StopOrder,
	}

	currentID, assigned, err := s.source.GetCurrentRoute(ctx, bus.ID)
	if err != nil {
		return Computation{}, fmt.Errorf("get current route for bus %d: %w", bus.ID, err)
	}
	if assigned {
		req.CurrentRouteID = &currentID
	}

	var routeID int64
	switch {
	case q.RouteID != nil:
		routeID = *q.RouteID
	case assigned:
		routeID = currentID
	default:
		return Computation{}, fmt.Errorf("bus %q: %w", q.BusNumber, ErrNoRouteContext)
	}

	// Stops and samples only matter when the bus is on the requested route.
	if !assigned || currentID == routeID {
		req.Stops, err = s.source.GetStopsForRoute(ctx, routeID)
		if err != nil {
			return Computation{}, fmt.Errorf("get stops for route %d: %w", routeID, err)
		}
		req.Samples, err = s.source.GetRecentLocations(ctx, bus.ID, s.engine.Options().SpeedWindow)
		if err != nil {
			return Computation{}, fmt.Errorf("get locations for bus %d: %w", bus.ID, err)
		}
	}

	result, detail, err := s.engine.Compute(req)
	if err != nil {
		return Computation{}, fmt.Errorf("bus %q route %d: %w", q.BusNumber, routeID, err)
	}

	c := Computation{
		Bus:              bus,
		RequestedRouteID: routeID,
		Result:           result,
		Detail:           detail,
		TotalStops:       len(req.Stops),
		ComputedAt:       start,
	}
	if len(req.Samples) > 0 {
		latest := req.Samples[0]
		c.CurrentLocation = &latest
	}

	if s.metrics != nil {
		s.metrics.ObserveETA(detail.Mode, detail.SpeedDegraded, time.Since(start))
	}
	s.logger.Info("computed eta",
		"bus_number", bus.Number,
		"route_id", routeID,
		"mode", detail.Mode,
		"eta_minutes", detail.ETAMinutes)

	return c, nil
}
