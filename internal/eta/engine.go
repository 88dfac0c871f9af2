package eta

import (
	"io"
	"log/slog"
	"math"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

// CrossRoutePolicy holds the constants of the cross-route heuristic:
// eta = diff*BaseMinutesPerRoute + min(diff*ExtraMinutesPerRoute, MaxExtraMinutes)
// where diff is the absolute difference between route ids.
type CrossRoutePolicy struct {
	BaseMinutesPerRoute  int
	ExtraMinutesPerRoute int
	MaxExtraMinutes      int
}

// Options configures an Engine.
type Options struct {
	DefaultSpeedKmh float64
	MinSpeedKmh     float64
	MaxSpeedKmh     float64
	SpeedWindow     int
	CrossRoute      CrossRoutePolicy
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DefaultSpeedKmh: 20,
		MinSpeedKmh:     5,
		MaxSpeedKmh:     80,
		SpeedWindow:     DefaultSpeedWindow,
		CrossRoute: CrossRoutePolicy{
			BaseMinutesPerRoute:  90,
			ExtraMinutesPerRoute: 30,
			MaxExtraMinutes:      180,
		},
	}
}

// Request carries everything needed for one ETA computation.
// A nil RequestedRouteID means the bus's current route.
type Request struct {
	BusNumber         string
	RequestedRouteID  *int64
	CurrentRouteID    *int64
	Samples           []models.LocationSample
	Stops             []models.Stop
	ExplicitStopOrder *int
}

// Engine turns location samples and stops into ETAs. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero-valued options are replaced by their
// defaults so the speed used for division is always positive.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	def := DefaultOptions()
	if opts.DefaultSpeedKmh <= 0 {
		opts.DefaultSpeedKmh = def.DefaultSpeedKmh
	}
	if opts.MinSpeedKmh <= 0 {
		opts.MinSpeedKmh = def.MinSpeedKmh
	}
	if opts.MaxSpeedKmh < opts.MinSpeedKmh {
		opts.MaxSpeedKmh = math.Max(def.MaxSpeedKmh, opts.MinSpeedKmh)
	}
	if opts.SpeedWindow <= 0 {
		opts.SpeedWindow = def.SpeedWindow
	}
	if opts.CrossRoute == (CrossRoutePolicy{}) {
		opts.CrossRoute = def.CrossRoute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{opts: opts, logger: logger}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Compute produces the ETA for a request.
//
// When the requested route equals the current one (or no route was
// requested) the ETA comes from the bus's speed and its distance to the
// target stop. Otherwise the cross-route heuristic is used.
func (e *Engine) Compute(req Request) (models.ETAResult, models.ETADetail, error) {
	var routeID int64
	switch {
	case req.RequestedRouteID != nil:
		routeID = *req.RequestedRouteID
	case req.CurrentRouteID != nil:
		routeID = *req.CurrentRouteID
	default:
		return models.ETAResult{}, models.ETADetail{}, ErrNoRouteContext
	}

	var (
		detail models.ETADetail
		err    error
	)
	if req.CurrentRouteID != nil && *req.CurrentRouteID != routeID {
		detail = e.crossRoute(routeID, *req.CurrentRouteID)
	} else {
		detail, err = e.sameRoute(req)
		if err != nil {
			return models.ETAResult{}, models.ETADetail{}, err
		}
	}

	result := models.ETAResult{
		BusNumber:            req.BusNumber,
		EstimatedArrivalText: FormatArrival(detail.ETAMinutes),
	}
	if req.CurrentRouteID != nil {
		current := *req.CurrentRouteID
		result.CurrentRouteID = &current
	}
	return result, detail, nil
}

func (e *Engine) sameRoute(req Request) (models.ETADetail, error) {
	if len(req.Stops) == 0 {
		return models.ETADetail{}, ErrNoStopsOnRoute
	}

	speed, ok := EstimateAverageSpeedKmh(req.Samples, e.opts.SpeedWindow)
	if !ok {
		e.logger.Warn("insufficient location data, using default speed",
			"bus_number", req.BusNumber,
			"samples", len(req.Samples),
			"default_speed_kmh", e.opts.DefaultSpeedKmh)
		speed = e.opts.DefaultSpeedKmh
	}
	speed = e.clampSpeed(speed)

	var (
		target     models.Stop
		distanceKm float64
		err        error
	)
	if len(req.Samples) == 0 {
		// No position: aim at the requested stop, or the start of the route.
		if req.ExplicitStopOrder != nil {
			target, err = FindStopByOrder(req.Stops, *req.ExplicitStopOrder)
		} else {
			target = firstStop(req.Stops)
		}
	} else {
		current := req.Samples[0].Coordinate
		target, err = FindTargetStop(current, req.Stops, req.ExplicitStopOrder)
		distanceKm = geo.HaversineDistanceKm(current, target.Coordinate)
	}
	if err != nil {
		return models.ETADetail{}, err
	}

	minutes := int(math.Ceil(math.Max(1, distanceKm/speed*60)))

	return models.ETADetail{
		DistanceKm:    distanceKm,
		AvgSpeedKmh:   speed,
		TargetStop:    &target,
		Mode:          models.ModeSameRoute,
		ETAMinutes:    minutes,
		SpeedDegraded: !ok,
	}, nil
}

func (e *Engine) crossRoute(requested, current int64) models.ETADetail {
	diff := requested - current
	if diff < 0 {
		diff = -diff
	}
	p := e.opts.CrossRoute
	extra := min(int(diff)*p.ExtraMinutesPerRoute, p.MaxExtraMinutes)

	return models.ETADetail{
		DistanceKm:  models.NotApplicable,
		AvgSpeedKmh: models.NotApplicable,
		Mode:        models.ModeCrossRoute,
		ETAMinutes:  int(diff)*p.BaseMinutesPerRoute + extra,
	}
}

func (e *Engine) clampSpeed(kmh float64) float64 {
	return math.Min(math.Max(kmh, e.opts.MinSpeedKmh), e.opts.MaxSpeedKmh)
}
