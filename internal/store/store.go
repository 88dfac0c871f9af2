package store

import (
	"context"
	"errors"

	"bustracker.transport.org/internal/models"
)

// ErrNotFound is returned when a bus, route or location does not exist.
var ErrNotFound = errors.New("not found")

// Store is the read side of the transport data the service is built on.
// Postgres is the production implementation; Memory backs tests and GTFS seeding.
type Store interface {
	GetBusByNumber(ctx context.Context, number string) (models.Bus, error)
	GetBusByID(ctx context.Context, busID int64) (models.Bus, error)
	GetRecentLocations(ctx context.Context, busID int64, limit int) ([]models.LocationSample, error)
	GetLatestLocation(ctx context.Context, busID int64) (models.LocationSample, error)
	GetStopsForRoute(ctx context.Context, routeID int64) ([]models.Stop, error)
	GetCurrentRoute(ctx context.Context, busID int64) (int64, bool, error)
	GetPreviousRoute(ctx context.Context, busID int64) (int64, bool, error)
	GetRoute(ctx context.Context, routeID int64) (models.Route, error)
	ListRoutes(ctx context.Context) ([]models.RouteWithStops, error)
	ListActiveBuses(ctx context.Context) ([]models.ActiveBus, error)
	Ping(ctx context.Context) error
	Close() error
}
