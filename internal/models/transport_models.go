package models

import (
	"time"

	"bustracker.transport.org/internal/geo"
)

// Bus is a tracked vehicle. Number is the public identifier riders see,
// ID is the storage key.
type Bus struct {
	ID       int64  `json:"bus_id"`
	Number   string `json:"bus_number"`
	IsActive bool   `json:"is_active"`
}

// Route is a named line that buses are assigned to.
type Route struct {
	ID     int64  `json:"route_id"`
	Name   string `json:"route_name"`
	Number string `json:"route_number"`
}

// Stop is a stop on a route. Order defines the traversal sequence and is
// unique within a route, though not necessarily contiguous.
type Stop struct {
	ID      int64  `json:"stop_id"`
	RouteID int64  `json:"route_id"`
	Name    string `json:"stop_name"`
	Order   int    `json:"stop_order"`
	geo.Coordinate
}

// LocationSample is one recorded GPS fix. Sequences of samples are
// always newest-first.
type LocationSample struct {
	geo.Coordinate
	RecordedAt time.Time `json:"recorded_at"`
}

// RouteAssignment links a bus to a route. At most one assignment per bus is current.
type RouteAssignment struct {
	BusID      int64     `json:"bus_id"`
	RouteID    int64     `json:"route_id"`
	IsCurrent  bool      `json:"is_current"`
	AssignedAt time.Time `json:"assigned_at"`
}

// ActiveBus is a bus together with its latest known position and route.
type ActiveBus struct {
	Bus
	RouteID   *int64          `json:"route_id"`
	RouteName string          `json:"route_name,omitempty"`
	Location  *LocationSample `json:"location"`
}

// RouteWithStops is a route and its ordered stops.
type RouteWithStops struct {
	Route
	Stops []Stop `json:"stops"`
}
