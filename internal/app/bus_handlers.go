package app

import (
	"errors"
	"net/http"
	"time"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
	"bustracker.transport.org/internal/store"
)

// BusLocationResponse is the body of /bus/:bus/live.
type BusLocationResponse struct {
	BusID           int64      `json:"bus_id"`
	BusNumber       string     `json:"bus_number"`
	IsActive        bool       `json:"is_active"`
	LatestLatitude  *float64   `json:"latest_latitude"`
	LatestLongitude *float64   `json:"latest_longitude"`
	RecordedAt      *time.Time `json:"recorded_at"`
	RouteName       *string    `json:"route_name"`
}

func (app *Application) liveLocationHandler(w http.ResponseWriter, r *http.Request) {
	busID, err := readBusID(r)
	if err != nil {
		app.badRequest(w, err.Error())
		return
	}
	ctx := r.Context()

	bus, err := app.Store.GetBusByID(ctx, busID)
	if err != nil {
		app.lookupError(w, r, err)
		return
	}

	resp := BusLocationResponse{BusID: bus.ID, BusNumber: bus.Number, IsActive: bus.IsActive}

	loc, err := app.Store.GetLatestLocation(ctx, bus.ID)
	switch {
	case err == nil:
		resp.LatestLatitude, resp.LatestLongitude = &loc.Latitude, &loc.Longitude
		resp.RecordedAt = &loc.RecordedAt
	case !errors.Is(err, store.ErrNotFound):
		app.serverError(w, r, err)
		return
	}

	routeID, ok, err := app.Store.GetCurrentRoute(ctx, bus.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if ok {
		if route, err := app.Store.GetRoute(ctx, routeID); err == nil {
			resp.RouteName = &route.Name
		}
	}

	app.writeJSON(w, http.StatusOK, resp)
}

func (app *Application) locationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	busID, err := readBusID(r)
	if err != nil {
		app.badRequest(w, err.Error())
		return
	}
	params, err := readHistoryParams(r)
	if err != nil {
		app.badRequest(w, err.Error())
		return
	}
	ctx := r.Context()

	bus, err := app.Store.GetBusByID(ctx, busID)
	if err != nil {
		app.lookupError(w, r, err)
		return
	}
	samples, err := app.Store.GetRecentLocations(ctx, bus.ID, params.Limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if samples == nil {
		samples = []models.LocationSample{}
	}

	app.writeJSON(w, http.StatusOK, envelope{
		"bus_id":        bus.ID,
		"bus_number":    bus.Number,
		"total_records": len(samples),
		"locations":     samples,
	})
}

// BusRouteInfoResponse is the body of /bus/:bus/routes.
type BusRouteInfoResponse struct {
	BusNumber       string `json:"bus_number"`
	CurrentRouteID  *int64 `json:"current_route_id"`
	PreviousRouteID *int64 `json:"previous_route_id"`
}

func (app *Application) busRoutesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bus, err := app.Store.GetBusByNumber(ctx, readBusNumber(r))
	if err != nil {
		app.lookupError(w, r, err)
		return
	}

	resp := BusRouteInfoResponse{BusNumber: bus.Number}

	current, ok, err := app.Store.GetCurrentRoute(ctx, bus.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if ok {
		resp.CurrentRouteID = &current
	}

	previous, ok, err := app.Store.GetPreviousRoute(ctx, bus.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if ok {
		resp.PreviousRouteID = &previous
	}

	app.writeJSON(w, http.StatusOK, resp)
}

// ActiveBusResponse is one entry of /buses/active. ClusterID groups nearby
// buses by S2 cell.
type ActiveBusResponse struct {
	BusID      int64      `json:"bus_id"`
	BusNumber  string     `json:"bus_number"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	LastUpdate *time.Time `json:"last_update"`
	RouteID    *int64     `json:"route_id"`
	RouteName  *string    `json:"route_name"`
	ClusterID  string     `json:"cluster_id,omitempty"`
}

func (app *Application) activeBusesHandler(w http.ResponseWriter, r *http.Request) {
	buses, err := app.Store.ListActiveBuses(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	out := make([]ActiveBusResponse, 0, len(buses))
	var points []geo.Coordinate
	for _, b := range buses {
		entry := ActiveBusResponse{BusID: b.ID, BusNumber: b.Number, RouteID: b.RouteID}
		if b.RouteName != "" {
			name := b.RouteName
			entry.RouteName = &name
		}
		if loc := b.Location; loc != nil {
			lat, lon, at := loc.Latitude, loc.Longitude, loc.RecordedAt
			entry.Latitude, entry.Longitude, entry.LastUpdate = &lat, &lon, &at
			if geo.IsValidLatLon(lat, lon) {
				entry.ClusterID = geo.ClusterID(loc.Coordinate, geo.ClusterLevel)
				points = append(points, loc.Coordinate)
			}
		}
		out = append(out, entry)
	}

	body := envelope{"total_active": len(out), "buses": out}
	if bounds, err := geo.ComputeBoundingBox(points); err == nil {
		body["bounds"] = bounds
	}
	app.writeJSON(w, http.StatusOK, body)
}

// RouteResponse is one entry of /routes.
type RouteResponse struct {
	models.Route
	TotalStops int           `json:"total_stops"`
	Stops      []models.Stop `json:"stops"`
}

func (app *Application) routesHandler(w http.ResponseWriter, r *http.Request) {
	routes, err := app.Store.ListRoutes(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	out := make([]RouteResponse, 0, len(routes))
	for _, rt := range routes {
		stops := rt.Stops
		if stops == nil {
			stops = []models.Stop{}
		}
		out = append(out, RouteResponse{Route: rt.Route, TotalStops: len(stops), Stops: stops})
	}
	app.writeJSON(w, http.StatusOK, envelope{"total_routes": len(out), "routes": out})
}
