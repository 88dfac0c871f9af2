package app

import (
	"math"
	"net/http"

	"bustracker.transport.org/internal/eta"
	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

func (app *Application) etaHandler(w http.ResponseWriter, r *http.Request) {
	params, err := readETAParams(r, false)
	if err != nil {
		app.badRequest(w, err.Error())
		return
	}

	result, err := app.ETAService.ETA(r.Context(), eta.Query{
		BusNumber: readBusNumber(r),
		RouteID:   params.RouteID,
	})
	if err != nil {
		app.lookupError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, result)
}

// DetailedETAResponse flattens a computation for the detailed endpoint.
// Location and stop fields are only set in SAME_ROUTE mode; target_stop is
// always present and null in CROSS_ROUTE mode.
type DetailedETAResponse struct {
	BusNumber            string      `json:"bus_number"`
	BusID                int64       `json:"bus_id"`
	IsActive             bool        `json:"is_active"`
	CurrentRouteID       *int64      `json:"current_route_id"`
	RequestedRouteID     int64       `json:"requested_route_id"`
	RouteDifference      int64       `json:"route_difference"`
	Mode                 models.Mode `json:"mode"`
	ETAMinutes           int         `json:"eta_minutes"`
	EstimatedArrivalText string      `json:"estimated_arrival_time"`
	DistanceKm           float64     `json:"distance_km"`
	AvgSpeedKmh          float64     `json:"avg_speed_kmh"`
	SpeedDegraded        bool        `json:"speed_degraded"`

	RouteName         string       `json:"route_name,omitempty"`
	CurrentLatitude   *float64     `json:"current_latitude,omitempty"`
	CurrentLongitude  *float64     `json:"current_longitude,omitempty"`
	TargetStop        *models.Stop `json:"target_stop"`
	TotalStopsOnRoute int          `json:"total_stops_on_route,omitempty"`
	DistanceText      string       `json:"distance_text,omitempty"`
	BearingToStopDeg  *float64     `json:"bearing_to_stop_deg,omitempty"`
	Note              string       `json:"note,omitempty"`
}

func round(v float64, places int) float64 {
	if v == models.NotApplicable {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (app *Application) detailedETAHandler(w http.ResponseWriter, r *http.Request) {
	params, err := readETAParams(r, true)
	if err != nil {
		app.badRequest(w, err.Error())
		return
	}

	c, err := app.ETAService.DetailedETA(r.Context(), eta.Query{
		BusNumber: readBusNumber(r),
		RouteID:   params.RouteID,
		StopOrder: params.StopOrder,
	})
	if err != nil {
		app.lookupError(w, r, err)
		return
	}

	resp := DetailedETAResponse{
		BusNumber:            c.Bus.Number,
		BusID:                c.Bus.ID,
		IsActive:             c.Bus.IsActive,
		CurrentRouteID:       c.Result.CurrentRouteID,
		RequestedRouteID:     c.RequestedRouteID,
		RouteDifference:      c.RouteDifference(),
		Mode:                 c.Detail.Mode,
		ETAMinutes:           c.Detail.ETAMinutes,
		EstimatedArrivalText: c.Result.EstimatedArrivalText,
		DistanceKm:           round(c.Detail.DistanceKm, 2),
		AvgSpeedKmh:          round(c.Detail.AvgSpeedKmh, 1),
		SpeedDegraded:        c.Detail.SpeedDegraded,
	}

	if c.Detail.Mode == models.ModeCrossRoute {
		resp.Note = "Bus is on a different route"
		app.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.TargetStop = c.Detail.TargetStop
	resp.TotalStopsOnRoute = c.TotalStops
	if c.CurrentLocation != nil {
		lat, lon := c.CurrentLocation.Latitude, c.CurrentLocation.Longitude
		resp.CurrentLatitude, resp.CurrentLongitude = &lat, &lon
		if c.Detail.TargetStop != nil {
			bearing := round(geo.InitialBearing(c.CurrentLocation.Coordinate, c.Detail.TargetStop.Coordinate), 1)
			resp.BearingToStopDeg = &bearing
		}
	}
	if c.Detail.TargetStop != nil {
		resp.DistanceText = geo.FormatDistance(c.Detail.DistanceKm)
	}
	if route, err := app.Store.GetRoute(r.Context(), c.RequestedRouteID); err == nil {
		resp.RouteName = route.Name
	} else {
		app.Logger.Warn("route lookup failed", "route_id", c.RequestedRouteID, "error", err)
	}

	app.writeJSON(w, http.StatusOK, resp)
}

func (app *Application) invalidateETAHandler(w http.ResponseWriter, r *http.Request) {
	bus := readBusNumber(r)
	removed := app.ETAService.Invalidate(bus)
	app.Logger.Info("invalidated cached etas", "bus_number", bus, "removed", removed)
	app.writeJSON(w, http.StatusOK, envelope{"bus_number": bus, "removed": removed})
}

func (app *Application) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	removed := app.Cache.Clear()
	app.Logger.Info("cleared eta cache", "removed", removed)
	app.writeJSON(w, http.StatusOK, envelope{"removed": removed})
}
