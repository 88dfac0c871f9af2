package models

// Mode tells which ETA model produced a result.
type Mode string

const (
	// ModeSameRoute is computed from the bus's own motion along the requested route.
	ModeSameRoute Mode = "SAME_ROUTE"
	// ModeCrossRoute is a heuristic used when the bus is serving another route.
	ModeCrossRoute Mode = "CROSS_ROUTE"
)

// NotApplicable marks distance and speed in CROSS_ROUTE details.
const NotApplicable = -1.0

// ETAResult is the rider-facing ETA answer.
type ETAResult struct {
	BusNumber            string `json:"bus_number"`
	EstimatedArrivalText string `json:"estimated_arrival_time"`
	CurrentRouteID       *int64 `json:"current_route_id"`
}

// ETADetail is the breakdown behind an ETAResult.
type ETADetail struct {
	DistanceKm    float64 `json:"distance_km"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
	TargetStop    *Stop   `json:"target_stop"`
	Mode          Mode    `json:"mode"`
	ETAMinutes    int     `json:"eta_minutes"`
	SpeedDegraded bool    `json:"speed_degraded"`
}
