package eta

import (
	"fmt"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

// FindTargetStop picks the stop an ETA is computed against.
//
// With an explicit order the matching stop is returned, or ErrStopNotFound.
// Otherwise the stop closest to current in straight-line distance wins, ties
// going to the lowest order. Direction of travel is not considered.
func FindTargetStop(current geo.Coordinate, stops []models.Stop, explicitOrder *int) (models.Stop, error) {
	if len(stops) == 0 {
		return models.Stop{}, ErrNoStopsOnRoute
	}
	if explicitOrder != nil {
		return FindStopByOrder(stops, *explicitOrder)
	}

	best := -1
	bestKm := 0.0
	for i, s := range stops {
		d := geo.HaversineDistanceKm(current, s.Coordinate)
		if best < 0 || d < bestKm || (d == bestKm && s.Order < stops[best].Order) {
			best, bestKm = i, d
		}
	}
	return stops[best], nil
}

// FindStopByOrder returns the stop with the given order.
func FindStopByOrder(stops []models.Stop, order int) (models.Stop, error) {
	for _, s := range stops {
		if s.Order == order {
			return s, nil
		}
	}
	return models.Stop{}, fmt.Errorf("stop order %d: %w", order, ErrStopNotFound)
}

// firstStop returns the stop with the lowest order.
func firstStop(stops []models.Stop) models.Stop {
	first := stops[0]
	for _, s := range stops[1:] {
		if s.Order < first.Order {
			first = s
		}
	}
	return first
}
