package metrics

import (
	"time"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

// DefaultStaleAfter is how old a bus's latest location may be before the bus
// counts as stale.
const DefaultStaleAfter = 5 * time.Minute

// FleetSnapshot summarises the active fleet at a point in time.
type FleetSnapshot struct {
	Active     int
	Stale      int
	Unassigned int
	// OutOfArea counts located buses outside the service area. It stays
	// zero when no service area is known.
	OutOfArea int
	// Clusters counts buses per S2 cell, keyed by geo.ClusterID. Buses
	// without a usable location are not clustered.
	Clusters map[string]int
}

// SummarizeFleet classifies active buses by freshness, assignment and
// location cluster. serviceArea may be nil.
func SummarizeFleet(buses []models.ActiveBus, serviceArea *geo.BoundingBox, now time.Time, staleAfter time.Duration) FleetSnapshot {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	snap := FleetSnapshot{Clusters: make(map[string]int)}
	for _, b := range buses {
		if !b.IsActive {
			continue
		}
		snap.Active++

		if b.RouteID == nil {
			snap.Unassigned++
		}

		if b.Location == nil || now.Sub(b.Location.RecordedAt) > staleAfter {
			snap.Stale++
		}
		if b.Location != nil && geo.IsValidLatLon(b.Location.Latitude, b.Location.Longitude) {
			snap.Clusters[geo.ClusterID(b.Location.Coordinate, geo.ClusterLevel)]++
			if serviceArea != nil && !serviceArea.Contains(b.Location.Coordinate) {
				snap.OutOfArea++
			}
		}
	}
	return snap
}

// RecordFleet publishes a snapshot. Cluster gauges from earlier snapshots
// are dropped so vanished clusters do not linger.
func (c *Collector) RecordFleet(s FleetSnapshot) {
	c.ActiveBuses.Set(float64(s.Active))
	c.StaleBuses.Set(float64(s.Stale))
	c.UnassignedBuses.Set(float64(s.Unassigned))
	c.OutOfAreaBuses.Set(float64(s.OutOfArea))

	c.BusClusterCount.Reset()
	for id, n := range s.Clusters {
		c.BusClusterCount.WithLabelValues(id).Set(float64(n))
	}
}

// ServiceArea returns the bounding box of every stop in routes, or nil when
// no stop has a usable coordinate.
func ServiceArea(routes []models.RouteWithStops) *geo.BoundingBox {
	var points []geo.Coordinate
	for _, r := range routes {
		for _, st := range r.Stops {
			points = append(points, st.Coordinate)
		}
	}
	box, err := geo.ComputeBoundingBox(points)
	if err != nil {
		return nil
	}
	return &box
}
