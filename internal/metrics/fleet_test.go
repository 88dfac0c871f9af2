package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

func TestSummarizeFleet(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	route := int64(3)
	berlin := geo.Coordinate{Latitude: 52.52, Longitude: 13.40}
	nearby := geo.Coordinate{Latitude: 52.5201, Longitude: 13.4001}

	buses := []models.ActiveBus{
		{
			Bus:      models.Bus{ID: 1, Number: "A", IsActive: true},
			RouteID:  &route,
			Location: &models.LocationSample{Coordinate: berlin, RecordedAt: now.Add(-time.Minute)},
		},
		{
			Bus:      models.Bus{ID: 2, Number: "B", IsActive: true},
			Location: &models.LocationSample{Coordinate: nearby, RecordedAt: now.Add(-10 * time.Minute)},
		},
		{
			Bus:     models.Bus{ID: 3, Number: "C", IsActive: true},
			RouteID: &route,
		},
		{
			Bus: models.Bus{ID: 4, Number: "D", IsActive: false},
		},
	}

	snap := SummarizeFleet(buses, nil, now, 0)
	assert.Equal(t, 3, snap.Active)
	assert.Equal(t, 2, snap.Stale, "old and missing locations are stale")
	assert.Equal(t, 1, snap.Unassigned)
	assert.Zero(t, snap.OutOfArea)
	require.Len(t, snap.Clusters, 1)
	assert.Equal(t, 2, snap.Clusters[geo.ClusterID(berlin, geo.ClusterLevel)])

	c := NewCollector()
	c.RecordFleet(snap)

	active, err := getMetricValue(c.ActiveBuses)
	require.NoError(t, err)
	assert.Equal(t, 3.0, active)

	id := geo.ClusterID(berlin, geo.ClusterLevel)
	n, err := getVecValue(c.BusClusterCount, prometheus.Labels{"cluster_id": id})
	require.NoError(t, err)
	assert.Equal(t, 2.0, n)

	c.RecordFleet(FleetSnapshot{})
	_, err = getVecValue(c.BusClusterCount, prometheus.Labels{"cluster_id": id})
	assert.Error(t, err, "clusters from earlier snapshots are dropped")
}

func TestSummarizeFleetServiceArea(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	routes := []models.RouteWithStops{{
		Route: models.Route{ID: 1},
		Stops: []models.Stop{
			{Order: 1, Coordinate: geo.Coordinate{Latitude: 52.40, Longitude: 13.30}},
			{Order: 2, Coordinate: geo.Coordinate{Latitude: 52.60, Longitude: 13.50}},
		},
	}}
	area := ServiceArea(routes)
	require.NotNil(t, area)

	located := func(id int64, lat, lon float64) models.ActiveBus {
		return models.ActiveBus{
			Bus:      models.Bus{ID: id, IsActive: true},
			Location: &models.LocationSample{Coordinate: geo.Coordinate{Latitude: lat, Longitude: lon}, RecordedAt: now},
		}
	}
	snap := SummarizeFleet([]models.ActiveBus{
		located(1, 52.52, 13.40),
		located(2, 48.14, 11.58),
	}, area, now, time.Minute)
	assert.Equal(t, 1, snap.OutOfArea)

	c := NewCollector()
	c.RecordFleet(snap)
	v, err := getMetricValue(c.OutOfAreaBuses)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	assert.Nil(t, ServiceArea(nil))
}
