package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

func seededMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	m.PutBus(models.Bus{ID: 1, Number: "B-12", IsActive: true})
	m.PutBus(models.Bus{ID: 2, Number: "A-7", IsActive: true})
	m.PutBus(models.Bus{ID: 3, Number: "Z-0", IsActive: false})

	m.PutRoute(models.Route{ID: 7, Name: "Harbour Line", Number: "7"}, []models.Stop{
		{ID: 73, Name: "Pier", Order: 3, Coordinate: geo.Coordinate{Latitude: 1, Longitude: 3}},
		{ID: 71, Name: "Depot", Order: 1, Coordinate: geo.Coordinate{Latitude: 1, Longitude: 1}},
	})
	m.PutRoute(models.Route{ID: 8, Name: "Ring", Number: "8"}, nil)

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	m.AssignRoute(1, 8, start)
	m.AssignRoute(1, 7, start.Add(time.Hour))
	for i := 0; i < 5; i++ {
		m.RecordLocation(1, models.LocationSample{
			Coordinate: geo.Coordinate{Latitude: 1, Longitude: 1 + float64(i)*0.001},
			RecordedAt: start.Add(time.Duration(i) * time.Minute),
		})
	}
	return m
}

func TestMemoryBuses(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	b, err := m.GetBusByNumber(ctx, "B-12")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.ID)

	_, err = m.GetBusByNumber(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetBusByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLocationsNewestFirst(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	samples, err := m.GetRecentLocations(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for i := 1; i < len(samples); i++ {
		assert.True(t, samples[i-1].RecordedAt.After(samples[i].RecordedAt))
	}

	latest, err := m.GetLatestLocation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, samples[0], latest)

	_, err = m.GetLatestLocation(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRoutes(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	stops, err := m.GetStopsForRoute(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, 1, stops[0].Order)
	assert.Equal(t, int64(7), stops[1].RouteID)

	current, ok, err := m.GetCurrentRoute(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), current)

	previous, ok, err := m.GetPreviousRoute(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(8), previous)

	_, ok, _ = m.GetCurrentRoute(ctx, 2)
	assert.False(t, ok)

	routes, err := m.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, int64(7), routes[0].ID)
	assert.Empty(t, routes[1].Stops)

	_, err = m.GetRoute(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryActiveBuses(t *testing.T) {
	m := seededMemory(t)

	active, err := m.ListActiveBuses(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)

	assert.Equal(t, "A-7", active[0].Number)
	assert.Nil(t, active[0].RouteID)
	assert.Nil(t, active[0].Location)

	assert.Equal(t, "B-12", active[1].Number)
	require.NotNil(t, active[1].RouteID)
	assert.Equal(t, "Harbour Line", active[1].RouteName)
	require.NotNil(t, active[1].Location)
}

func TestMemoryUnassign(t *testing.T) {
	m := seededMemory(t)
	m.Unassign(1)

	_, ok, err := m.GetCurrentRoute(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
