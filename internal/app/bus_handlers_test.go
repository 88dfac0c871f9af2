package app

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/geo"
)

func TestLiveLocationHandler(t *testing.T) {
	srv := newTestServer(t, newTestApplication(t, seedStore(t)))

	t.Run("with location", func(t *testing.T) {
		var body BusLocationResponse
		resp := getJSON(t, srv, "/bus/1/live", &body)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, "B-12", body.BusNumber)
		require.NotNil(t, body.LatestLatitude)
		assert.InDelta(t, 52.507, *body.LatestLatitude, 1e-9)
		require.NotNil(t, body.RecordedAt)
		assert.True(t, sampleTime.Equal(*body.RecordedAt))
		require.NotNil(t, body.RouteName)
		assert.Equal(t, "Harbour Line", *body.RouteName)
	})

	t.Run("without location or route", func(t *testing.T) {
		var body BusLocationResponse
		resp := getJSON(t, srv, "/bus/3/live", &body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Nil(t, body.LatestLatitude)
		assert.Nil(t, body.RecordedAt)
		assert.Nil(t, body.RouteName)
	})

	t.Run("unknown bus", func(t *testing.T) {
		var body ErrorResponse
		resp := getJSON(t, srv, "/bus/99/live", &body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Bus not found", body.Detail)
	})

	t.Run("non numeric id", func(t *testing.T) {
		var body ErrorResponse
		resp := getJSON(t, srv, "/bus/B-12/live", &body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLocationHistoryHandler(t *testing.T) {
	srv := newTestServer(t, newTestApplication(t, seedStore(t)))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCount  float64
	}{
		{"default limit", "/bus/1/history", http.StatusOK, 2},
		{"limited", "/bus/1/history?limit=1", http.StatusOK, 1},
		{"no samples", "/bus/2/history", http.StatusOK, 0},
		{"limit too large", "/bus/1/history?limit=501", http.StatusBadRequest, 0},
		{"limit zero", "/bus/1/history?limit=0", http.StatusBadRequest, 0},
		{"unknown bus", "/bus/42/history", http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			resp := getJSON(t, srv, tt.path, &body)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantCount, body["total_records"])
			assert.Len(t, body["locations"], int(tt.wantCount))
		})
	}
}

func TestBusRoutesHandler(t *testing.T) {
	st := seedStore(t)
	st.AssignRoute(1, 3, sampleTime)
	srv := newTestServer(t, newTestApplication(t, st))

	var body BusRouteInfoResponse
	resp := getJSON(t, srv, "/bus/B-12/routes", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.CurrentRouteID)
	require.NotNil(t, body.PreviousRouteID)
	assert.Equal(t, int64(3), *body.CurrentRouteID)
	assert.Equal(t, int64(1), *body.PreviousRouteID)

	var unassigned BusRouteInfoResponse
	getJSON(t, srv, "/bus/B-77/routes", &unassigned)
	assert.Nil(t, unassigned.CurrentRouteID)
	assert.Nil(t, unassigned.PreviousRouteID)
}

func TestActiveBusesHandler(t *testing.T) {
	srv := newTestServer(t, newTestApplication(t, seedStore(t)))

	var body struct {
		TotalActive int                 `json:"total_active"`
		Buses       []ActiveBusResponse `json:"buses"`
		Bounds      *geo.BoundingBox    `json:"bounds"`
	}
	resp := getJSON(t, srv, "/buses/active", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 3, body.TotalActive)
	require.Len(t, body.Buses, 3)

	b12 := body.Buses[0]
	assert.Equal(t, "B-12", b12.BusNumber)
	assert.Equal(t, geo.ClusterID(geo.Coordinate{Latitude: 52.507, Longitude: 13.40}, geo.ClusterLevel), b12.ClusterID)
	require.NotNil(t, b12.RouteName)
	assert.Equal(t, "Harbour Line", *b12.RouteName)

	assert.Nil(t, body.Buses[2].Latitude)
	assert.Empty(t, body.Buses[2].ClusterID)
	require.NotNil(t, body.Bounds)
	assert.InDelta(t, 52.507, body.Bounds.MinLat, 1e-9)
}

func TestRoutesHandler(t *testing.T) {
	srv := newTestServer(t, newTestApplication(t, seedStore(t)))

	var body struct {
		TotalRoutes int             `json:"total_routes"`
		Routes      []RouteResponse `json:"routes"`
	}
	getJSON(t, srv, "/routes", &body)

	assert.Equal(t, 2, body.TotalRoutes)
	require.Len(t, body.Routes, 2)
	assert.Equal(t, "Harbour Line", body.Routes[0].Name)
	assert.Equal(t, 3, body.Routes[0].TotalStops)
	assert.Equal(t, "Pier", body.Routes[0].Stops[2].Name)
}

func TestCollectMetrics(t *testing.T) {
	app := newTestApplication(t, seedStore(t))
	app.CollectMetrics(context.Background())

	families, err := app.Metrics.Gatherer().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetGauge() != nil {
				values[f.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["database_up"])
	assert.Equal(t, 3.0, values["fleet_active_buses"])
	assert.Equal(t, 1.0, values["fleet_unassigned_buses"])

	down := newTestApplication(t, failingStore{Memory: seedStore(t), err: errDatabaseDown})
	down.CollectMetrics(context.Background())
	families, err = down.Metrics.Gatherer().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "database_up" {
			assert.Zero(t, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
}
