package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/config"
	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/metrics"
	"bustracker.transport.org/internal/models"
	"bustracker.transport.org/internal/store"
)

var sampleTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// seedStore builds a small network:
//
//	route 1 "Harbour Line": stops at 52.50, 52.51, 52.52 (orders 1..3)
//	route 3 "Ring": one stop
//	B-12 on route 1 heading north at ~26.7 km/h, last seen at 52.507
//	B-40 on route 3, no samples
//	B-77 unassigned, no samples
func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()

	at := func(lat float64) geo.Coordinate { return geo.Coordinate{Latitude: lat, Longitude: 13.40} }

	m.PutRoute(models.Route{ID: 1, Name: "Harbour Line", Number: "1"}, []models.Stop{
		{ID: 11, Name: "Depot", Order: 1, Coordinate: at(52.50)},
		{ID: 12, Name: "Market", Order: 2, Coordinate: at(52.51)},
		{ID: 13, Name: "Pier", Order: 3, Coordinate: at(52.52)},
	})
	m.PutRoute(models.Route{ID: 3, Name: "Ring", Number: "3"}, []models.Stop{
		{ID: 31, Name: "Ring North", Order: 1, Coordinate: at(52.60)},
	})

	m.PutBus(models.Bus{ID: 1, Number: "B-12", IsActive: true})
	m.PutBus(models.Bus{ID: 2, Number: "B-40", IsActive: true})
	m.PutBus(models.Bus{ID: 3, Number: "B-77", IsActive: true})

	m.AssignRoute(1, 1, sampleTime.Add(-time.Hour))
	m.AssignRoute(2, 3, sampleTime.Add(-time.Hour))

	m.RecordLocation(1, models.LocationSample{Coordinate: at(52.503), RecordedAt: sampleTime.Add(-time.Minute)})
	m.RecordLocation(1, models.LocationSample{Coordinate: at(52.507), RecordedAt: sampleTime})
	return m
}

func newTestApplication(t *testing.T, st store.Store) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Env = "testing"
	return New(cfg, Deps{Store: st, Metrics: metrics.NewCollector()}, "test-version")
}

func newTestServer(t *testing.T, app *Application) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(app.Routes(ctx))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func getJSON(t *testing.T, srv *httptest.Server, path string, dst any) *http.Response {
	t.Helper()
	resp, body := doRequest(t, srv, http.MethodGet, path)
	require.NoError(t, json.Unmarshal(body, dst), string(body))
	return resp
}

// failingStore answers pings and bus lookups with an error.
type failingStore struct {
	*store.Memory
	err error
}

func (f failingStore) Ping(context.Context) error { return f.err }

func (f failingStore) GetBusByNumber(context.Context, string) (models.Bus, error) {
	return models.Bus{}, f.err
}

var errDatabaseDown = errors.New("connection refused")
