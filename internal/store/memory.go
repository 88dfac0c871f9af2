package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bustracker.transport.org/internal/models"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	buses       map[int64]models.Bus
	routes      map[int64]models.Route
	stops       map[int64][]models.Stop
	locations   map[int64][]models.LocationSample
	assignments map[int64][]models.RouteAssignment
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		buses:       make(map[int64]models.Bus),
		routes:      make(map[int64]models.Route),
		stops:       make(map[int64][]models.Stop),
		locations:   make(map[int64][]models.LocationSample),
		assignments: make(map[int64][]models.RouteAssignment),
	}
}

// PutBus inserts or replaces a bus.
func (m *Memory) PutBus(b models.Bus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buses[b.ID] = b
}

// PutRoute inserts or replaces a route together with its stops.
func (m *Memory) PutRoute(r models.Route, stops []models.Stop) {
	sorted := append([]models.Stop(nil), stops...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	for i := range sorted {
		sorted[i].RouteID = r.ID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.ID] = r
	m.stops[r.ID] = sorted
}

// RecordLocation appends a sample for busID, keeping samples newest-first.
func (m *Memory) RecordLocation(busID int64, s models.LocationSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := append(m.locations[busID], s)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].RecordedAt.After(samples[j].RecordedAt) })
	m.locations[busID] = samples
}

// AssignRoute makes routeID the bus's current route. Any previous current
// assignment is kept as history.
func (m *Memory) AssignRoute(busID, routeID int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.assignments[busID]
	for i := range history {
		history[i].IsCurrent = false
	}
	m.assignments[busID] = append(history, models.RouteAssignment{
		BusID:      busID,
		RouteID:    routeID,
		IsCurrent:  true,
		AssignedAt: at,
	})
}

// Unassign clears the bus's current route.
func (m *Memory) Unassign(busID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.assignments[busID] {
		m.assignments[busID][i].IsCurrent = false
	}
}

func (m *Memory) GetBusByNumber(_ context.Context, number string) (models.Bus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.buses {
		if b.Number == number {
			return b, nil
		}
	}
	return models.Bus{}, fmt.Errorf("bus %q: %w", number, ErrNotFound)
}

func (m *Memory) GetBusByID(_ context.Context, busID int64) (models.Bus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buses[busID]
	if !ok {
		return models.Bus{}, fmt.Errorf("bus %d: %w", busID, ErrNotFound)
	}
	return b, nil
}

func (m *Memory) GetRecentLocations(_ context.Context, busID int64, limit int) ([]models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	samples := m.locations[busID]
	if limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}
	return append([]models.LocationSample(nil), samples...), nil
}

func (m *Memory) GetLatestLocation(ctx context.Context, busID int64) (models.LocationSample, error) {
	samples, _ := m.GetRecentLocations(ctx, busID, 1)
	if len(samples) == 0 {
		return models.LocationSample{}, fmt.Errorf("location for bus %d: %w", busID, ErrNotFound)
	}
	return samples[0], nil
}

func (m *Memory) GetStopsForRoute(_ context.Context, routeID int64) ([]models.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Stop(nil), m.stops[routeID]...), nil
}

func (m *Memory) GetCurrentRoute(_ context.Context, busID int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.assignments[busID] {
		if a.IsCurrent {
			return a.RouteID, true, nil
		}
	}
	return 0, false, nil
}

func (m *Memory) GetPreviousRoute(_ context.Context, busID int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.assignments[busID]
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsCurrent {
			return history[i].RouteID, true, nil
		}
	}
	return 0, false, nil
}

func (m *Memory) GetRoute(_ context.Context, routeID int64) (models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes[routeID]
	if !ok {
		return models.Route{}, fmt.Errorf("route %d: %w", routeID, ErrNotFound)
	}
	return r, nil
}

func (m *Memory) ListRoutes(_ context.Context) ([]models.RouteWithStops, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	routes := make([]models.RouteWithStops, 0, len(m.routes))
	for id, r := range m.routes {
		routes = append(routes, models.RouteWithStops{
			Route: r,
			Stops: append([]models.Stop{}, m.stops[id]...),
		})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}

func (m *Memory) ListActiveBuses(ctx context.Context) ([]models.ActiveBus, error) {
	m.mu.RLock()
	var buses []models.Bus
	for _, b := range m.buses {
		if b.IsActive {
			buses = append(buses, b)
		}
	}
	m.mu.RUnlock()
	sort.Slice(buses, func(i, j int) bool { return buses[i].Number < buses[j].Number })

	active := make([]models.ActiveBus, 0, len(buses))
	for _, b := range buses {
		a := models.ActiveBus{Bus: b}
		if routeID, ok, _ := m.GetCurrentRoute(ctx, b.ID); ok {
			a.RouteID = &routeID
			if r, err := m.GetRoute(ctx, routeID); err == nil {
				a.RouteName = r.Name
			}
		}
		if loc, err := m.GetLatestLocation(ctx, b.ID); err == nil {
			a.Location = &loc
		}
		active = append(active, a)
	}
	return active, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
