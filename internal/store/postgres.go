package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

// PoolOptions bounds the database/sql connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Postgres reads the transport schema through the pgx database/sql driver.
type Postgres struct {
	db *sql.DB
}

// Open opens a pool against dsn. It does not contact the server; use Ping.
func Open(dsn string, pool PoolOptions) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// Stats exposes pool statistics for the info endpoint.
func (p *Postgres) Stats() sql.DBStats {
	return p.db.Stats()
}

func (p *Postgres) GetBusByNumber(ctx context.Context, number string) (models.Bus, error) {
	const q = `SELECT bus_id, bus_number, is_active FROM transport.buses WHERE bus_number = $1`
	var b models.Bus
	err := p.db.QueryRowContext(ctx, q, number).Scan(&b.ID, &b.Number, &b.IsActive)
	if err != nil {
		return models.Bus{}, notFound(err, "query bus %q", number)
	}
	return b, nil
}

func (p *Postgres) GetBusByID(ctx context.Context, busID int64) (models.Bus, error) {
	const q = `SELECT bus_id, bus_number, is_active FROM transport.buses WHERE bus_id = $1`
	var b models.Bus
	err := p.db.QueryRowContext(ctx, q, busID).Scan(&b.ID, &b.Number, &b.IsActive)
	if err != nil {
		return models.Bus{}, notFound(err, "query bus %d", busID)
	}
	return b, nil
}

func (p *Postgres) GetRecentLocations(ctx context.Context, busID int64, limit int) ([]models.LocationSample, error) {
	const q = `
SELECT latitude, longitude, recorded_at
FROM transport.bus_locations
WHERE bus_id = $1
ORDER BY recorded_at DESC
LIMIT $2`
	rows, err := p.db.QueryContext(ctx, q, busID, limit)
	if err != nil {
		return nil, fmt.Errorf("query bus_locations: %w", err)
	}
	defer rows.Close()

	var samples []models.LocationSample
	for rows.Next() {
		var s models.LocationSample
		if err := rows.Scan(&s.Latitude, &s.Longitude, &s.RecordedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (p *Postgres) GetLatestLocation(ctx context.Context, busID int64) (models.LocationSample, error) {
	samples, err := p.GetRecentLocations(ctx, busID, 1)
	if err != nil {
		return models.LocationSample{}, err
	}
	if len(samples) == 0 {
		return models.LocationSample{}, fmt.Errorf("location for bus %d: %w", busID, ErrNotFound)
	}
	return samples[0], nil
}

func (p *Postgres) GetStopsForRoute(ctx context.Context, routeID int64) ([]models.Stop, error) {
	const q = `
SELECT stop_id, route_id, stop_name, latitude, longitude, stop_order
FROM transport.stops
WHERE route_id = $1
ORDER BY stop_order`
	rows, err := p.db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()
	return scanStops(rows)
}

func (p *Postgres) GetCurrentRoute(ctx context.Context, busID int64) (int64, bool, error) {
	return p.assignedRoute(ctx, busID, true)
}

func (p *Postgres) GetPreviousRoute(ctx context.Context, busID int64) (int64, bool, error) {
	return p.assignedRoute(ctx, busID, false)
}

func (p *Postgres) assignedRoute(ctx context.Context, busID int64, current bool) (int64, bool, error) {
	const q = `
SELECT route_id
FROM transport.bus_routes
WHERE bus_id = $1 AND is_current = $2
ORDER BY assigned_at DESC
LIMIT 1`
	var routeID int64
	err := p.db.QueryRowContext(ctx, q, busID, current).Scan(&routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query bus_routes: %w", err)
	}
	return routeID, true, nil
}

func (p *Postgres) GetRoute(ctx context.Context, routeID int64) (models.Route, error) {
	const q = `SELECT route_id, route_name, COALESCE(route_number, '') FROM transport.routes WHERE route_id = $1`
	var r models.Route
	err := p.db.QueryRowContext(ctx, q, routeID).Scan(&r.ID, &r.Name, &r.Number)
	if err != nil {
		return models.Route{}, notFound(err, "query route %d", routeID)
	}
	return r, nil
}

func (p *Postgres) ListRoutes(ctx context.Context) ([]models.RouteWithStops, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT route_id, route_name, COALESCE(route_number, '') FROM transport.routes ORDER BY route_id`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []models.RouteWithStops
	index := make(map[int64]int)
	for rows.Next() {
		var r models.RouteWithStops
		if err := rows.Scan(&r.ID, &r.Name, &r.Number); err != nil {
			return nil, err
		}
		r.Stops = []models.Stop{}
		index[r.ID] = len(routes)
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stopRows, err := p.db.QueryContext(ctx, `
SELECT stop_id, route_id, stop_name, latitude, longitude, stop_order
FROM transport.stops
ORDER BY route_id, stop_order`)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer stopRows.Close()

	stops, err := scanStops(stopRows)
	if err != nil {
		return nil, err
	}
	for _, s := range stops {
		if i, ok := index[s.RouteID]; ok {
			routes[i].Stops = append(routes[i].Stops, s)
		}
	}
	return routes, nil
}

func (p *Postgres) ListActiveBuses(ctx context.Context) ([]models.ActiveBus, error) {
	const q = `
SELECT b.bus_id, b.bus_number, b.is_active,
       br.route_id, r.route_name,
       l.latitude, l.longitude, l.recorded_at
FROM transport.buses b
LEFT JOIN transport.bus_routes br ON br.bus_id = b.bus_id AND br.is_current
LEFT JOIN transport.routes r ON r.route_id = br.route_id
LEFT JOIN LATERAL (
    SELECT latitude, longitude, recorded_at
    FROM transport.bus_locations
    WHERE bus_id = b.bus_id
    ORDER BY recorded_at DESC
    LIMIT 1
) l ON true
WHERE b.is_active
ORDER BY b.bus_number`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query active buses: %w", err)
	}
	defer rows.Close()

	var buses []models.ActiveBus
	for rows.Next() {
		var (
			a         models.ActiveBus
			routeID   sql.NullInt64
			routeName sql.NullString
			lat, lon  sql.NullFloat64
			at        sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Number, &a.IsActive, &routeID, &routeName, &lat, &lon, &at); err != nil {
			return nil, err
		}
		if routeID.Valid {
			id := routeID.Int64
			a.RouteID = &id
			a.RouteName = routeName.String
		}
		if lat.Valid && lon.Valid && at.Valid {
			a.Location = &models.LocationSample{
				Coordinate: geo.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64},
				RecordedAt: at.Time,
			}
		}
		buses = append(buses, a)
	}
	return buses, rows.Err()
}

func scanStops(rows *sql.Rows) ([]models.Stop, error) {
	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.RouteID, &s.Name, &s.Latitude, &s.Longitude, &s.Order); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
