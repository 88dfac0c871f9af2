package gtfs

import (
	"fmt"
	"sort"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
	"bustracker.transport.org/internal/store"
)

// SeedOptions controls how a feed is turned into store data.
type SeedOptions struct {
	// DemoBuses places one active bus per route between its first two stops,
	// with two location samples one minute apart ending at Now.
	DemoBuses bool
	Now       time.Time
}

// SeedSummary reports what was loaded.
type SeedSummary struct {
	Routes int             `json:"routes"`
	Stops  int             `json:"stops"`
	Buses  int             `json:"buses"`
	Bounds geo.BoundingBox `json:"bounds"`
}

// Seed copies routes and stops from a parsed feed into mem.
//
// Route ids are assigned 1..N in feed order, since the ETA model compares
// numeric route ids. A route's stops come from its longest trip, with the
// GTFS stop_sequence as the stop order. Stops without coordinates are skipped.
func Seed(static *remoteGtfs.Static, mem *store.Memory, opts SeedOptions) (SeedSummary, error) {
	if static == nil || len(static.Routes) == 0 {
		return SeedSummary{}, fmt.Errorf("GTFS feed has no routes")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	longest := longestTripPerRoute(static.Trips)

	var (
		summary SeedSummary
		points  []geo.Coordinate
		stopID  int64
		numbers = make(map[string]bool)
	)
	for i, r := range static.Routes {
		route := models.Route{
			ID:     int64(i + 1),
			Name:   routeName(r),
			Number: r.ShortName,
		}

		var stops []models.Stop
		if trip, ok := longest[r.Id]; ok {
			for _, st := range trip.StopTimes {
				if st.Stop == nil || st.Stop.Latitude == nil || st.Stop.Longitude == nil {
					continue
				}
				stopID++
				c := geo.Coordinate{Latitude: *st.Stop.Latitude, Longitude: *st.Stop.Longitude}
				stops = append(stops, models.Stop{
					ID:         stopID,
					RouteID:    route.ID,
					Name:       st.Stop.Name,
					Order:      st.StopSequence,
					Coordinate: c,
				})
				points = append(points, c)
			}
		}
		mem.PutRoute(route, stops)
		summary.Routes++
		summary.Stops += len(stops)

		if opts.DemoBuses && len(stops) >= 2 {
			seedDemoBus(mem, route, demoBusNumber(route, numbers), stops, opts.Now)
			summary.Buses++
		}
	}

	if len(points) > 0 {
		bounds, err := geo.ComputeBoundingBox(points)
		if err == nil {
			summary.Bounds = bounds
		}
	}
	return summary, nil
}

func longestTripPerRoute(trips []remoteGtfs.ScheduledTrip) map[string]remoteGtfs.ScheduledTrip {
	longest := make(map[string]remoteGtfs.ScheduledTrip)
	for _, t := range trips {
		if t.Route == nil {
			continue
		}
		if cur, ok := longest[t.Route.Id]; !ok || len(t.StopTimes) > len(cur.StopTimes) {
			longest[t.Route.Id] = t
		}
	}
	for id, t := range longest {
		stopTimes := append([]remoteGtfs.ScheduledStopTime(nil), t.StopTimes...)
		sort.SliceStable(stopTimes, func(i, j int) bool { return stopTimes[i].StopSequence < stopTimes[j].StopSequence })
		t.StopTimes = stopTimes
		longest[id] = t
	}
	return longest
}

func routeName(r remoteGtfs.Route) string {
	if r.LongName != "" {
		return r.LongName
	}
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.Id
}

// demoBusNumber returns "GTFS-<short name>". Routes without a short name, or
// whose short name is already taken, get the route id appended instead.
func demoBusNumber(route models.Route, used map[string]bool) string {
	number := "GTFS-" + route.Number
	switch {
	case route.Number == "":
		number = fmt.Sprintf("GTFS-%d", route.ID)
	case used[number]:
		number = fmt.Sprintf("GTFS-%s-%d", route.Number, route.ID)
	}
	base := number
	for i := 2; used[number]; i++ {
		number = fmt.Sprintf("%s.%d", base, i)
	}
	used[number] = true
	return number
}

// seedDemoBus puts a bus a third of the way from the first stop to the second.
func seedDemoBus(mem *store.Memory, route models.Route, number string, stops []models.Stop, now time.Time) {
	busID := route.ID
	mem.PutBus(models.Bus{ID: busID, Number: number, IsActive: true})
	mem.AssignRoute(busID, route.ID, now.Add(-time.Hour))

	a, b := stops[0].Coordinate, stops[1].Coordinate
	lerp := func(f float64) geo.Coordinate {
		return geo.Coordinate{
			Latitude:  a.Latitude + (b.Latitude-a.Latitude)*f,
			Longitude: a.Longitude + (b.Longitude-a.Longitude)*f,
		}
	}
	mem.RecordLocation(busID, models.LocationSample{Coordinate: lerp(0), RecordedAt: now.Add(-time.Minute)})
	mem.RecordLocation(busID, models.LocationSample{Coordinate: lerp(1.0 / 3), RecordedAt: now})
}
