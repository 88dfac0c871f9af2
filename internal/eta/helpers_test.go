package eta

import (
	"time"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

var baseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// track returns newest-first samples moving east along a parallel,
// stepDeg of longitude every interval.
func track(n int, start geo.Coordinate, stepDeg float64, interval time.Duration) []models.LocationSample {
	samples := make([]models.LocationSample, n)
	for i := 0; i < n; i++ {
		// index 0 is the newest and furthest east
		k := n - 1 - i
		samples[i] = models.LocationSample{
			Coordinate: geo.Coordinate{Latitude: start.Latitude, Longitude: start.Longitude + float64(k)*stepDeg},
			RecordedAt: baseTime.Add(time.Duration(k) * interval),
		}
	}
	return samples
}

func stopsAlong(routeID int64, origin geo.Coordinate, orders ...int) []models.Stop {
	stops := make([]models.Stop, len(orders))
	for i, o := range orders {
		stops[i] = models.Stop{
			ID:         int64(100 + o),
			RouteID:    routeID,
			Name:       "Stop " + string(rune('A'+i)),
			Order:      o,
			Coordinate: geo.Coordinate{Latitude: origin.Latitude + 0.01*float64(i+1), Longitude: origin.Longitude},
		}
	}
	return stops
}

func ptr[T any](v T) *T { return &v }
