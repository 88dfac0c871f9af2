package eta

import (
	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

// DefaultSpeedWindow is the number of most recent samples the speed estimate looks at.
const DefaultSpeedWindow = 10

// EstimateAverageSpeedKmh derives an average speed from newest-first samples.
//
// Consecutive pairs within the first window samples contribute their
// distance and elapsed time. Pairs whose elapsed time is not positive are
// out of order or duplicated and are skipped. The second return value is
// false when no pair was usable, which includes empty and single-sample input.
func EstimateAverageSpeedKmh(samples []models.LocationSample, window int) (float64, bool) {
	if window <= 0 {
		window = DefaultSpeedWindow
	}
	if len(samples) > window {
		samples = samples[:window]
	}

	var totalKm, totalHours float64
	for i := 0; i+1 < len(samples); i++ {
		newer, older := samples[i], samples[i+1]
		elapsed := newer.RecordedAt.Sub(older.RecordedAt)
		if elapsed <= 0 {
			continue
		}
		totalKm += geo.HaversineDistanceKm(newer.Coordinate, older.Coordinate)
		totalHours += elapsed.Hours()
	}

	if totalHours == 0 {
		return 0, false
	}
	return totalKm / totalHours, true
}
