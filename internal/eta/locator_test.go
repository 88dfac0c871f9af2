package eta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/geo"
	"bustracker.transport.org/internal/models"
)

func TestFindTargetStop(t *testing.T) {
	bus := geo.Coordinate{Latitude: 52.52, Longitude: 13.40}
	stops := stopsAlong(7, bus, 1, 2, 3)

	tests := []struct {
		name      string
		current   geo.Coordinate
		stops     []models.Stop
		explicit  *int
		wantOrder int
		wantErr   error
	}{
		{name: "nearest stop", current: bus, stops: stops, wantOrder: 1},
		{name: "explicit order overrides distance", current: bus, stops: stops, explicit: ptr(2), wantOrder: 2},
		{name: "explicit order missing", current: bus, stops: stops, explicit: ptr(9), wantErr: ErrStopNotFound},
		{name: "no stops", current: bus, wantErr: ErrNoStopsOnRoute},
		{
			name:      "closer to the last stop",
			current:   stops[2].Coordinate,
			stops:     stops,
			wantOrder: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindTargetStop(tt.current, tt.stops, tt.explicit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, got.Order)
		})
	}
}

func TestFindTargetStopTieBreak(t *testing.T) {
	here := geo.Coordinate{Latitude: 10, Longitude: 10}
	// same point, listed out of order
	stops := []models.Stop{
		{Order: 5, Coordinate: here},
		{Order: 2, Coordinate: here},
		{Order: 8, Coordinate: here},
	}

	got, err := FindTargetStop(here, stops, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Order)
}
