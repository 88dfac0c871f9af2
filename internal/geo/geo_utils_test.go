package geo

import (
	"math"
	"testing"
)

func TestHaversineDistanceKm(t *testing.T) {
	points := []Coordinate{
		{Latitude: 52.5200, Longitude: 13.4050},
		{Latitude: 48.8566, Longitude: 2.3522},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 179.9},
		{Latitude: 0, Longitude: -179.9},
		{Latitude: 89.9, Longitude: 0},
	}

	t.Run("zero for identical points", func(t *testing.T) {
		for _, p := range points {
			if d := HaversineDistanceKm(p, p); d != 0 {
				t.Errorf("HaversineDistanceKm(%v, %v) = %v, want 0", p, p, d)
			}
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		for _, a := range points {
			for _, b := range points {
				ab, ba := HaversineDistanceKm(a, b), HaversineDistanceKm(b, a)
				if math.Abs(ab-ba) > 1e-9 {
					t.Errorf("asymmetric distance between %v and %v: %v vs %v", a, b, ab, ba)
				}
			}
		}
	})

	t.Run("known distance", func(t *testing.T) {
		// Berlin to Paris is roughly 878 km
		d := HaversineDistanceKm(points[0], points[1])
		if math.Abs(d-877.5) > 2 {
			t.Errorf("expected ~877.5 km, got %v", d)
		}
	})

	t.Run("across the antimeridian", func(t *testing.T) {
		d := HaversineDistanceKm(points[3], points[4])
		if d > 25 {
			t.Errorf("expected a short hop across the antimeridian, got %v km", d)
		}
	})
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		want bool
	}{
		{"valid", 52.52, 13.40, true},
		{"null island", 0, 0, false},
		{"latitude too high", 91, 0, false},
		{"longitude too low", 10, -181, false},
		{"not a number", math.NaN(), 10, false},
		{"edge", -90, 180, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.lat, tt.lon); got != tt.want {
				t.Errorf("IsValidLatLon(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestInitialBearing(t *testing.T) {
	origin := Coordinate{Latitude: 10, Longitude: 10}
	tests := []struct {
		name string
		to   Coordinate
		want float64
	}{
		{"north", Coordinate{Latitude: 11, Longitude: 10}, 0},
		{"east", Coordinate{Latitude: 10, Longitude: 11}, 89.9},
		{"south", Coordinate{Latitude: 9, Longitude: 10}, 180},
		{"west", Coordinate{Latitude: 10, Longitude: 9}, 270.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialBearing(origin, tt.to)
			if math.Abs(got-tt.want) > 0.5 {
				t.Errorf("InitialBearing to %s = %v, want ~%v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatDistance(t *testing.T) {
	tests := map[float64]string{
		0.5:  "500 m",
		4.25: "4.2 km",
		12.9: "12 km",
		0.25: "250 m",
	}
	for km, want := range tests {
		if got := FormatDistance(km); got != want {
			t.Errorf("FormatDistance(%v) = %q, want %q", km, got, want)
		}
	}
}

func TestComputeBoundingBox(t *testing.T) {
	box, err := ComputeBoundingBox([]Coordinate{
		{Latitude: 52.50, Longitude: 13.30},
		{Latitude: 0, Longitude: 0},
		{Latitude: 52.60, Longitude: 13.50},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(box.MinLat-52.50) > 1e-9 || math.Abs(box.MaxLat-52.60) > 1e-9 {
		t.Errorf("unexpected latitude range: %+v", box)
	}
	if !box.Contains(Coordinate{Latitude: 52.55, Longitude: 13.40}) {
		t.Errorf("expected box %+v to contain centre point", box)
	}

	if _, err := ComputeBoundingBox([]Coordinate{{Latitude: 0, Longitude: 0}}); err == nil {
		t.Error("expected error when no valid points")
	}
}

func TestClusterID(t *testing.T) {
	a := Coordinate{Latitude: 52.5200, Longitude: 13.4050}
	b := Coordinate{Latitude: 52.5201, Longitude: 13.4051}
	far := Coordinate{Latitude: 48.8566, Longitude: 2.3522}

	if ClusterID(a, ClusterLevel) != ClusterID(b, ClusterLevel) {
		t.Error("expected nearby points to share a cluster")
	}
	if ClusterID(a, ClusterLevel) == ClusterID(far, ClusterLevel) {
		t.Error("expected distant points to be in different clusters")
	}
}
