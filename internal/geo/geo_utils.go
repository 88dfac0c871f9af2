package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LatLng converts the coordinate into its s2 representation.
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains checks whether the given coordinate is within the bounding box
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat && c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// ComputeBoundingBox computes the bounding box of a set of coordinates,
// skipping the ones that fail IsValidLatLon.
func ComputeBoundingBox(points []Coordinate) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("no points to compute bounding box")
	}

	rect := s2.EmptyRect()
	for _, p := range points {
		if !IsValidLatLon(p.Latitude, p.Longitude) {
			continue
		}
		rect = rect.AddPoint(p.LatLng())
	}

	if rect.IsEmpty() {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in points")
	}

	return BoundingBox{
		MinLat: rect.Lo().Lat.Degrees(),
		MaxLat: rect.Hi().Lat.Degrees(),
		MinLon: rect.Lo().Lng.Degrees(),
		MaxLon: rect.Hi().Lng.Degrees(),
	}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: (0,0) is treated as invalid. GPS units that have not acquired a fix
// report it, and a bus in the Gulf of Guinea is not something we track.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusKm represents the mean radius of the Earth in kilometres.
//
// This value (6,371 km) is the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusKm = 6371.0

// HaversineDistanceKm returns the great-circle distance between a and b in kilometres.
// The result is symmetric and zero for identical points.
func HaversineDistanceKm(a, b Coordinate) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians() * earthRadiusKm
}

// InitialBearing returns the initial compass bearing from a to b in degrees, in [0, 360).
func InitialBearing(a, b Coordinate) float64 {
	lat1 := s1.Angle(a.Latitude) * s1.Degree
	lat2 := s1.Angle(b.Latitude) * s1.Degree
	dLon := s1.Angle(b.Longitude-a.Longitude) * s1.Degree

	y := math.Sin(dLon.Radians()) * math.Cos(lat2.Radians())
	x := math.Cos(lat1.Radians())*math.Sin(lat2.Radians()) -
		math.Sin(lat1.Radians())*math.Cos(lat2.Radians())*math.Cos(dLon.Radians())

	bearing := math.Mod(s1.Angle(math.Atan2(y, x)).Degrees()+360, 360)
	return bearing
}

// FormatDistance renders a distance for humans: metres below 1 km,
// one decimal below 10 km, whole kilometres above.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%d m", int(km*1000))
	case km < 10:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%d km", int(km))
	}
}
