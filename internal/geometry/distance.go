package geometry

import (
	"drivetime-accessibility/internal/domain"

	"github.com/golang/geo/s2"
)

const EarthRadiusMeters = 6371008.8

// StraightLineMeters returns the great-circle distance between a and b.
func StraightLineMeters(a, b domain.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
