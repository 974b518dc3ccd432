package domain

import "github.com/twpayne/go-geom"

// Represents a census block: the smallest areal unit carrying a population count.
// Geometry is kept in the CRS it was loaded in until the normalizer reprojects it;
// Centroid is only populated after normalization and is always WGS84.
type AreaUnit struct {
	ID         string
	Population int
	Geometry   geom.T
	Centroid   Coordinates
}

// Origin is the routing start point of an area unit: its centroid.
type Origin struct {
	ID         string
	Population int
	Location   Coordinates
}

// Origin returns the unit's centroid as a routing origin.
func (a AreaUnit) Origin() Origin {
	return Origin{ID: a.ID, Population: a.Population, Location: a.Centroid}
}
