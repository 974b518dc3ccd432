package domain

import "github.com/twpayne/go-geom"

// Inputs is everything a run reads before routing starts.
// Units are in UnitsCRS; Boundary is already in WGS84 and may be empty.
type Inputs struct {
	Units        []AreaUnit
	UnitsCRS     string
	Boundary     []*geom.Polygon
	Destinations []Destination
}
