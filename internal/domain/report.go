package domain

import (
	"time"

	"github.com/twpayne/go-geom"
)

// The area unit with the overall largest minimum drive time, and the
// destination that produced it. Path is nil when no route geometry was fetched.
type LongestRoute struct {
	Area               Accessibility
	Origin             Coordinates
	Destination        Destination
	StraightLineMeters float64
	Path               geom.T
}

// Report is the immutable outcome of one pipeline run.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Destinations []Destination
	Areas        []AreaUnit
	Results      []Accessibility
	// TravelTimes holds every reachable origin/destination pair of the matrix.
	TravelTimes []TravelTimeObservation
	Buckets     []BucketSummary
	Longest     *LongestRoute
	Boundary    []*geom.Polygon
	Failed      int
	Unreachable int
}

// TotalPopulation sums population over all area units in the report.
func (r *Report) TotalPopulation() int {
	total := 0
	for _, a := range r.Areas {
		total += a.Population
	}
	return total
}
