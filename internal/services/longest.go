package services

import (
	"drivetime-accessibility/internal/domain"
	"errors"

	"github.com/rotisserie/eris"
)

// ErrNoReachableArea is returned when no area unit has a valid travel time.
var ErrNoReachableArea = errors.New("no reachable area unit")

// SelectLongest picks the area unit whose minimum drive time is the largest,
// together with the destination that produced it. Ties go to the
// lexicographically smallest area id.
func SelectLongest(results []domain.Accessibility, destinations []domain.Destination) (domain.Accessibility, domain.Destination, error) {
	best := -1
	for i, r := range results {
		if !r.HasTime() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := results[best]
		if r.Minutes > cur.Minutes || (r.Minutes == cur.Minutes && r.AreaID < cur.AreaID) {
			best = i
		}
	}

	if best < 0 {
		return domain.Accessibility{}, domain.Destination{}, ErrNoReachableArea
	}

	r := results[best]
	if r.DestinationIndex < 0 || r.DestinationIndex >= len(destinations) {
		return domain.Accessibility{}, domain.Destination{}, eris.Errorf(
			"select longest: area %s references destination %d of %d", r.AreaID, r.DestinationIndex, len(destinations))
	}
	return r, destinations[r.DestinationIndex], nil
}
