package domain

import "math"

type Status int

const (
	// StatusOK means at least one destination was reachable.
	StatusOK Status = iota
	// StatusUnreachable means the routing service answered but reported no route to any destination.
	StatusUnreachable
	// StatusFailed means the routing request for this origin failed (timeout, service error, bad response).
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnreachable:
		return "unreachable"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// One (origin, destination, time) triple reported by the routing service.
type TravelTimeObservation struct {
	OriginID         string
	DestinationID    string
	DestinationIndex int
	Minutes          float64
}

// Accessibility is the per-area result of the nearest-destination reduction.
//
// When Status is not StatusOK, Minutes is NaN and DestinationIndex is -1:
// a missing value is never represented as zero.
type Accessibility struct {
	AreaID           string
	Population       int
	Minutes          float64
	DestinationIndex int
	DestinationID    string
	Status           Status
	Err              error
}

// HasTime reports whether a valid minimum travel time is available.
func (a Accessibility) HasTime() bool {
	return a.Status == StatusOK && !math.IsNaN(a.Minutes)
}

// Missing builds a result without a valid minimum time.
func Missing(areaID string, population int, status Status, err error) Accessibility {
	return Accessibility{
		AreaID:           areaID,
		Population:       population,
		Minutes:          math.NaN(),
		DestinationIndex: -1,
		Status:           status,
		Err:              err,
	}
}
