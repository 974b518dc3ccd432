package domain

// A fixed point of interest used as a routing target.
// The destination list order is significant: it breaks ties between
// destinations with equal travel time.
type Destination struct {
	ID       string
	Name     string
	Location Coordinates
}
