package routing

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

type MockPair struct {
	From, To domain.Coordinates
	// Minutes is nil for an unreachable pair.
	Minutes *float64
}

// MockTravelTimeProvider serves a fixed table of pairs. Pairs that are not
// configured fail the whole request, as would a routing service error.
type MockTravelTimeProvider struct {
	m       map[string]*float64
	failing map[string]error

	calls atomic.Int64
	mu    sync.Mutex
	seen  [][]domain.Coordinates
}

func NewMockTravelTimeProvider(pairs []MockPair) *MockTravelTimeProvider {
	m := make(map[string]*float64, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = p.Minutes
	}
	return &MockTravelTimeProvider{m: m, failing: map[string]error{}}
}

// FailOrigin makes every request containing origin fail with err.
func (p *MockTravelTimeProvider) FailOrigin(origin domain.Coordinates, err error) {
	p.failing[origin.Key()] = err
}

// Calls returns the number of TravelTimes invocations.
func (p *MockTravelTimeProvider) Calls() int { return int(p.calls.Load()) }

// Requests returns the origin batches received, in arrival order.
func (p *MockTravelTimeProvider) Requests() [][]domain.Coordinates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]domain.Coordinates(nil), p.seen...)
}

func (p *MockTravelTimeProvider) TravelTimes(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) ([][]*float64, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, append([]domain.Coordinates(nil), origins...))
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]*float64, len(origins))
	for i, o := range origins {
		if err, ok := p.failing[o.Key()]; ok {
			return nil, err
		}
		out[i] = make([]*float64, len(destinations))
		for j, d := range destinations {
			v, ok := p.m[o.Key()+"|"+d.Key()]
			if !ok {
				return nil, eris.Errorf("missing pair %q -> %q", o.Key(), d.Key())
			}
			out[i][j] = v
		}
	}

	return out, nil
}

// Route returns a straight two-point line.
func (p *MockTravelTimeProvider) Route(ctx context.Context, from, to domain.Coordinates) (geom.T, error) {
	return geom.NewLineStringFlat(geom.XY, []float64{from.Lon, from.Lat, to.Lon, to.Lat}), nil
}
