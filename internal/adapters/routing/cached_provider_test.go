package routing

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minutes(f float64) *float64 { return &f }

type memoryCache struct {
	mu      sync.Mutex
	m       map[string]*float64
	readErr error
	puts    int
}

func newMemoryCache() *memoryCache { return &memoryCache{m: map[string]*float64{}} }

func (c *memoryCache) GetMany(_ context.Context, profile, origin string, destinations []string) (map[string]*float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	out := map[string]*float64{}
	for _, d := range destinations {
		if v, ok := c.m[profile+"|"+origin+"|"+d]; ok {
			out[d] = v
		}
	}
	return out, nil
}

func (c *memoryCache) PutMany(_ context.Context, profile, origin string, results map[string]*float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	for d, v := range results {
		c.m[profile+"|"+origin+"|"+d] = v
	}
	return nil
}

func scenarioMock() *MockTravelTimeProvider {
	return NewMockTravelTimeProvider([]MockPair{
		{From: originA, To: destX, Minutes: minutes(4)},
		{From: originA, To: destY, Minutes: minutes(9)},
		{From: originB, To: destX, Minutes: nil},
		{From: originB, To: destY, Minutes: minutes(6)},
	})
}

func TestCachedProviderServesRepeatsFromLRU(t *testing.T) {
	ctx := context.Background()
	mock := scenarioMock()
	p := NewCachedProvider(mock, nil, "driving", 100)

	dests := []domain.Coordinates{destX, destY}
	first, err := p.TravelTimes(ctx, []domain.Coordinates{originA, originB}, dests)
	require.NoError(t, err)

	second, err := p.TravelTimes(ctx, []domain.Coordinates{originA, originB}, dests)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, first, second)
	assert.Nil(t, second[1][0], "unreachable pairs are cached too")
}

func TestCachedProviderForwardsOnlyMisses(t *testing.T) {
	ctx := context.Background()
	mock := scenarioMock()
	store := newMemoryCache()
	p := NewCachedProvider(mock, store, "driving", 100)

	dests := []domain.Coordinates{destX, destY}
	_, err := p.TravelTimes(ctx, []domain.Coordinates{originA}, dests)
	require.NoError(t, err)
	assert.Equal(t, 1, store.puts)

	// A fresh decorator shares only the persistent store.
	p2 := NewCachedProvider(mock, store, "driving", 100)
	rows, err := p2.TravelTimes(ctx, []domain.Coordinates{originA, originB}, dests)
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []domain.Coordinates{originB}, reqs[1])
	assert.InDelta(t, 4.0, *rows[0][0], 1e-9)
	assert.InDelta(t, 6.0, *rows[1][1], 1e-9)
}

func TestCachedProviderDegradesOnStoreReadError(t *testing.T) {
	ctx := context.Background()
	mock := scenarioMock()
	store := newMemoryCache()
	store.readErr = errors.New("disk gone")
	p := NewCachedProvider(mock, store, "driving", 100)

	rows, err := p.TravelTimes(ctx, []domain.Coordinates{originA}, []domain.Coordinates{destX, destY})
	require.NoError(t, err)
	assert.InDelta(t, 9.0, *rows[0][1], 1e-9)
	assert.Equal(t, 1, mock.Calls())
}

func TestCachedProviderPropagatesUpstreamError(t *testing.T) {
	mock := scenarioMock()
	mock.FailOrigin(originB, errors.New("503"))
	p := NewCachedProvider(mock, nil, "driving", 100)

	_, err := p.TravelTimes(context.Background(), []domain.Coordinates{originB}, []domain.Coordinates{destX, destY})
	assert.Error(t, err)
}
