package services

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type staticInputs struct {
	in  *domain.Inputs
	err error
}

func (s staticInputs) Load(context.Context) (*domain.Inputs, error) { return s.in, s.err }

type failingRoutes struct{}

func (failingRoutes) Route(context.Context, domain.Coordinates, domain.Coordinates) (geom.T, error) {
	return nil, errors.New("directions unavailable")
}

// blockAround returns a small square area unit centred on c.
func blockAround(id string, pop int, c domain.Coordinates) domain.AreaUnit {
	const h = 0.001
	return domain.AreaUnit{
		ID:         id,
		Population: pop,
		Geometry: geom.NewPolygonFlat(geom.XY, []float64{
			c.Lon - h, c.Lat - h,
			c.Lon + h, c.Lat - h,
			c.Lon + h, c.Lat + h,
			c.Lon - h, c.Lat + h,
			c.Lon - h, c.Lat - h,
		}, []int{10}),
	}
}

func scenarioInputs() *domain.Inputs {
	return &domain.Inputs{
		Units: []domain.AreaUnit{
			blockAround(origin1.ID, origin1.Population, origin1.Location),
			blockAround(origin2.ID, origin2.Population, origin2.Location),
			blockAround(origin3.ID, origin3.Population, origin3.Location),
			blockAround("empty", 0, domain.Coordinates{Lon: -112.02, Lat: 33.40}),
			blockAround("far", 500, domain.Coordinates{Lon: -100, Lat: 40}),
		},
		UnitsCRS: "EPSG:4326",
		Boundary: []*geom.Polygon{
			geom.NewPolygonFlat(geom.XY, []float64{
				-113, 33, -111, 33, -111, 34, -113, 34, -113, 33,
			}, []int{10}),
		},
		Destinations: []domain.Destination{dest1, dest2},
	}
}

func TestRunScenario(t *testing.T) {
	provider := scenarioProvider()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	report, err := Run(context.Background(), PipelineDeps{
		Inputs:   staticInputs{in: scenarioInputs()},
		Provider: provider,
		Routes:   provider,
		Now:      func() time.Time { return clock },
	}, PipelineRequest{SkipUnpopulated: true})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, clock, report.StartedAt)
	assert.Equal(t, 3, provider.Calls())

	require.Len(t, report.Areas, 3)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 390, report.TotalPopulation())
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Unreachable)
	// b3 has no route to d1.
	assert.Len(t, report.TravelTimes, 5)

	byLabel := bucketByLabel(report.Buckets)
	assert.Equal(t, 100, byLabel["<5min"].Population)
	assert.Equal(t, 40, byLabel["5-10min"].Population)
	assert.Equal(t, 250, byLabel["10-15min"].Population)

	require.NotNil(t, report.Longest)
	assert.Equal(t, "b2", report.Longest.Area.AreaID)
	assert.Equal(t, "d1", report.Longest.Destination.ID)
	assert.InDelta(t, origin2.Location.Lon, report.Longest.Origin.Lon, 1e-9)
	assert.Greater(t, report.Longest.StraightLineMeters, 10000.0)
	assert.NotNil(t, report.Longest.Path)
}

func TestRunRecordsFailedOrigins(t *testing.T) {
	provider := scenarioProvider()
	provider.FailOrigin(origin1.Location, errors.New("service unavailable"))

	report, err := Run(context.Background(), PipelineDeps{
		Inputs:   staticInputs{in: scenarioInputs()},
		Provider: provider,
		Routes:   failingRoutes{},
	}, PipelineRequest{SkipUnpopulated: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	byLabel := bucketByLabel(report.Buckets)
	assert.Equal(t, 100, byLabel["unknown"].Population)
	assert.Equal(t, 0, byLabel["<5min"].Population)

	require.NotNil(t, report.Longest)
	assert.Nil(t, report.Longest.Path)
}

func TestRunKeepsUnpopulatedUnitsWhenAsked(t *testing.T) {
	provider := scenarioProvider()
	report, err := Run(context.Background(), PipelineDeps{
		Inputs:   staticInputs{in: scenarioInputs()},
		Provider: provider,
	}, PipelineRequest{SkipUnpopulated: false})
	require.NoError(t, err)

	// The unpopulated unit is routed; the mock has no pairs for it, so it fails.
	require.Len(t, report.Areas, 4)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 390, report.TotalPopulation())
}

func TestRunInputErrorIsFatal(t *testing.T) {
	provider := scenarioProvider()
	_, err := Run(context.Background(), PipelineDeps{
		Inputs:   staticInputs{err: errors.New("bad shapefile")},
		Provider: provider,
	}, PipelineRequest{})
	require.Error(t, err)
	assert.Equal(t, 0, provider.Calls())
}

func TestRunWithoutReachableAreas(t *testing.T) {
	in := scenarioInputs()
	in.Units = in.Units[2:3]
	in.Destinations = []domain.Destination{dest1}

	report, err := Run(context.Background(), PipelineDeps{
		Inputs:   staticInputs{in: in},
		Provider: scenarioProvider(),
	}, PipelineRequest{})
	require.NoError(t, err)

	assert.Nil(t, report.Longest)
	assert.Equal(t, 1, report.Unreachable)
}
