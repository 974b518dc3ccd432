package services

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/geometry"
	"drivetime-accessibility/internal/platform/obs"
	"drivetime-accessibility/internal/ports"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

type PipelineDeps struct {
	Inputs   ports.InputSource
	Provider ports.TravelTimeProvider
	// Routes is optional; without it the longest route has no path geometry.
	Routes ports.RouteProvider
	Now    func() time.Time
}

type PipelineRequest struct {
	SkipUnpopulated bool
	Matrix          MatrixOptions
}

// Run executes one accessibility analysis: load inputs, normalize area units
// to centroids, route every centroid to every destination, keep the nearest,
// aggregate population by drive-time bucket and select the longest trip.
func Run(ctx context.Context, deps PipelineDeps, req PipelineRequest) (_ *domain.Report, err error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	report := &domain.Report{RunID: uuid.NewString(), StartedAt: now()}
	ctx = obs.WithRunID(ctx, report.RunID)
	defer obs.Time(ctx, "services.Run")(&err)

	in, err := deps.Inputs.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load inputs")
	}
	if len(in.Destinations) == 0 {
		return nil, eris.Wrap(ErrNoDestinations, "pipeline")
	}

	var boundary *geometry.Boundary
	if len(in.Boundary) > 0 {
		geoms := make([]geom.T, len(in.Boundary))
		for i, p := range in.Boundary {
			geoms[i] = p
		}
		if boundary, err = geometry.NewBoundary(geoms); err != nil {
			return nil, eris.Wrap(err, "pipeline: boundary")
		}
	}

	units, _, err := geometry.Normalize(ctx, in.Units, geometry.NormalizeOptions{
		SourceCRS:       in.UnitsCRS,
		Boundary:        boundary,
		SkipUnpopulated: req.SkipUnpopulated,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: normalize")
	}

	origins := make([]domain.Origin, len(units))
	for i, u := range units {
		origins[i] = u.Origin()
	}

	m, err := BuildTravelTimes(ctx, deps.Provider, origins, in.Destinations, req.Matrix)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline")
	}

	results := ReduceNearest(m)
	for _, r := range results {
		switch r.Status {
		case domain.StatusFailed:
			report.Failed++
		case domain.StatusUnreachable:
			report.Unreachable++
		}
	}

	report.Destinations = in.Destinations
	report.Areas = units
	report.Results = results
	report.TravelTimes = m.Observations()
	report.Buckets = AggregateBuckets(results)
	report.Boundary = in.Boundary

	longest, err := longestRoute(ctx, deps.Routes, units, results, in.Destinations)
	switch {
	case errors.Is(err, ErrNoReachableArea):
		obs.Logger(ctx).Warn("no area unit reached any destination")
	case err != nil:
		return nil, eris.Wrap(err, "pipeline")
	default:
		report.Longest = longest
	}

	report.FinishedAt = now()
	obs.Logger(ctx).Info("pipeline finished",
		zap.Int("areas", len(units)),
		zap.Int("population", report.TotalPopulation()),
		zap.Int("failed", report.Failed),
		zap.Int("unreachable", report.Unreachable),
	)

	return report, nil
}

// longestRoute selects the longest nearest-destination trip and enriches it
// with the straight-line distance and, when routes is set, the road path.
// A path lookup failure is logged and leaves Path nil.
func longestRoute(
	ctx context.Context,
	routes ports.RouteProvider,
	units []domain.AreaUnit,
	results []domain.Accessibility,
	destinations []domain.Destination,
) (*domain.LongestRoute, error) {
	area, dest, err := SelectLongest(results, destinations)
	if err != nil {
		return nil, err
	}

	var origin domain.Coordinates
	for _, u := range units {
		if u.ID == area.AreaID {
			origin = u.Centroid
			break
		}
	}

	lr := &domain.LongestRoute{
		Area:               area,
		Origin:             origin,
		Destination:        dest,
		StraightLineMeters: geometry.StraightLineMeters(origin, dest.Location),
	}

	if routes != nil {
		path, err := routes.Route(ctx, origin, dest.Location)
		if err != nil {
			obs.Logger(ctx).Warn("longest route geometry unavailable",
				zap.String("area_id", area.AreaID),
				zap.String("destination_id", dest.ID),
				zap.Error(err),
			)
		} else {
			lr.Path = path
		}
	}

	return lr, nil
}
