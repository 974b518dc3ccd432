package services

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"drivetime-accessibility/internal/ports"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoDestinations is returned when the destination list is empty.
var ErrNoDestinations = errors.New("no destinations")

const (
	DefaultWorkers        = 4
	DefaultBatchSize      = 1
	DefaultRequestTimeout = 30 * time.Second
)

type MatrixOptions struct {
	// Workers bounds the number of in-flight routing requests.
	Workers int
	// BatchSize is the number of origins per routing request. 1 sends one
	// request per origin.
	BatchSize int
	// RequestTimeout applies to each routing request individually.
	RequestTimeout time.Duration
}

func (o MatrixOptions) withDefaults() MatrixOptions {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return o
}

// One origin's travel times, aligned with Matrix.Destinations.
// Minutes is nil when the request for this origin failed; Err holds the cause.
type MatrixRow struct {
	Origin  domain.Origin
	Minutes []*float64
	Err     error
}

func (r MatrixRow) Failed() bool { return r.Err != nil }

// Matrix holds one row per origin, in origin order.
type Matrix struct {
	Destinations []domain.Destination
	Rows         []MatrixRow
	Requests     int
}

// Failed counts origins whose routing request failed.
func (m *Matrix) Failed() int {
	n := 0
	for _, r := range m.Rows {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Observations flattens every reachable (origin, destination, minutes) triple.
func (m *Matrix) Observations() []domain.TravelTimeObservation {
	var out []domain.TravelTimeObservation
	for _, r := range m.Rows {
		for j, v := range r.Minutes {
			if v == nil {
				continue
			}
			out = append(out, domain.TravelTimeObservation{
				OriginID:         r.Origin.ID,
				DestinationID:    m.Destinations[j].ID,
				DestinationIndex: j,
				Minutes:          *v,
			})
		}
	}
	return out
}

// BuildTravelTimes queries provider for the driving time from every origin to
// every destination. Origins are independent: a failed request marks the
// origins it carried as failed and the build continues. Only cancellation of
// ctx aborts the build.
func BuildTravelTimes(
	ctx context.Context,
	provider ports.TravelTimeProvider,
	origins []domain.Origin,
	destinations []domain.Destination,
	opts MatrixOptions,
) (_ *Matrix, err error) {
	defer obs.Time(ctx, "services.BuildTravelTimes")(&err)

	if len(destinations) == 0 {
		return nil, eris.Wrap(ErrNoDestinations, "build travel times")
	}
	opts = opts.withDefaults()

	m := &Matrix{
		Destinations: destinations,
		Rows:         make([]MatrixRow, len(origins)),
	}
	if len(origins) == 0 {
		return m, nil
	}

	destCoords := make([]domain.Coordinates, len(destinations))
	for i, d := range destinations {
		destCoords[i] = d.Location
	}

	log := obs.Logger(ctx)
	var requests, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < len(origins); start += opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+opts.BatchSize, len(origins))
		batch := origins[start:end]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			requests.Add(1)
			rows, err := fetchBatch(gctx, provider, batch, destCoords, opts.RequestTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(int64(len(batch)))
				log.Warn("routing request failed",
					zap.String("first_origin", batch[0].ID),
					zap.Int("origins", len(batch)),
					zap.Error(err),
				)
				for i, o := range batch {
					m.Rows[start+i] = MatrixRow{Origin: o, Err: err}
				}
				return nil
			}

			for i, o := range batch {
				m.Rows[start+i] = MatrixRow{Origin: o, Minutes: rows[i]}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "build travel times")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "build travel times")
	}

	m.Requests = int(requests.Load())
	log.Info("travel times built",
		zap.Int("origins", len(origins)),
		zap.Int("destinations", len(destinations)),
		zap.Int("requests", m.Requests),
		zap.Int64("failed_origins", failed.Load()),
	)

	return m, nil
}

// fetchBatch issues a single routing request under its own timeout and checks
// the shape and values of the answer.
func fetchBatch(
	ctx context.Context,
	provider ports.TravelTimeProvider,
	batch []domain.Origin,
	destinations []domain.Coordinates,
	timeout time.Duration,
) ([][]*float64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	coords := make([]domain.Coordinates, len(batch))
	for i, o := range batch {
		coords[i] = o.Location
	}

	rows, err := provider.TravelTimes(reqCtx, coords, destinations)
	if err != nil {
		return nil, eris.Wrapf(err, "travel times for %s", batch[0].ID)
	}

	if len(rows) != len(batch) {
		return nil, eris.Errorf("travel times for %s: got %d rows, want %d", batch[0].ID, len(rows), len(batch))
	}
	for i, row := range rows {
		if len(row) != len(destinations) {
			return nil, eris.Errorf("travel times for %s: got %d columns, want %d", batch[i].ID, len(row), len(destinations))
		}
		for j, v := range row {
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
				return nil, eris.Errorf("travel times for %s: invalid value %v for destination %d", batch[i].ID, *v, j)
			}
		}
	}

	return rows, nil
}
