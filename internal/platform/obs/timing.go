package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ctxKey string

const RunIDKey ctxKey = "run_id"

// WithRunID tags ctx so timings and logs can be correlated with one pipeline run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// RunID returns the run id stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(RunIDKey).(string)
	return id
}

// Logger returns the global logger annotated with the run id from ctx.
func Logger(ctx context.Context) *zap.Logger {
	if id := RunID(ctx); id != "" {
		return zap.L().With(zap.String("run_id", id))
	}
	return zap.L()
}

// Time logs the duration of an operation. Use as
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	log := Logger(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Warn("op failed", zap.String("op", name), zap.Int64("dur_ms", dur.Milliseconds()), zap.Error(*errp))
			return
		}
		log.Debug("op done", zap.String("op", name), zap.Int64("dur_ms", dur.Milliseconds()))
	}
}
