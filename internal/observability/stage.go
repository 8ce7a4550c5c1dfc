package observability

import (
	"context"
	"time"

	"git.home.luguber.info/inful/setsim/internal/logfields"
)

// StartStage tags ctx with a stage name and returns a function that logs the
// stage's duration and outcome at debug level (or error when err != nil).
func StartStage(ctx context.Context, name string) (context.Context, func(err error)) {
	ctx = WithStage(ctx, name)
	start := time.Now()
	DebugContext(ctx, "Stage started")
	return ctx, func(err error) {
		elapsed := logfields.DurationMS(float64(time.Since(start).Microseconds()) / 1000)
		if err != nil {
			ErrorContext(ctx, "Stage failed", elapsed, logfields.Error(err))
			return
		}
		DebugContext(ctx, "Stage completed", elapsed)
	}
}
