package simulation

import (
	"context"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/logfields"
	"git.home.luguber.info/inful/setsim/internal/observability"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

// checkpointer periodically saves the running table so a crashed run loses
// at most one interval of games.
type checkpointer struct {
	scheduler gocron.Scheduler
}

func (c *checkpointer) stop() {
	if c == nil || c.scheduler == nil {
		return
	}
	if err := c.scheduler.Shutdown(); err != nil {
		slog.Warn("Stopping checkpoint scheduler failed", logfields.Error(err))
	}
}

// startCheckpoints schedules a save of resumed plus fresh every
// CheckpointInterval. It returns an inert checkpointer when checkpoints are
// disabled or there is no output file.
func (r *Runner) startCheckpoints(ctx context.Context, resumed stats.Table, fresh *stats.Aggregate) (*checkpointer, error) {
	interval, path := r.opts.CheckpointInterval, r.opts.Output
	if interval <= 0 || path == "" {
		return &checkpointer{}, nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.RuntimeError("failed to create checkpoint scheduler").WithCause(err).Build()
	}
	save := func() {
		t := resumed.Clone()
		t.MergeTable(fresh.Snapshot())
		if err := r.stage(ctx, "checkpoint", func() error { return stats.SaveFile(path, t) }); err != nil {
			observability.WarnContext(ctx, "Checkpoint failed", logfields.Path(path), logfields.Error(err))
			return
		}
		observability.DebugContext(ctx, "Checkpoint written", logfields.Path(path), logfields.Rows(len(t)))
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(save),
		gocron.WithName("checkpoint"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.RuntimeError("failed to schedule checkpoints").
			WithContext("interval", interval.String()).WithCause(err).Build()
	}

	s.Start()
	observability.DebugContext(ctx, "Checkpoints scheduled", slog.Duration("interval", interval), logfields.Path(path))
	return &checkpointer{scheduler: s}, nil
}
