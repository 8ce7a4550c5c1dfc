// Package simulation runs batches of games on a worker pool and folds their
// snapshots into one aggregate table.
package simulation

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/game"
	"git.home.luguber.info/inful/setsim/internal/logfields"
	"git.home.luguber.info/inful/setsim/internal/metrics"
	"git.home.luguber.info/inful/setsim/internal/observability"
	"git.home.luguber.info/inful/setsim/internal/publish"
	"git.home.luguber.info/inful/setsim/internal/retry"
	"git.home.luguber.info/inful/setsim/internal/rng"
	"git.home.luguber.info/inful/setsim/internal/stats"
	"git.home.luguber.info/inful/setsim/internal/worker"
)

// Sink durably records a finished run and the counts it produced.
type Sink interface {
	MergeRun(ctx context.Context, run stats.Run, t stats.Table) error
}

// Publisher announces a finished run.
type Publisher interface {
	Publish(ctx context.Context, a publish.Announcement) error
}

// Options configures one run. Exactly one of Games and Duration bounds it.
type Options struct {
	// RunID names the run; empty generates a UUID.
	RunID string

	Games     uint64
	Duration  time.Duration
	Workers   int
	BatchSize int
	Policy    game.Policy
	RNG       rng.Kind
	Seed      uint64

	// Resume is loaded into the output table before the run. A missing
	// file starts from an empty table.
	Resume string
	// Output receives the final table; empty skips saving.
	Output string
	// CheckpointInterval periodically rewrites Output while the run is in
	// progress; zero disables checkpoints.
	CheckpointInterval time.Duration

	Recorder  metrics.Recorder
	Sink      Sink
	Publisher Publisher
	// PublishRetry governs retries of failed announcements; the zero value
	// selects retry.DefaultPolicy.
	PublishRetry retry.Policy
	// Progress receives a progress bar or spinner; nil disables it.
	Progress io.Writer
}

// Result is the outcome of a run.
type Result struct {
	Run stats.Run
	// Fresh holds only the snapshots produced by this run.
	Fresh stats.Table
	// Total is Fresh plus anything resumed; it is what Output holds.
	Total stats.Table
}

// Runner executes simulation runs.
type Runner struct {
	opts     Options
	recorder metrics.Recorder
	now      func() time.Time
	newID    func() string
}

// NewRunner validates opts and returns a runner.
func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Games > 0 && opts.Duration > 0:
		return nil, errors.ValidationError("games and duration are mutually exclusive").Build()
	case opts.Games == 0 && opts.Duration <= 0:
		return nil, errors.ValidationError("a run needs a game count or a duration").Build()
	}
	policy, err := game.ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	opts.Policy = policy
	opts.Workers = max(opts.Workers, 1)
	opts.BatchSize = max(opts.BatchSize, 1)

	r := &Runner{
		opts:     opts,
		recorder: opts.Recorder,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}
	if r.opts.PublishRetry == (retry.Policy{}) {
		r.opts.PublishRetry = retry.DefaultPolicy()
	}
	return r, nil
}

// Run plays games until the bound is reached or ctx is cancelled. Games in
// flight when ctx ends run to completion; the partial table is still saved.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	o := r.opts
	if o.RunID == "" {
		o.RunID = r.newID()
	}
	run := stats.Run{
		ID:        o.RunID,
		StartedAt: r.now().UTC(),
		Policy:    string(o.Policy),
		RNG:       string(o.RNG),
		Seed:      rng.ResolveSeed(o.RNG, o.Seed),
	}
	if run.RNG == "" {
		run.RNG = string(rng.KindPCG)
	}
	ctx = observability.WithRunID(ctx, run.ID)

	resumed, err := r.resume(ctx)
	if err != nil {
		return Result{}, err
	}

	factory, err := rng.NewFactory(rng.Kind(run.RNG), run.Seed)
	if err != nil {
		return Result{}, errors.ConfigError("invalid random source").WithCause(err).Build()
	}

	observability.InfoContext(ctx, "Starting simulation",
		logfields.Games(o.Games),
		slog.Duration("duration", o.Duration),
		slog.Int("workers", o.Workers),
		logfields.Batch(o.BatchSize),
		logfields.Policy(run.Policy),
		logfields.Source(run.RNG),
		slog.Uint64("seed", run.Seed))

	fresh := stats.NewAggregate()
	var steps atomic.Uint64

	checkpoint, err := r.startCheckpoints(ctx, resumed, fresh)
	if err != nil {
		return Result{}, err
	}

	simCtx, stageDone := observability.StartStage(ctx, "simulate")
	stageStart := r.now()
	stopProgress := startProgress(o.Progress, o.Games, fresh)

	playCtx := simCtx
	if o.Duration > 0 {
		var cancel context.CancelFunc
		playCtx, cancel = context.WithTimeout(simCtx, o.Duration)
		defer cancel()
	}
	r.play(playCtx, factory, fresh, &steps)

	stopProgress()
	checkpoint.stop()
	r.recorder.ObserveStageDuration("simulate", r.now().Sub(stageStart))
	r.recorder.IncStageResult("simulate", true)
	stageDone(nil)

	run.FinishedAt = r.now().UTC()
	run.Elapsed = run.FinishedAt.Sub(run.StartedAt)
	run.Games = fresh.Games()
	run.Failed = fresh.Failed()
	run.Steps = steps.Load()
	run.Stopped = ctx.Err() != nil

	res := Result{Fresh: fresh.Snapshot()}
	res.Total = resumed.Clone()
	res.Total.MergeTable(res.Fresh)
	run.Rows = len(res.Total)

	// Persisting must finish even when the run was interrupted.
	ctx = context.WithoutCancel(ctx)
	if o.Output != "" {
		if err := r.stage(ctx, "save", func() error { return stats.SaveFile(o.Output, res.Total) }); err != nil {
			return res, err
		}
		run.File = o.Output
	}
	res.Run = run

	observability.InfoContext(ctx, "Simulation finished",
		logfields.Games(run.Games),
		slog.Uint64("failed", run.Failed),
		logfields.Rows(run.Rows),
		slog.Bool("stopped", run.Stopped),
		slog.Float64("games_per_second", run.GamesPerSecond()))

	if o.Sink != nil {
		if err := r.stage(ctx, "store", func() error { return o.Sink.MergeRun(ctx, run, res.Fresh) }); err != nil {
			return res, err
		}
	}
	if o.Publisher != nil {
		announcement := publish.NewAnnouncement(run, res.Fresh)
		err := r.stage(ctx, "publish", func() error {
			return r.opts.PublishRetry.Do(ctx, "publish", func(ctx context.Context) error {
				return o.Publisher.Publish(ctx, announcement)
			})
		})
		if err != nil {
			// Announcements are best effort; the data is already saved.
			observability.WarnContext(ctx, "Run announcement failed", logfields.Error(err))
		}
	}
	return res, nil
}

// resume loads the resume file, if any. Parsing happens into a scratch table
// so a malformed file leaves nothing half merged.
func (r *Runner) resume(ctx context.Context) (stats.Table, error) {
	t := make(stats.Table)
	if r.opts.Resume == "" {
		return t, nil
	}
	var rows int
	err := r.stage(ctx, "resume", func() error {
		var err error
		rows, err = stats.LoadFile(r.opts.Resume, t)
		return err
	})
	if stderrors.Is(err, fs.ErrNotExist) {
		observability.InfoContext(ctx, "No previous data, starting empty", logfields.Path(r.opts.Resume))
		return make(stats.Table), nil
	}
	if err != nil {
		return nil, err
	}
	observability.InfoContext(ctx, "Resumed previous data",
		logfields.Path(r.opts.Resume), logfields.Rows(rows), logfields.Games(t.Total()))
	return t, nil
}

// play feeds batches to a fresh pool until the bound is reached or ctx ends,
// then joins every worker.
func (r *Runner) play(ctx context.Context, factory rng.Factory, agg *stats.Aggregate, steps *atomic.Uint64) {
	o := r.opts
	sources := make([]rng.Source, o.Workers)
	for i := range sources {
		sources[i] = factory(i)
	}

	pool := worker.NewPool(o.Workers, o.BatchSize, worker.WithErrorHandler(func(w int, err error) {
		r.recorder.IncGameOutcome(metrics.OutcomePanicked)
		observability.ErrorContext(observability.WithWorkerID(ctx, w), "Batch aborted", logfields.Error(err))
	}))
	pool.Start(ctx)
	r.recorder.SetActiveWorkers(o.Workers)

	batch := func(n int) worker.Task {
		return func(ctx context.Context, w int) error {
			r.playBatch(ctx, w, n, sources[w], agg, steps)
			r.recorder.SetTableKeys(agg.Len())
			return nil
		}
	}

	remaining := o.Games
	for ctx.Err() == nil {
		n := o.BatchSize
		if o.Games > 0 {
			if remaining == 0 {
				break
			}
			n = int(min(uint64(n), remaining))
		}
		if err := pool.Submit(ctx, batch(n)); err != nil {
			break
		}
		if o.Games > 0 {
			remaining -= uint64(n)
		}
	}

	// The pool never blocks on its own; joining cannot time out.
	_ = pool.Wait(context.Background())
	r.recorder.SetActiveWorkers(0)
	r.recorder.SetTableKeys(agg.Len())
	slog.Debug("Worker pool drained",
		slog.Uint64("batches_completed", pool.Completed()),
		slog.Uint64("batches_failed", pool.Failed()))
}

// playBatch plays up to n games on src, checking ctx before each one.
func (r *Runner) playBatch(ctx context.Context, w, n int, src rng.Source, agg *stats.Aggregate, steps *atomic.Uint64) {
	for range n {
		if ctx.Err() != nil {
			return
		}
		res, err := game.Play(src, r.opts.Policy)
		if err != nil {
			agg.RecordFailure()
			r.recorder.IncGameOutcome(metrics.OutcomeAbandoned)
			observability.WarnContext(observability.WithWorkerID(ctx, w), "Game abandoned", logfields.Error(err))
			continue
		}
		agg.MergeGame(res.Steps)
		steps.Add(uint64(len(res.Steps)))
		r.recorder.IncGameOutcome(metrics.OutcomeCompleted)
		r.recorder.ObserveGameDuration(res.Duration)
		r.recorder.ObserveGameSteps(len(res.Steps))
	}
}

// stage runs fn as a named, timed and recorded stage.
func (r *Runner) stage(ctx context.Context, name string, fn func() error) error {
	_, done := observability.StartStage(ctx, name)
	start := r.now()
	err := fn()
	r.recorder.ObserveStageDuration(name, r.now().Sub(start))
	r.recorder.IncStageResult(name, err == nil)
	done(err)
	return err
}
