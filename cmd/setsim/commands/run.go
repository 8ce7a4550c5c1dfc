package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/setsim/internal/config"
	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/game"
	"git.home.luguber.info/inful/setsim/internal/logfields"
	"git.home.luguber.info/inful/setsim/internal/metrics"
	"git.home.luguber.info/inful/setsim/internal/publish"
	"git.home.luguber.info/inful/setsim/internal/report"
	"git.home.luguber.info/inful/setsim/internal/rng"
	"git.home.luguber.info/inful/setsim/internal/simulation"
	"git.home.luguber.info/inful/setsim/internal/stats"
	"git.home.luguber.info/inful/setsim/internal/store"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Games       uint64        `short:"n" help:"Number of games to play (overrides simulation.games)"`
	Duration    time.Duration `short:"d" help:"Play until this much time has passed (overrides simulation.duration)"`
	Workers     int           `short:"w" help:"Worker goroutines"`
	BatchSize   int           `name:"batch-size" help:"Games per queued batch"`
	Policy      string        `help:"Set removal policy (random, first)"`
	RNG         string        `name:"rng" help:"Random source (pcg, crypto)"`
	Seed        uint64        `help:"PCG seed; 0 picks one"`
	Resume      string        `help:"Statistics file to load and add this run into"`
	Output      string        `short:"o" help:"Output file (default: the --resume file, else a new run file in output.data_dir)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.listen)"`
	SQLite      string        `name:"sqlite" help:"Also merge the run into this SQLite database (overrides storage.sqlite_path)"`
	NoProgress  bool          `name:"no-progress" help:"Disable the progress display"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := r.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var progress io.Writer = os.Stderr
	if r.NoProgress {
		progress = nil
	}
	return RunSimulation(ctx, g, cfg, r.Resume, r.Output, progress)
}

// apply overlays the flags onto cfg and revalidates it.
func (r *RunCmd) apply(cfg *config.Config) error {
	s := &cfg.Simulation
	switch {
	case r.Games > 0 && r.Duration > 0:
		return errors.ValidationError("--games and --duration are mutually exclusive").Build()
	case r.Games > 0:
		s.Games, s.Duration = r.Games, 0
	case r.Duration > 0:
		s.Games, s.Duration = 0, r.Duration
	}
	if r.Workers != 0 {
		s.Workers = r.Workers
	}
	if r.BatchSize != 0 {
		s.BatchSize = r.BatchSize
	}
	if r.Seed != 0 {
		s.Seed = r.Seed
	}
	if r.MetricsAddr != "" {
		cfg.Metrics.Listen = r.MetricsAddr
	}
	if r.SQLite != "" {
		cfg.Storage.SQLitePath = r.SQLite
	}
	if r.Policy != "" || r.RNG != "" {
		if r.Policy != "" {
			s.Policy = game.Policy(r.Policy)
		}
		if r.RNG != "" {
			s.RNG = rng.Kind(r.RNG)
		}
		if err := (config.SimulationDefaultApplier{}).ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

// RunSimulation wires the optional metrics endpoint, SQLite store and NATS
// publisher around one simulation run and prints its summary.
func RunSimulation(ctx context.Context, g *Global, cfg *config.Config, resume, output string, progress io.Writer) error {
	runID := uuid.NewString()
	switch {
	case output == "" && resume != "":
		output = resume
	case output == "":
		output = filepath.Join(cfg.Output.DataDir, stats.RunFileName(cfg.Output.FilePrefix, time.Now(), runID))
	}
	if resume != "" && !samePath(resume, output) && inDir(cfg.Output.DataDir, resume) && inDir(cfg.Output.DataDir, output) {
		slog.Warn("Resumed data will be counted twice by consolidate",
			logfields.Path(resume), slog.String("output", output))
	}

	opts := simulation.Options{
		RunID:              runID,
		Games:              cfg.Simulation.Games,
		Duration:           cfg.Simulation.Duration,
		Workers:            cfg.Simulation.Workers,
		BatchSize:          cfg.Simulation.BatchSize,
		Policy:             cfg.Simulation.Policy,
		RNG:                cfg.Simulation.RNG,
		Seed:               cfg.Simulation.Seed,
		Resume:             resume,
		Output:             output,
		CheckpointInterval: cfg.Output.CheckpointInterval,
		Progress:           progress,
	}

	if addr := cfg.Metrics.Listen; addr != "" {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Recorder = metrics.NewPrometheusRecorder(reg)

		srv, err := metrics.Listen(addr, reg)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(); err != nil {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if path := cfg.Storage.SQLitePath; path != "" {
		s, err := store.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		opts.Sink = s
	}

	if cfg.NATS.URL != "" {
		p, err := publish.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Warn("Run announcements disabled", logfields.Error(err))
		} else {
			defer func() { _ = p.Close() }()
			opts.Publisher = p
		}
	}

	runner, err := simulation.NewRunner(opts)
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	run := res.Run
	status := "completed"
	if run.Stopped {
		status = "interrupted"
	}
	printf(g, "Run %s %s\n", run.ID, status)
	printf(g, "  games:    %s (%s abandoned)\n", report.Count(run.Games), report.Count(run.Failed))
	printf(g, "  steps:    %s\n", report.Count(run.Steps))
	printf(g, "  elapsed:  %s (%.0f games/s)\n", run.Elapsed.Round(time.Millisecond), run.GamesPerSecond())
	printf(g, "  rows:     %s\n", report.Count(uint64(run.Rows)))
	printf(g, "  saved to: %s\n", run.File)
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// inDir reports whether path names a file directly inside dir.
func inDir(dir, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return samePath(dir, filepath.Dir(abs))
}
