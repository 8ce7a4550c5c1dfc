package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/setsim/internal/logfields"
	"git.home.luguber.info/inful/setsim/internal/report"
	"git.home.luguber.info/inful/setsim/internal/stats"
	"git.home.luguber.info/inful/setsim/internal/watch"
)

// ConsolidateCmd implements the 'consolidate' command.
type ConsolidateCmd struct {
	Dir      string        `short:"d" help:"Data directory to read (default: output.data_dir)"`
	Output   string        `short:"o" help:"Consolidated file to write (default: output.consolidated)"`
	Watch    bool          `help:"Keep running and re-consolidate when run files change"`
	Debounce time.Duration `help:"Quiet period before re-consolidating in watch mode" default:"2s"`
}

func (c *ConsolidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	dir, output := c.Dir, c.Output
	if dir == "" {
		dir = cfg.Output.DataDir
	}
	if output == "" {
		output = cfg.Output.Consolidated
	}

	if !c.Watch {
		return Consolidate(g, dir, output)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return WatchConsolidate(ctx, g, dir, output, c.Debounce)
}

// Consolidate merges every statistics file in dir, except output itself,
// into output. A malformed file aborts without touching output.
func Consolidate(g *Global, dir, output string) error {
	files, err := stats.DataFiles(dir, output)
	if err != nil {
		return err
	}
	table, err := stats.Consolidate(files)
	if err != nil {
		return err
	}
	if err := stats.SaveFile(output, table); err != nil {
		return err
	}

	slog.Info("Consolidated statistics",
		logfields.Path(dir), slog.Int("files", len(files)), logfields.Rows(len(table)))
	printf(g, "Consolidated %d files (%s rows, %s snapshots) into %s\n",
		len(files), report.Count(uint64(len(table))), report.Count(table.Total()), output)
	return nil
}

// WatchConsolidate consolidates once, then again after every settled change
// in dir until ctx ends.
func WatchConsolidate(ctx context.Context, g *Global, dir, output string, debounce time.Duration) error {
	w, err := watch.NewDirWatcher(dir, debounce, output)
	if err != nil {
		return err
	}
	if err := Consolidate(g, dir, output); err != nil {
		slog.Error("Initial consolidation failed", logfields.Error(err))
	}
	return w.Run(ctx, func(context.Context) error {
		return Consolidate(g, dir, output)
	})
}
