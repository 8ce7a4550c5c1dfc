package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/setsim/internal/config"
	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/game"
	"git.home.luguber.info/inful/setsim/internal/rng"
	"git.home.luguber.info/inful/setsim/internal/stats"
	"git.home.luguber.info/inful/setsim/internal/store"
)

func TestRunFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	cmd := &RunCmd{Duration: time.Minute, Workers: 2, Policy: "FIRST", RNG: "crypto", Seed: 5, SQLite: "x.db"}
	require.NoError(t, cmd.apply(cfg))

	assert.Zero(t, cfg.Simulation.Games)
	assert.Equal(t, time.Minute, cfg.Simulation.Duration)
	assert.Equal(t, 2, cfg.Simulation.Workers)
	assert.Equal(t, game.PolicyFirst, cfg.Simulation.Policy)
	assert.Equal(t, rng.KindCrypto, cfg.Simulation.RNG)
	assert.Equal(t, uint64(5), cfg.Simulation.Seed)
	assert.Equal(t, "x.db", cfg.Storage.SQLitePath)
}

func TestRunFlagsRejected(t *testing.T) {
	tests := map[string]*RunCmd{
		"both bounds": {Games: 1, Duration: time.Second},
		"bad policy":  {Policy: "greedy"},
		"bad workers": {Workers: -1},
	}
	for name, cmd := range tests {
		t.Run(name, func(t *testing.T) {
			err := cmd.apply(config.Default())
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestRunSimulation(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.DataDir = filepath.Join(dir, "data")
	cfg.Simulation.Games = 6
	cfg.Simulation.Workers = 2
	cfg.Simulation.BatchSize = 2
	cfg.Storage.SQLitePath = filepath.Join(dir, "setsim.db")

	var out bytes.Buffer
	g := &Global{Stdout: &out}
	require.NoError(t, RunSimulation(t.Context(), g, cfg, "", "", nil))

	files, err := stats.DataFiles(cfg.Output.DataDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Regexp(t, `run-\d{8}T\d{6}Z-[0-9a-f-]{36}\.csv$`, files[0])

	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, out.String(), "games:    6 (0 abandoned)")

	s, err := store.Open(cfg.Storage.SQLitePath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(6), runs[0].Games)
	assert.Equal(t, files[0], runs[0].File)
}

func TestRunSimulationResumeWritesBackInPlace(t *testing.T) {
	cfg := config.Default()
	cfg.Output.DataDir = t.TempDir()
	cfg.Simulation.Games = 4
	cfg.Simulation.Workers = 1

	prior := stats.Table{{Sets: 1, Faces: 1, HandSize: 12, Deals: 3, HandType: stats.Ascending}: 2}
	resume := filepath.Join(cfg.Output.DataDir, "run-a.csv")
	require.NoError(t, stats.SaveFile(resume, prior))

	g := &Global{Stdout: &bytes.Buffer{}}
	require.NoError(t, RunSimulation(t.Context(), g, cfg, resume, "", nil))

	files, err := stats.DataFiles(cfg.Output.DataDir)
	require.NoError(t, err)
	assert.Equal(t, []string{resume}, files)

	saved := make(stats.Table)
	_, err = stats.LoadFile(resume, saved)
	require.NoError(t, err)
	consolidated, err := stats.Consolidate(files)
	require.NoError(t, err)
	assert.Equal(t, saved, consolidated)
	assert.Greater(t, saved.Total(), prior.Total())
	assert.GreaterOrEqual(t, saved[stats.Info{Sets: 1, Faces: 1, HandSize: 12, Deals: 3, HandType: stats.Ascending}], uint64(2))
}

func TestInDir(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, inDir(dir, filepath.Join(dir, "run-a.csv")))
	assert.False(t, inDir(dir, filepath.Join(dir, "sub", "run-a.csv")))
	assert.False(t, inDir(dir, filepath.Join(t.TempDir(), "run-a.csv")))
	assert.True(t, samePath(filepath.Join(dir, "x", "..", "a.csv"), filepath.Join(dir, "a.csv")))
}

func TestConsolidate(t *testing.T) {
	dir := t.TempDir()
	a := stats.Table{{Sets: 1, Faces: 1, HandSize: 12, Deals: 3, HandType: stats.Ascending}: 2}
	b := stats.Table{
		{Sets: 1, Faces: 1, HandSize: 12, Deals: 3, HandType: stats.Ascending}: 5,
		{Sets: 0, HandSize: 15, Deals: 4, HandType: stats.Ascending}:           1,
	}
	require.NoError(t, stats.SaveFile(filepath.Join(dir, "run-a.csv"), a))
	require.NoError(t, stats.SaveFile(filepath.Join(dir, "run-b.csv"), b))
	output := filepath.Join(dir, "data.csv")

	var out bytes.Buffer
	g := &Global{Stdout: &out}
	require.NoError(t, Consolidate(g, dir, output))
	// A second pass must not count the consolidated file itself.
	require.NoError(t, Consolidate(g, dir, output))

	got := make(stats.Table)
	_, err := stats.LoadFile(output, got)
	require.NoError(t, err)
	want := a.Clone()
	want.MergeTable(b)
	assert.Equal(t, want, got)
	assert.Contains(t, out.String(), "Consolidated 2 files")
}

func TestConsolidateMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("sets,hand_size,deals,count\n1,2\n"), 0o600))
	output := filepath.Join(t.TempDir(), "data.csv")

	err := Consolidate(&Global{Stdout: &bytes.Buffer{}}, dir, output)
	require.Error(t, err)
	assert.NoFileExists(t, output)
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	table := stats.Table{
		{Sets: 0, HandSize: 12, Deals: 5, HandType: stats.Ascending}:           1,
		{Sets: 2, Cubes: 2, HandSize: 12, Deals: 5, HandType: stats.Ascending}: 3,
	}
	md, html := filepath.Join(dir, "r.md"), filepath.Join(dir, "out", "r.html")

	var out bytes.Buffer
	require.NoError(t, WriteReports(&Global{Stdout: &out}, table, "Results", md, html))

	assert.Contains(t, out.String(), "ascending 12 card hands")
	mdBody, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(mdBody), "| 5 | 4 | 6 | 1 | 0.250000 | 1.5000 |")
	htmlBody, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(htmlBody), "<table>")
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setsim.yaml")
	root := &CLI{Config: path}
	g := &Global{Stdout: &bytes.Buffer{}}

	require.NoError(t, (&InitCmd{}).Run(g, root))
	require.Error(t, (&InitCmd{}).Run(g, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(g, root))

	cfg, err := root.loadConfig(g)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := (&CLI{}).loadConfig(&Global{})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevel(true, config.LogLevelError))
	assert.Equal(t, slog.LevelWarn, logLevel(false, config.LogLevelWarn))

	t.Setenv("SETSIM_LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelError, logLevel(false, config.LogLevelDebug))
}
