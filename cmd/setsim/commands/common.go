// Package commands implements the setsim subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/setsim/internal/config"
)

// DefaultConfigFile is loaded when --config is not given and the file exists.
const DefaultConfigFile = "setsim.yaml"

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	// Stdout receives user-facing output; nil means os.Stdout.
	Stdout io.Writer
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: ${default_config} when present)" env:"SETSIM_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run         RunCmd         `cmd:"" help:"Play games and save their statistics"`
	Consolidate ConsolidateCmd `cmd:"" help:"Merge every statistics file in the data directory"`
	Report      ReportCmd      `cmd:"" help:"Summarise a statistics file or the SQLite store"`
	Init        InitCmd        `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing and installs an initial logger. It is
// replaced once the configuration is loaded.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = newLogger(os.Stderr, logLevel(c.Verbose, config.LogLevelInfo), config.LogFormatText)
	slog.SetDefault(g.Logger)
	return nil
}

// logLevel resolves the effective level: --verbose wins, then
// SETSIM_LOG_LEVEL, then the configured level.
func logLevel(verbose bool, configured config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := strings.TrimSpace(os.Getenv("SETSIM_LOG_LEVEL")); env != "" {
		return config.NormalizeLogLevel(env).Slog()
	}
	return configured.Slog()
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig loads the configuration named by --config, or the default file
// when present, or the built-in defaults. It then reconfigures logging.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	path := c.Config
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	g.Logger = newLogger(os.Stderr, logLevel(c.Verbose, cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(g.Logger)
	if path == "" {
		slog.Debug("No configuration file, using defaults")
	} else {
		slog.Debug("Configuration loaded", "path", path)
	}
	return cfg, nil
}

func printf(g *Global, format string, args ...any) {
	_, _ = fmt.Fprintf(g.stdout(), format, args...)
}
