package config

import (
	"fmt"
	"runtime"

	"git.home.luguber.info/inful/setsim/internal/game"
)

// Default values applied to a zero configuration.
const (
	DefaultGames        = 100000
	DefaultBatchSize    = 1000
	DefaultDataDir      = "data"
	DefaultFilePrefix   = "run"
	DefaultConsolidated = "data.csv"
	DefaultNATSSubject  = "setsim.runs"
)

// DefaultWorkers is the worker count used when none is configured.
var DefaultWorkers = min(4, runtime.NumCPU())

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier creates a composite default applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&SimulationDefaultApplier{},
			&OutputDefaultApplier{},
			&NATSDefaultApplier{},
			&LoggingDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// SimulationDefaultApplier handles simulation defaults and enum normalisation.
type SimulationDefaultApplier struct{}

func (SimulationDefaultApplier) Domain() string { return "simulation" }

func (SimulationDefaultApplier) ApplyDefaults(cfg *Config) error {
	s := &cfg.Simulation
	if s.Games == 0 && s.Duration <= 0 {
		s.Games = DefaultGames
	}
	if s.Workers <= 0 {
		s.Workers = DefaultWorkers
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}

	policy, err := game.ParsePolicy(string(s.Policy))
	if err != nil {
		return err
	}
	s.Policy = policy

	kind, err := NormalizeRNG(string(s.RNG))
	if err != nil {
		return err
	}
	s.RNG = kind
	return nil
}

// OutputDefaultApplier handles output defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.DataDir == "" {
		cfg.Output.DataDir = DefaultDataDir
	}
	if cfg.Output.FilePrefix == "" {
		cfg.Output.FilePrefix = DefaultFilePrefix
	}
	if cfg.Output.Consolidated == "" {
		cfg.Output.Consolidated = DefaultConsolidated
	}
	return nil
}

// NATSDefaultApplier handles announcement defaults.
type NATSDefaultApplier struct{}

func (NATSDefaultApplier) Domain() string { return "nats" }

func (NATSDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
	return nil
}

// LoggingDefaultApplier normalises logging enums.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	level, err := logLevelNormalizer.NormalizeWithError(string(cfg.Logging.Level))
	if err != nil {
		return err
	}
	format, err := logFormatNormalizer.NormalizeWithError(string(cfg.Logging.Format))
	if err != nil {
		return err
	}
	cfg.Logging.Level = level
	cfg.Logging.Format = format
	return nil
}
