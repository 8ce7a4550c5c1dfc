// Package config loads the setsim YAML configuration.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/game"
	"git.home.luguber.info/inful/setsim/internal/rng"
)

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// Config represents the application configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	NATS       NATSConfig       `yaml:"nats"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig bounds and shapes a run. Exactly one of Games and Duration is set.
type SimulationConfig struct {
	Games     uint64        `yaml:"games"`
	Duration  time.Duration `yaml:"duration"`
	Workers   int           `yaml:"workers"`
	BatchSize int           `yaml:"batch_size"`
	Policy    game.Policy   `yaml:"policy"`
	RNG       rng.Kind      `yaml:"rng"`
	Seed      uint64        `yaml:"seed"` // 0 draws a fresh seed per run
}

// OutputConfig controls where statistics files are written.
type OutputConfig struct {
	DataDir            string        `yaml:"data_dir"`
	FilePrefix         string        `yaml:"file_prefix"`
	Consolidated       string        `yaml:"consolidated"`
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"` // 0 disables checkpoints
}

// StorageConfig enables the SQLite aggregate store when SQLitePath is set.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// NATSConfig enables run announcements when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	// Defaults never fail on a zero config.
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}

// Load reads, expands and validates the configuration at configPath. Values
// of the form ${VAR} are expanded from the environment after .env files are
// loaded.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("file", configPath).Build()
		}
		return nil, errors.ConfigError("failed to read config file").
			WithContext("file", configPath).WithCause(err).Build()
	}

	return Parse([]byte(os.ExpandEnv(string(data))), configPath)
}

// Parse decodes already expanded YAML, applies defaults and validates.
func Parse(data []byte, name string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ConfigError("failed to unmarshal config").
			WithContext("file", name).WithCause(err).Build()
	}
	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("file", name).
			WithContext("version", cfg.Version).Build()
	}

	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("file", configPath).Build()
	}

	example := Default()
	example.NATS.URL = ""
	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	header := "# setsim configuration. ${VAR} references are expanded from the environment.\n" +
		"# Bound a run with either simulation.games or simulation.duration, not both.\n"

	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return errors.FileSystemError("failed to write config file").
			WithContext("file", configPath).WithCause(err).Build()
	}
	return nil
}

// loadEnvFile loads variables from .env and .env.local when present. Existing
// process variables are never overridden.
func loadEnvFile() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
