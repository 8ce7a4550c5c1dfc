package config

import (
	"strings"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

// Validate checks cross-field constraints. It is called by Load and again by
// commands after flag overrides.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Games > 0 && s.Duration > 0:
		return errors.ValidationError("simulation.games and simulation.duration are mutually exclusive").Build()
	case s.Games == 0 && s.Duration <= 0:
		return errors.ValidationError("one of simulation.games or simulation.duration must be set").Build()
	case s.Workers < 1:
		return errors.ValidationError("simulation.workers must be at least 1").
			WithContext("workers", s.Workers).Build()
	case s.BatchSize < 1:
		return errors.ValidationError("simulation.batch_size must be at least 1").
			WithContext("batch_size", s.BatchSize).Build()
	}

	o := c.Output
	if o.DataDir == "" {
		return errors.ValidationError("output.data_dir must be set").Build()
	}
	if strings.ContainsAny(o.FilePrefix, `/\`) {
		return errors.ValidationError("output.file_prefix must not contain path separators").
			WithContext("file_prefix", o.FilePrefix).Build()
	}
	if o.CheckpointInterval < 0 {
		return errors.ValidationError("output.checkpoint_interval must not be negative").Build()
	}

	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.ValidationError("nats.subject must be set when nats.url is").Build()
	}
	return nil
}
