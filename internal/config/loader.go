package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if RAI_CONFIG is set
//  3. env (prefix RAI_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("RAI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RAI_ADDR, RAI_QUEUE_SIZE, ...
	// Map env keys like RAI_QUEUE_SIZE -> queue_size (flat keys),
	// preserving underscores to match koanf tags on the struct.
	envProvider := env.Provider("RAI_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rai_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the engine cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case c.SmoothingSigma <= 0:
		return fmt.Errorf("%w: smoothing_sigma must be positive", ErrInvalidConfig)
	case c.ReactionMinRun < 1:
		return fmt.Errorf("%w: reaction_min_run must be at least 1", ErrInvalidConfig)
	case c.BreakWindow < 1:
		return fmt.Errorf("%w: break_window must be at least 1", ErrInvalidConfig)
	case c.MinBreakAngle <= 0:
		return fmt.Errorf("%w: min_break_angle must be positive", ErrInvalidConfig)
	}
	for name, n := range c.Norms {
		if n.StdDev <= 0 {
			return fmt.Errorf("%w: norm %s std_dev must be positive", ErrInvalidConfig, name)
		}
	}
	for role, threshold := range c.JerkThresholds {
		if threshold <= 0 {
			return fmt.Errorf("%w: jerk threshold for %s must be positive", ErrInvalidConfig, role)
		}
	}
	return nil
}
