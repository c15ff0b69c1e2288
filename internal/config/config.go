// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Norm is a configurable normalization statistic for one component.
type Norm struct {
	Mean   float64 `koanf:"mean"`
	StdDev float64 `koanf:"std_dev"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Interval is the tracking sampling interval in seconds.
	Interval float64 `koanf:"interval"`

	// SmoothingSigma is the gaussian kernel sigma, in samples.
	SmoothingSigma float64 `koanf:"smoothing_sigma"`

	// ReactionMinRun is the consecutive-frame requirement for reaction
	// detection.
	ReactionMinRun int `koanf:"reaction_min_run"`

	// JerkThresholds overrides per-role reaction thresholds, keyed by
	// role name.
	JerkThresholds map[string]float64 `koanf:"jerk_thresholds"`

	// BreakWindow is the half-window width for break detection.
	BreakWindow int `koanf:"break_window"`

	// MinBreakAngle is the minimum heading change, in degrees, for a
	// break point to register.
	MinBreakAngle float64 `koanf:"min_break_angle"`

	// Norms overrides normalization statistics, keyed by component name.
	Norms map[string]Norm `koanf:"norms"`

	// PlayQueueSize bounds the in-memory play queue.
	PlayQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of computation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the play-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the result store.
	ShardCount int `koanf:"shard_count"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// TrackingFiles lists tracking CSV paths for batch ingestion.
	TrackingFiles []string `koanf:"tracking_files"`

	// ContextFile is the context CSV path for batch ingestion.
	ContextFile string `koanf:"context_file"`

	// OutputFile is where batch runs write scored results.
	OutputFile string `koanf:"output_file"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		Interval:            0.1,
		SmoothingSigma:      1.0,
		ReactionMinRun:      2,
		BreakWindow:         3,
		MinBreakAngle:       20.0,
		PlayQueueSize:       100_000,
		WorkerCount:         runtime.NumCPU() * 4,
		DedupeSize:          500_000,
		ShardCount:          16,
		MaxLeaderboardLimit: 100,
		OutputFile:          "results.csv",
	}
}
