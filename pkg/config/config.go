// Package config loads rbcore settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidShards      = errors.New("shard count must be positive")
	ErrInvalidThreshold   = errors.New("hibernation threshold must not be negative")
	ErrInvalidKeys        = errors.New("bench key space must be positive")
	ErrInvalidOps         = errors.New("bench operation count must not be negative")
	ErrInvalidDeleteRatio = errors.New("bench delete ratio must be within [0, 1]")
)

// Config holds all rbcore configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Arena     ArenaConfig     `mapstructure:"arena"`
	Bench     BenchConfig     `mapstructure:"bench"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds tracing and metrics configuration.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// ArenaConfig holds node arena configuration.
type ArenaConfig struct {
	HibernationThreshold int `mapstructure:"hibernation_threshold"`
	Shards               int `mapstructure:"shards"`
}

// BenchConfig holds the default workload of the bench command.
type BenchConfig struct {
	Keys        int     `mapstructure:"keys"`
	Ops         int     `mapstructure:"ops"`
	Seed        int64   `mapstructure:"seed"`
	DeleteRatio float64 `mapstructure:"delete_ratio"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps the configured level name to a slog level.
func (c LoggingConfig) SlogLevel() slog.Level {
	level, ok := logLevels[strings.ToLower(c.Level)]
	if !ok {
		return slog.LevelInfo
	}

	return level
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, ok := logLevels[strings.ToLower(c.Logging.Level)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	if c.Arena.Shards <= 0 {
		return ErrInvalidShards
	}

	if c.Arena.HibernationThreshold < 0 {
		return ErrInvalidThreshold
	}

	return c.validateBench()
}

func (c *Config) validateBench() error {
	if c.Bench.Keys <= 0 {
		return ErrInvalidKeys
	}

	if c.Bench.Ops < 0 {
		return ErrInvalidOps
	}

	if c.Bench.DeleteRatio < 0 || c.Bench.DeleteRatio > 1 {
		return ErrInvalidDeleteRatio
	}

	return nil
}
