// Package config holds the analysis limits and their YAML representation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config controls one analysis run.
type Config struct {
	MaxSlotDepth      int    `yaml:"max_slot_depth"`
	MaxLoopIterations int    `yaml:"max_loop_iterations"`
	MaxWalkDepth      int    `yaml:"max_walk_depth"`
	Workers           int    `yaml:"workers"`
	RecordStates      bool   `yaml:"record_states"`
	StrictInvariants  bool   `yaml:"strict_invariants"`
	ReportSubsumed    bool   `yaml:"report_subsumed_arms"`
	LogLevel          string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxSlotDepth:      MaxSlotDepth,
		MaxLoopIterations: MaxLoopIterations,
		MaxWalkDepth:      MaxWalkDepth,
		Workers:           runtime.NumCPU(),
		ReportSubsumed:    DefaultReportSubsumedArms,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads and validates a YAML config file. Keys missing from the file
// keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the limits.
func (c Config) Validate() error {
	switch {
	case c.MaxSlotDepth < 1:
		return fmt.Errorf("%w: max_slot_depth must be at least 1, got %d", ErrInvalid, c.MaxSlotDepth)
	case c.MaxLoopIterations < 1:
		return fmt.Errorf("%w: max_loop_iterations must be at least 1, got %d", ErrInvalid, c.MaxLoopIterations)
	case c.MaxWalkDepth < 16:
		return fmt.Errorf("%w: max_walk_depth must be at least 16, got %d", ErrInvalid, c.MaxWalkDepth)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
}
