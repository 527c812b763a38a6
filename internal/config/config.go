// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"

	"github.com/okian/playalong/internal/domain/judge"
	"github.com/okian/playalong/internal/domain/model"
	"github.com/okian/playalong/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ScoringMode selects the score weighting: timing or offset.
	ScoringMode string `koanf:"scoring_mode"`

	// Timing thresholds in seconds. MaxOffsetSec is the tolerance window.
	AceOffsetSec    float64 `koanf:"ace_offset_sec"`
	GoodOffsetSec   float64 `koanf:"good_offset_sec"`
	BarelyOffsetSec float64 `koanf:"barely_offset_sec"`
	MaxOffsetSec    float64 `koanf:"max_offset_sec"`

	// TimingWeights maps timing names (ace, good, barely, miss) to their
	// weight in timing mode. Empty means the built-in table.
	TimingWeights map[string]float64 `koanf:"timing_weights"`

	// KeyBindings maps logical inputs to key codes. Empty means the default
	// layout.
	KeyBindings map[string][]int `koanf:"key_bindings"`

	// KeyQueueSize bounds the per-frame key event queue.
	KeyQueueSize int `koanf:"key_queue_size"`

	// FrameRate is the number of judging frames per playback second.
	FrameRate float64 `koanf:"frame_rate"`

	// DatabasePath enables session history when set.
	DatabasePath string `koanf:"database_path"`

	// MetricsFile receives a Prometheus textfile dump at exit when set.
	MetricsFile string `koanf:"metrics_file"`

	// ReplayFile is the replay played when none is given on the command line.
	ReplayFile string `koanf:"replay_file"`

	// Autoplay replaces the replay's key events with a perfect run.
	Autoplay bool `koanf:"autoplay"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		ScoringMode:     scoring.ByTiming.String(),
		AceOffsetSec:    model.DefaultAceOffset,
		GoodOffsetSec:   model.DefaultGoodOffset,
		BarelyOffsetSec: model.DefaultBarelyOffset,
		MaxOffsetSec:    model.DefaultMaxOffset,
		KeyQueueSize:    256,
		FrameRate:       60,
	}
}

// Validate checks every field that has a constrained range.
func (c *Config) Validate(_ context.Context) error {
	if _, err := scoring.ParseMode(c.ScoringMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Windows().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.KeyQueueSize <= 0 {
		return fmt.Errorf("%w: key_queue_size must be positive, got %d", ErrInvalidConfig, c.KeyQueueSize)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame_rate must be positive, got %g", ErrInvalidConfig, c.FrameRate)
	}
	for input, codes := range c.KeyBindings {
		if len(codes) == 0 {
			return fmt.Errorf("%w: key_bindings.%s: %w", ErrInvalidConfig, input, ErrEmptyBinding)
		}
	}
	return nil
}

// Windows returns the configured timing thresholds.
func (c *Config) Windows() model.Windows {
	return model.Windows{
		Ace:    c.AceOffsetSec,
		Good:   c.GoodOffsetSec,
		Barely: c.BarelyOffsetSec,
		Max:    c.MaxOffsetSec,
	}
}

// Mode returns the configured scoring mode, falling back to timing.
func (c *Config) Mode() scoring.Mode {
	mode, err := scoring.ParseMode(c.ScoringMode)
	if err != nil {
		return scoring.ByTiming
	}
	return mode
}

// Weights returns the configured weight table, or the default one.
func (c *Config) Weights() (scoring.Weights, error) {
	if len(c.TimingWeights) == 0 {
		return scoring.DefaultWeights(), nil
	}
	return scoring.WeightsFromNames(c.TimingWeights)
}

// Controls returns the configured key bindings, or the default layout.
func (c *Config) Controls() judge.Controls {
	if len(c.KeyBindings) == 0 {
		return judge.DefaultControls()
	}
	controls := make(judge.Controls, len(c.KeyBindings))
	for input, codes := range c.KeyBindings {
		controls[model.Input(input)] = append([]int(nil), codes...)
	}
	return controls
}
