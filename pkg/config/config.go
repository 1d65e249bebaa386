// Package config provides configuration loading and management.
//
// Values are layered: Defaults, then an optional YAML file, then
// FRAMEDEDUP_* environment variables. Command-line flags are applied on top
// by the caller.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/user/framededup/pkg/orchestrator"
	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/scheduler"
	"github.com/user/framededup/pkg/similarity"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FRAMEDEDUP_"

// OutputExtensions are the containers the output may be written as.
var OutputExtensions = []string{"mp4", "m4v", "mov"}

// Config represents the full configuration for framededup.
type Config struct {
	// Input/Output
	InputPath  string `yaml:"input" env:"INPUT"`
	OutputPath string `yaml:"output" env:"OUTPUT"`

	// Similarity
	Metric    string  `yaml:"metric" env:"METRIC"`
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"` // 0 = metric default

	// Scheduling
	Workers        int           `yaml:"workers" env:"WORKERS"`
	Strategy       string        `yaml:"strategy" env:"STRATEGY"`
	SegmentTimeout time.Duration `yaml:"segment_timeout" env:"SEGMENT_TIMEOUT"`

	// Encoding
	Encoder EncoderConfig `yaml:"encoder" envPrefix:"ENCODER_"`

	// Workspace
	TempDir  string `yaml:"temp_dir" env:"TEMP_DIR"`
	KeepTemp bool   `yaml:"keep_temp" env:"KEEP_TEMP"`

	// External tools
	FFmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG"`
	FFprobePath string `yaml:"ffprobe_path" env:"FFPROBE"`

	// Reporting
	SummaryPath string `yaml:"summary" env:"SUMMARY"`

	// Logging
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Debug
	Debug    bool   `yaml:"debug" env:"DEBUG"`
	DebugDir string `yaml:"debug_dir" env:"DEBUG_DIR"`
}

// EncoderConfig represents segment encoding settings.
type EncoderConfig struct {
	CRF    int    `yaml:"crf" env:"CRF"`
	Preset string `yaml:"preset" env:"PRESET"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Metric:   similarity.MetricPixel,
		Workers:  4,
		Strategy: string(scheduler.StrategyParallel),

		Encoder: EncoderConfig{
			CRF:    23,
			Preset: "fast",
		},

		LogLevel: "info",
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %w", pipeline.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// Load returns Defaults overlaid with the YAML file at path (if not empty)
// and then with FRAMEDEDUP_* environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields of cfg from FRAMEDEDUP_* environment variables.
// Unset variables leave the field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: environment: %w", pipeline.ErrConfiguration, err)
	}
	return nil
}

// Validate checks that the configuration describes a runnable job.
func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("%w: input path is required", pipeline.ErrConfiguration)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output path is required", pipeline.ErrConfiguration)
	}
	if ext := pipeline.Ext(c.OutputPath); !slices.Contains(OutputExtensions, ext) {
		return fmt.Errorf("%w: output must be one of %v, got %q", pipeline.ErrConfiguration, OutputExtensions, ext)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", pipeline.ErrConfiguration, c.Workers)
	}
	if _, err := similarity.New(c.Metric); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative, got %v", pipeline.ErrConfiguration, c.Threshold)
	}
	if _, err := scheduler.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.SegmentTimeout < 0 {
		return fmt.Errorf("%w: segment timeout must not be negative", pipeline.ErrConfiguration)
	}
	if c.Encoder.CRF < 0 || c.Encoder.CRF > 51 {
		return fmt.Errorf("%w: crf must be within 0-51, got %d", pipeline.ErrConfiguration, c.Encoder.CRF)
	}
	return nil
}

// EffectiveThreshold returns Threshold, or the metric default when it is unset.
func (c Config) EffectiveThreshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return similarity.DefaultThreshold(c.Metric)
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
// Call Validate first; an unknown strategy falls back to parallel.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	strategy, err := scheduler.ParseStrategy(c.Strategy)
	if err != nil {
		strategy = scheduler.StrategyParallel
	}

	return orchestrator.Config{
		InputPath:  c.InputPath,
		OutputPath: c.OutputPath,

		Metric:    c.Metric,
		Threshold: c.EffectiveThreshold(),

		Workers:        c.Workers,
		Strategy:       strategy,
		SegmentTimeout: c.SegmentTimeout,

		Encoder: ports.EncoderOptions{
			Quality: c.Encoder.CRF,
			Preset:  c.Encoder.Preset,
		},

		TempDir:  c.TempDir,
		KeepTemp: c.KeepTemp,
	}
}
