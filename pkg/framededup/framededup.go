// Package framededup provides a high-level API for deduplicating the frames of a video.
package framededup

import (
	"context"
	"time"

	"github.com/user/framededup/pkg/adapters/ffmpeg"
	"github.com/user/framededup/pkg/adapters/ggrenderer"
	"github.com/user/framededup/pkg/adapters/logger"
	"github.com/user/framededup/pkg/adapters/mp4inspect"
	"github.com/user/framededup/pkg/adapters/nullsink"
	"github.com/user/framededup/pkg/adapters/osfilesystem"
	"github.com/user/framededup/pkg/orchestrator"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/scheduler"
	"github.com/user/framededup/pkg/similarity"
)

// QualityPreset represents a segment encoding quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// QualitySettings contains encoder parameters for a preset.
type QualitySettings struct {
	CRF    int    // x264 CRF (0-51, lower is better)
	Preset string // x264 speed preset
}

// GetQualitySettings returns quality settings for the given preset.
func GetQualitySettings(preset QualityPreset) QualitySettings {
	switch preset {
	case QualityLow:
		return QualitySettings{CRF: 30, Preset: "veryfast"}
	case QualityHigh:
		return QualitySettings{CRF: 18, Preset: "slow"}
	default: // medium
		return QualitySettings{CRF: 23, Preset: "fast"}
	}
}

// Config represents the settings of a deduplication job.
type Config struct {
	// Similarity
	Metric    string  // "pixel" or "ssim"
	Threshold float64 // 0 = metric default

	// Scheduling
	Workers        int
	Strategy       scheduler.Strategy
	SegmentTimeout time.Duration

	// Encoding
	CRF           int
	EncoderPreset string

	// Workspace
	TempDir  string
	KeepTemp bool
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with default settings.
func NewConfigBuilder() *ConfigBuilder {
	q := GetQualitySettings(QualityMedium)
	return &ConfigBuilder{
		config: Config{
			Metric:        similarity.MetricPixel,
			Workers:       4,
			Strategy:      scheduler.StrategyParallel,
			CRF:           q.CRF,
			EncoderPreset: q.Preset,
		},
	}
}

// Build returns the final Config, applying constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	// At least one worker
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Threshold < 0 {
		cfg.Threshold = 0
	}

	return cfg
}

// WithMetric selects the similarity metric and resets the threshold to its default.
func (b *ConfigBuilder) WithMetric(metric string) *ConfigBuilder {
	b.config.Metric = metric
	b.config.Threshold = 0
	return b
}

// WithThreshold sets the similarity threshold. Frames whose difference is
// strictly below it are replaced by the current representative.
func (b *ConfigBuilder) WithThreshold(threshold float64) *ConfigBuilder {
	b.config.Threshold = threshold
	return b
}

// WithWorkers sets the number of parallel segments.
// Values below 1 will be forced to 1.
func (b *ConfigBuilder) WithWorkers(workers int) *ConfigBuilder {
	b.config.Workers = workers
	return b
}

// WithStrategy sets the execution strategy.
func (b *ConfigBuilder) WithStrategy(strategy scheduler.Strategy) *ConfigBuilder {
	b.config.Strategy = strategy
	return b
}

// WithSegmentTimeout bounds the time spent on each segment.
func (b *ConfigBuilder) WithSegmentTimeout(d time.Duration) *ConfigBuilder {
	b.config.SegmentTimeout = d
	return b
}

// WithQualityPreset applies a quality preset (low, medium, high).
func (b *ConfigBuilder) WithQualityPreset(preset QualityPreset) *ConfigBuilder {
	settings := GetQualitySettings(preset)
	b.config.CRF = settings.CRF
	b.config.EncoderPreset = settings.Preset
	return b
}

// WithCRF sets the x264 CRF value.
func (b *ConfigBuilder) WithCRF(crf int) *ConfigBuilder {
	b.config.CRF = crf
	return b
}

// WithTempDir sets the parent directory of the temp arena.
func (b *ConfigBuilder) WithTempDir(dir string) *ConfigBuilder {
	b.config.TempDir = dir
	return b
}

// WithKeepTemp keeps intermediate files after the run.
func (b *ConfigBuilder) WithKeepTemp(keep bool) *ConfigBuilder {
	b.config.KeepTemp = keep
	return b
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(input, output string) orchestrator.Config {
	return orchestrator.Config{
		InputPath:  input,
		OutputPath: output,

		Metric:    c.Metric,
		Threshold: c.Threshold,

		Workers:        c.Workers,
		Strategy:       c.Strategy,
		SegmentTimeout: c.SegmentTimeout,

		Encoder: ports.EncoderOptions{
			Quality: c.CRF,
			Preset:  c.EncoderPreset,
		},

		TempDir:  c.TempDir,
		KeepTemp: c.KeepTemp,
	}
}

// NewDeps wires the ffmpeg-backed media runtime, the MP4 inspector and the
// local file system. A nil log discards messages and a nil sink disables
// debug output.
func NewDeps(log ports.Logger, sink ports.DebugSink) orchestrator.Deps {
	if log == nil {
		log = logger.NewNoop()
	}
	if sink == nil {
		sink = nullsink.New()
	}
	return orchestrator.Deps{
		Source:    ffmpeg.NewFrameSource(),
		Encoders:  ffmpeg.NewEncoderFactory(),
		Prober:    ffmpeg.NewProber(),
		Inspector: mp4inspect.New(),
		Concat:    ffmpeg.NewConcatenator(),
		Muxer:     ffmpeg.NewMuxer(),
		FS:        osfilesystem.New(),
		Renderer:  ggrenderer.New(),
		Sink:      sink,
		Logger:    log,
	}
}

// Dedup deduplicates input into output with the default media runtime.
func Dedup(ctx context.Context, input, output string, cfg Config, log ports.Logger) (orchestrator.RunResult, error) {
	orch := orchestrator.New(NewDeps(log, nil))
	return orch.Run(ctx, cfg.ToOrchestratorConfig(input, output))
}
