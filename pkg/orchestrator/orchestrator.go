// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/scheduler"
	"github.com/user/framededup/pkg/similarity"
	"github.com/user/framededup/pkg/stages/dedup"
	"github.com/user/framededup/pkg/stages/merge"
	"github.com/user/framededup/pkg/stages/remux"
	"github.com/user/framededup/pkg/stages/validate"
	"github.com/user/framededup/pkg/workspace"
)

// Config contains all configuration for one run.
type Config struct {
	// Input
	InputPath  string
	OutputPath string

	// Similarity
	Metric    string  // "pixel" or "ssim"
	Threshold float64 // 0 = metric default

	// Scheduling
	Workers        int
	Strategy       scheduler.Strategy
	SegmentTimeout time.Duration

	// Encoding
	Encoder ports.EncoderOptions

	// Workspace
	TempDir  string // Parent of the arena; empty = directory of OutputPath
	KeepTemp bool
	RunID    string // Empty = random

	// Progress, if set, receives the number of frames processed.
	Progress ports.ProgressFunc
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Metric:   similarity.MetricPixel,
		Workers:  4,
		Strategy: scheduler.StrategyParallel,
		Encoder: ports.EncoderOptions{
			Quality: 23,
			Preset:  "fast",
		},
	}
}

// Deps holds the adapters a run is built from.
type Deps struct {
	Source    ports.FrameSource
	Encoders  ports.EncoderFactory
	Prober    ports.Prober
	Inspector ports.ContainerInspector
	Concat    ports.Concatenator
	Muxer     ports.Muxer
	FS        ports.FileSystem
	Renderer  ports.Renderer // optional
	Sink      ports.DebugSink
	Logger    ports.Logger
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	deps   Deps
	logger ports.Logger
}

// New creates a new Orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: deps.Logger.WithComponent("orchestrator"),
	}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	RunID string

	// Input
	Source pipeline.VideoSource

	// Settings in effect
	Metric    string
	Threshold float64
	Strategy  scheduler.Strategy
	Workers   int // Effective worker count after clamping

	// Segments ordered by index
	Segments     []pipeline.SegmentResult
	UniqueFrames int

	// Output
	OutputPath       string
	OutputFrames     int
	DurationSec      float64
	AudioDurationSec float64

	Elapsed time.Duration
	States  []pipeline.Transition
}

// ReplacedFrames returns the number of output frames that repeat a representative.
func (r RunResult) ReplacedFrames() int {
	replaced := 0
	for _, seg := range r.Segments {
		if seg.Stats.EmittedFrames > 0 {
			replaced += seg.Stats.EmittedFrames - seg.Stats.UniqueFrames - 1
		}
	}
	return replaced
}

// Run executes the complete pipeline. The output file either exists complete
// when Run returns nil, or is not created at all.
func (o *Orchestrator) Run(ctx context.Context, config Config) (result RunResult, err error) {
	started := time.Now()
	sm := pipeline.NewStateMachine()

	if config.RunID == "" {
		config.RunID = workspace.NewRunID()
	}
	result.RunID = config.RunID
	result.OutputPath = config.OutputPath

	defer func() {
		if err != nil {
			from := sm.Current()
			sm.Fail()
			o.logger.Error("Pipeline failed while %s: %v", from, err)
		}
		result.States = sm.History()
		result.Elapsed = time.Since(started)
	}()

	o.logger.Info("Starting pipeline (run %s)", config.RunID)

	engine, err := o.buildEngine(config)
	if err != nil {
		return result, err
	}
	result.Metric = engine.Metric().Name()
	result.Threshold = engine.Threshold()
	result.Strategy = config.Strategy
	if result.Strategy == "" {
		result.Strategy = scheduler.StrategyParallel
	}
	if config.OutputPath == "" {
		return result, fmt.Errorf("%w: output path is required", pipeline.ErrConfiguration)
	}
	if filepath.Clean(config.OutputPath) == filepath.Clean(config.InputPath) {
		return result, fmt.Errorf("%w: output would overwrite the input", pipeline.ErrConfiguration)
	}

	// 1. Validate source
	if err := o.advance(sm, pipeline.StateValidating); err != nil {
		return result, err
	}
	validateStage := validate.NewStage(o.deps.Prober, o.deps.FS, o.deps.Logger, true)
	source, err := validateStage.Execute(ctx, pipeline.ValidateInput{Path: config.InputPath})
	if err != nil {
		return result, fmt.Errorf("validate stage: %w", err)
	}
	result.Source = source
	o.logger.Info("Source: %dx%d, %d frames at %s fps, audio %s", source.Width, source.Height, source.FrameCount, source.FrameRate, source.AudioCodec)

	if o.deps.Sink.Enabled() {
		if data, err := json.MarshalIndent(source, "", "  "); err == nil {
			o.deps.Sink.SaveSourceJSON(data)
		}
	}

	// 2. Partition
	if err := o.advance(sm, pipeline.StatePartitioning); err != nil {
		return result, err
	}
	baseDir := config.TempDir
	if baseDir == "" {
		baseDir = filepath.Dir(config.OutputPath)
	}
	ws, err := workspace.New(o.deps.FS, baseDir, config.RunID)
	if err != nil {
		return result, err
	}
	ws.Keep(config.KeepTemp)
	defer func() {
		if config.KeepTemp {
			o.logger.Info("Keeping temp files in %s", ws.Dir())
		}
		if cerr := ws.Close(); cerr != nil {
			o.logger.Warn("Failed to remove temp files: %v", cerr)
		}
	}()

	dedupStage := dedup.NewStage(
		o.deps.Source,
		o.deps.Encoders,
		engine,
		o.deps.Renderer,
		o.deps.Sink,
		o.deps.Logger,
		dedup.Options{Encoder: config.Encoder, Progress: config.Progress},
	)
	schedStage := scheduler.NewStage(dedupStage, o.deps.Logger, scheduler.Options{
		Strategy:       config.Strategy,
		SegmentTimeout: config.SegmentTimeout,
	})
	segments, err := schedStage.Segments(pipeline.ScheduleInput{
		Source:     source,
		Workers:    config.Workers,
		OutputPath: ws.SegmentPath,
	})
	if err != nil {
		return result, fmt.Errorf("partition: %w", err)
	}
	result.Workers = len(segments)

	// 3. Process segments
	if err := o.advance(sm, pipeline.StateProcessingSegments); err != nil {
		return result, err
	}
	scheduled, err := schedStage.Run(ctx, source, segments)
	if err != nil {
		return result, fmt.Errorf("process segments: %w", err)
	}
	result.Segments = scheduled.Results
	result.UniqueFrames = scheduled.UniqueFrames()
	o.logger.Info("Segments processed: %d unique of %d frames", result.UniqueFrames, scheduled.TotalFrames())

	// 4. Merge
	if err := o.advance(sm, pipeline.StateMergingSegments); err != nil {
		return result, err
	}
	merged, err := merge.NewStage(o.deps.FS, o.deps.Inspector, o.deps.Concat, o.deps.Logger).Execute(ctx, pipeline.MergeInput{
		Source:     source,
		Segments:   scheduled.Results,
		OutputPath: ws.MergedPath(),
	})
	if err != nil {
		return result, fmt.Errorf("merge stage: %w", err)
	}
	result.DurationSec = merged.DurationSec

	// 5. Remux and publish
	if err := o.advance(sm, pipeline.StateRemuxing); err != nil {
		return result, err
	}
	remuxed, err := remux.NewStage(o.deps.FS, o.deps.Inspector, o.deps.Muxer, o.deps.Logger).Execute(ctx, pipeline.RemuxInput{
		Source:     source,
		Merged:     merged,
		OutputPath: ws.RemuxedPath(pipeline.Ext(config.OutputPath)),
	})
	if err != nil {
		return result, fmt.Errorf("remux stage: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := o.deps.FS.Rename(remuxed.Path, config.OutputPath); err != nil {
		o.logger.Error("Failed to write output: %v", err)
		return result, fmt.Errorf("publish output: %w", err)
	}
	result.OutputFrames = remuxed.VideoFrames
	result.AudioDurationSec = remuxed.AudioDurationSec

	if o.deps.Sink.Enabled() && o.deps.Renderer != nil {
		img := RenderTimeline(o.deps.Renderer, source.FrameCount, scheduled.Results)
		if err := o.deps.Sink.SaveTimeline(img); err != nil {
			o.logger.Warn("Failed to save timeline: %v", err)
		}
	}

	if err := o.advance(sm, pipeline.StateDone); err != nil {
		return result, err
	}
	o.logger.Info("Pipeline completed successfully")
	return result, nil
}

func (o *Orchestrator) buildEngine(config Config) (*similarity.Engine, error) {
	metric, err := similarity.New(config.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	threshold := config.Threshold
	if threshold == 0 {
		threshold = similarity.DefaultThreshold(metric.Name())
	}
	engine, err := similarity.NewEngine(metric, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	return engine, nil
}

// advance moves the state machine forward and logs the transition.
func (o *Orchestrator) advance(sm *pipeline.StateMachine, to pipeline.State) error {
	from := sm.Current()
	if err := sm.Advance(to); err != nil {
		return err
	}
	o.logger.Info("State %s -> %s", from, to)
	return nil
}
