// Package main provides the CLI entry point for framededup.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framededup/pkg/adapters/ffmpeg"
	"github.com/user/framededup/pkg/adapters/filesink"
	"github.com/user/framededup/pkg/adapters/ggrenderer"
	"github.com/user/framededup/pkg/adapters/logger"
	"github.com/user/framededup/pkg/adapters/osfilesystem"
	"github.com/user/framededup/pkg/config"
	"github.com/user/framededup/pkg/framededup"
	"github.com/user/framededup/pkg/orchestrator"
	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/stages/validate"
	"github.com/user/framededup/pkg/summarizer"
)

var version = "dev"

// Flag categories
const (
	catOutput     = "Output"
	catSimilarity = "Similarity"
	catScheduling = "Scheduling"
	catEncoding   = "Encoding"
	catTools      = "External Tools"
	catDebug      = "Debug"
	catLogging    = "Logging"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framededup",
		Usage:   l10n.T("Replace near-duplicate video frames while keeping timing and audio"),
		Version: version,
		Commands: []*cli.Command{
			dedupCommand(),
			probeCommand(),
			versionCommand(),
		},
	}
}

func dedupCommand() *cli.Command {
	return &cli.Command{
		Name:      "dedup",
		Usage:     l10n.T("Deduplicate the frames of a video"),
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Category: l10n.T(catOutput), Usage: l10n.T("Output video file path (mp4, m4v, mov)")},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Category: l10n.T(catOutput), Usage: l10n.T("YAML configuration file")},
			&cli.StringFlag{Name: "summary", Category: l10n.T(catOutput), Usage: l10n.T("Write a run summary to this path (Markdown, or JSON for .json)")},
			&cli.StringFlag{Name: "temp-dir", Category: l10n.T(catOutput), Usage: l10n.T("Directory for intermediate files (default: next to the output)")},
			&cli.BoolFlag{Name: "keep-temp", Category: l10n.T(catOutput), Usage: l10n.T("Keep intermediate files after the run")},

			&cli.StringFlag{Name: "metric", Aliases: []string{"m"}, Category: l10n.T(catSimilarity), Usage: l10n.T("Similarity metric (pixel, ssim)")},
			&cli.Float64Flag{Name: "threshold", Aliases: []string{"t"}, Category: l10n.T(catSimilarity), Usage: l10n.T("Distance below which frames are duplicates (default depends on metric)")},

			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Category: l10n.T(catScheduling), Usage: l10n.T("Number of segments processed concurrently")},
			&cli.StringFlag{Name: "strategy", Category: l10n.T(catScheduling), Usage: l10n.T("Scheduling strategy (parallel, sequential)")},
			&cli.DurationFlag{Name: "segment-timeout", Category: l10n.T(catScheduling), Usage: l10n.T("Abort a segment that runs longer than this (0 = no limit)")},

			&cli.StringFlag{Name: "quality", Category: l10n.T(catEncoding), Usage: l10n.T("Quality preset (low, medium, high)")},
			&cli.IntFlag{Name: "crf", Category: l10n.T(catEncoding), Usage: l10n.T("x264 CRF value (0-51, lower is better, overrides quality preset)")},
			&cli.StringFlag{Name: "preset", Category: l10n.T(catEncoding), Usage: l10n.T("x264 speed preset (overrides quality preset)")},

			&cli.StringFlag{Name: "ffmpeg", Category: l10n.T(catTools), Usage: l10n.T("Path to the ffmpeg executable")},
			&cli.StringFlag{Name: "ffprobe", Category: l10n.T(catTools), Usage: l10n.T("Path to the ffprobe executable")},

			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Category: l10n.T(catDebug), Usage: l10n.T("Save representatives and a timeline for inspection")},
			&cli.StringFlag{Name: "debug-dir", Category: l10n.T(catDebug), Usage: l10n.T("Directory for debug output")},

			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: l10n.T(catLogging), Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Category: l10n.T(catLogging), Usage: l10n.T("Suppress all log output")},
			&cli.BoolFlag{Name: "no-progress", Category: l10n.T(catLogging), Usage: l10n.T("Disable the progress bar")},
		},
		Action: runDedup,
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Print what the pipeline sees in a video as JSON"),
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ffprobe", Category: l10n.T(catTools), Usage: l10n.T("Path to the ffprobe executable")},
		},
		Action: runProbe,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("framededup version %s", version))
			return nil
		},
	}
}

// loadConfig layers defaults, the config file, environment variables and
// finally explicitly set flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.Args().Present() {
		cfg.InputPath = c.Args().First()
	}
	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("metric") {
		cfg.Metric = c.String("metric")
	}
	if c.IsSet("threshold") {
		cfg.Threshold = c.Float64("threshold")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("segment-timeout") {
		cfg.SegmentTimeout = c.Duration("segment-timeout")
	}
	if c.IsSet("quality") {
		q := framededup.GetQualitySettings(framededup.QualityPreset(c.String("quality")))
		cfg.Encoder.CRF = q.CRF
		cfg.Encoder.Preset = q.Preset
	}
	if c.IsSet("crf") {
		cfg.Encoder.CRF = c.Int("crf")
	}
	if c.IsSet("preset") {
		cfg.Encoder.Preset = c.String("preset")
	}
	if c.IsSet("temp-dir") {
		cfg.TempDir = c.String("temp-dir")
	}
	if c.IsSet("keep-temp") {
		cfg.KeepTemp = c.Bool("keep-temp")
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("ffprobe") {
		cfg.FFprobePath = c.String("ffprobe")
	}
	if c.IsSet("summary") {
		cfg.SummaryPath = c.String("summary")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	return cfg, cfg.Validate()
}

func newLogger(level string, quiet bool) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	lv := ports.ParseLogLevel(level)
	if lv == ports.LevelQuiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(lv)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runDedup(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, c.Bool("quiet"))

	if cfg.FFmpegPath != "" {
		ffmpeg.SetFFmpegPath(cfg.FFmpegPath)
	}
	if cfg.FFprobePath != "" {
		ffmpeg.SetFFprobePath(cfg.FFprobePath)
	}

	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	fs := osfilesystem.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, ggrenderer.New())
	}
	deps := framededup.NewDeps(log, sink)

	orchConfig := cfg.ToOrchestratorConfig()

	var bar *progressBar
	if showProgress(c) {
		total := 0
		if info, err := deps.Prober.Probe(ctx, cfg.InputPath); err == nil {
			total = info.FrameCount
		}
		bar = newProgressBar(total, l10n.T("Deduplicating"))
		orchConfig.Progress = bar.Add
	}

	result, runErr := orchestrator.New(deps).Run(ctx, orchConfig)
	bar.Finish()

	if cfg.SummaryPath != "" {
		if err := writeSummary(cfg.SummaryPath, result, orchConfig, fs); err != nil {
			log.Warn("Failed to write summary: %v", err)
		} else {
			log.Info("Summary saved to %s", cfg.SummaryPath)
		}
	}

	if runErr != nil {
		return runErr
	}

	log.Info("Output saved to %s", result.OutputPath)
	if cfg.Debug {
		log.Info("Debug output saved to %s", cfg.DebugDir)
	}
	return nil
}

func writeSummary(path string, result orchestrator.RunResult, orchConfig orchestrator.Config, fs ports.FileSystem) error {
	builder := summarizer.FromRun(result, orchConfig)
	if result.OutputPath != "" {
		if st, err := os.Stat(result.OutputPath); err == nil {
			builder.WithFileSize(st.Size())
		}
	}

	formatter := summarizer.ForPath(path,
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	return summarizer.NewWriter(formatter, fs).Write(path, builder.Build())
}

// probeOutput is the JSON shape printed by the probe command.
type probeOutput struct {
	Path             string  `json:"path"`
	Format           string  `json:"format"`
	Codec            string  `json:"codec"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	FrameRate        string  `json:"frame_rate"`
	FPS              float64 `json:"fps"`
	FrameCount       int     `json:"frame_count"`
	DurationSec      float64 `json:"duration_sec"`
	HasAudio         bool    `json:"has_audio"`
	AudioCodec       string  `json:"audio_codec,omitempty"`
	AudioDurationSec float64 `json:"audio_duration_sec,omitempty"`
}

func newProbeOutput(src pipeline.VideoSource) probeOutput {
	return probeOutput{
		Path:             src.Path,
		Format:           src.FormatName,
		Codec:            src.Codec,
		Width:            src.Width,
		Height:           src.Height,
		FrameRate:        src.FrameRate.String(),
		FPS:              src.FPS(),
		FrameCount:       src.FrameCount,
		DurationSec:      src.DurationSec(),
		HasAudio:         src.HasAudio,
		AudioCodec:       src.AudioCodec,
		AudioDurationSec: src.AudioDurationSec,
	}
}

func runProbe(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("%w: input path is required", pipeline.ErrConfiguration)
	}
	if c.IsSet("ffprobe") {
		ffmpeg.SetFFprobePath(c.String("ffprobe"))
	}

	stage := validate.NewStage(ffmpeg.NewProber(), osfilesystem.New(), logger.NewNoop(), false)
	src, err := stage.Execute(c.Context, pipeline.ValidateInput{Path: c.Args().First()})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(newProbeOutput(src), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
