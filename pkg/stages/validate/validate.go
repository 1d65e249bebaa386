// Package validate implements the source validation stage.
package validate

import (
	"context"
	"fmt"
	"slices"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

// SupportedExtensions lists the source container extensions accepted by the pipeline.
var SupportedExtensions = []string{"mp4", "m4v", "mov", "mkv", "webm", "avi"}

// CopyableAudioCodecs lists the audio codecs that can be stream-copied into
// the MP4 family of output containers without re-encoding.
var CopyableAudioCodecs = []string{"aac", "mp3", "mp2", "alac", "ac3", "eac3", "opus"}

// Stage probes the source and checks that it can be deduplicated.
type Stage struct {
	prober       ports.Prober
	fs           ports.FileSystem
	logger       ports.Logger
	requireAudio bool
}

// NewStage creates a new validation stage.
// When requireAudio is set a source without audio is rejected up front,
// before any segment work starts.
func NewStage(prober ports.Prober, fs ports.FileSystem, logger ports.Logger, requireAudio bool) *Stage {
	return &Stage{
		prober:       prober,
		fs:           fs,
		logger:       logger.WithComponent("validate"),
		requireAudio: requireAudio,
	}
}

// Execute validates input.Path and returns the probed source.
func (s *Stage) Execute(ctx context.Context, input pipeline.ValidateInput) (pipeline.VideoSource, error) {
	if input.Path == "" {
		return pipeline.VideoSource{}, fmt.Errorf("%w: empty source path", pipeline.ErrConfiguration)
	}

	ext := pipeline.Ext(input.Path)
	if !slices.Contains(SupportedExtensions, ext) {
		return pipeline.VideoSource{}, fmt.Errorf("%w: extension %q", pipeline.ErrUnsupportedFormat, ext)
	}

	exists, err := s.fs.Exists(input.Path)
	if err != nil {
		return pipeline.VideoSource{}, fmt.Errorf("%w: %v", pipeline.ErrSourceOpen, err)
	}
	if !exists {
		return pipeline.VideoSource{}, fmt.Errorf("%w: %s does not exist", pipeline.ErrSourceOpen, input.Path)
	}

	info, err := s.prober.Probe(ctx, input.Path)
	if err != nil {
		return pipeline.VideoSource{}, fmt.Errorf("%w: %v", pipeline.ErrSourceOpen, err)
	}

	if info.FormatName == "" || info.VideoCodec == "" {
		return pipeline.VideoSource{}, fmt.Errorf("%w: no decodable video stream in %s", pipeline.ErrUnsupportedFormat, input.Path)
	}
	if !info.FrameRate.Valid() {
		return pipeline.VideoSource{}, fmt.Errorf("%w: %s reports frame rate %s",
			pipeline.ErrFrameRateUnavailable, input.Path, info.FrameRate)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return pipeline.VideoSource{}, fmt.Errorf("%w: invalid frame size %dx%d",
			pipeline.ErrSourceOpen, info.Width, info.Height)
	}
	// yuv420p output needs even dimensions.
	if info.Width%2 != 0 || info.Height%2 != 0 {
		return pipeline.VideoSource{}, fmt.Errorf("%w: frame size %dx%d is not even",
			pipeline.ErrUnsupportedFormat, info.Width, info.Height)
	}
	if info.FrameCount <= 0 {
		return pipeline.VideoSource{}, fmt.Errorf("%w: source has no frames", pipeline.ErrConfiguration)
	}
	if s.requireAudio && !info.HasAudio {
		return pipeline.VideoSource{}, fmt.Errorf("%w: %s", pipeline.ErrMissingAudio, input.Path)
	}
	if info.HasAudio && !slices.Contains(CopyableAudioCodecs, info.AudioCodec) {
		return pipeline.VideoSource{}, fmt.Errorf("%w: audio codec %q cannot be copied into the output",
			pipeline.ErrUnsupportedFormat, info.AudioCodec)
	}

	source := pipeline.VideoSource{
		Path:             input.Path,
		FrameCount:       info.FrameCount,
		FrameRate:        info.FrameRate,
		Width:            info.Width,
		Height:           info.Height,
		Codec:            info.VideoCodec,
		FormatName:       info.FormatName,
		HasAudio:         info.HasAudio,
		AudioCodec:       info.AudioCodec,
		AudioDurationSec: info.AudioDurationSec,
	}

	s.logger.Debug("Source: %dx%d, %s fps, %d frames, codec %s, audio %v",
		source.Width, source.Height, source.FrameRate, source.FrameCount, source.Codec, source.HasAudio)

	return source, nil
}
