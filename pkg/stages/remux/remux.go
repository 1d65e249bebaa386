// Package remux attaches the source audio to the merged video.
package remux

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

// AudioTolerance is the largest accepted difference between the source audio
// duration and the audio duration of the remuxed output.
const AudioTolerance = 50 * time.Millisecond

// Stage muxes the merged video with the unmodified source audio.
type Stage struct {
	fs        ports.FileSystem
	inspector ports.ContainerInspector
	muxer     ports.Muxer
	logger    ports.Logger
}

// NewStage creates a new remux stage.
func NewStage(fs ports.FileSystem, inspector ports.ContainerInspector, muxer ports.Muxer, logger ports.Logger) *Stage {
	return &Stage{
		fs:        fs,
		inspector: inspector,
		muxer:     muxer,
		logger:    logger.WithComponent("remux"),
	}
}

// Execute writes input.OutputPath and verifies it. The output is removed
// when verification fails.
func (s *Stage) Execute(ctx context.Context, input pipeline.RemuxInput) (result pipeline.RemuxResult, err error) {
	src := input.Source
	if !src.HasAudio {
		return result, fmt.Errorf("%w: %s", pipeline.ErrMissingAudio, src.Path)
	}

	exists, err := s.fs.Exists(input.Merged.Path)
	if err != nil || !exists {
		return result, fmt.Errorf("%w: merged video %s", pipeline.ErrSegmentOutputMissing, input.Merged.Path)
	}

	s.logger.Info("Attaching audio from %s", src.Path)

	if err := s.muxer.Mux(ctx, input.Merged.Path, src.Path, input.OutputPath); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, fmt.Errorf("%w: %v", pipeline.ErrRemux, err)
	}

	defer func() {
		if err != nil {
			s.fs.Remove(input.OutputPath)
		}
	}()

	info, err := s.inspector.Inspect(input.OutputPath)
	if err != nil {
		return result, fmt.Errorf("%w: inspect output: %v", pipeline.ErrRemux, err)
	}
	if !info.HasAudio {
		return result, fmt.Errorf("%w: output has no audio track", pipeline.ErrRemux)
	}
	if src.AudioDurationSec > 0 {
		diff := math.Abs(info.AudioDurationSec - src.AudioDurationSec)
		if diff > AudioTolerance.Seconds() {
			return result, fmt.Errorf("%w: audio duration %.3fs differs from source %.3fs",
				pipeline.ErrRemux, info.AudioDurationSec, src.AudioDurationSec)
		}
	}
	if info.VideoFrames != input.Merged.FrameCount {
		return result, fmt.Errorf("%w: output has %d video frames, merged video has %d",
			pipeline.ErrRemux, info.VideoFrames, input.Merged.FrameCount)
	}

	result = pipeline.RemuxResult{
		Path:             input.OutputPath,
		VideoFrames:      info.VideoFrames,
		AudioDurationSec: info.AudioDurationSec,
	}
	s.logger.Debug("Output: %d frames, audio %.3fs", result.VideoFrames, result.AudioDurationSec)
	return result, nil
}
