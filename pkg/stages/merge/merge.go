// Package merge implements the segment concatenation stage.
package merge

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

// rateTolerance is the relative frame rate difference accepted between a
// segment and the source, to absorb container timescale rounding.
const rateTolerance = 1e-3

// Stage concatenates segment outputs in segment-index order.
type Stage struct {
	fs        ports.FileSystem
	inspector ports.ContainerInspector
	concat    ports.Concatenator
	logger    ports.Logger
}

// NewStage creates a new merge stage.
func NewStage(fs ports.FileSystem, inspector ports.ContainerInspector, concat ports.Concatenator, logger ports.Logger) *Stage {
	return &Stage{
		fs:        fs,
		inspector: inspector,
		concat:    concat,
		logger:    logger.WithComponent("merge"),
	}
}

// Execute verifies every segment output and joins them into input.OutputPath.
// Segments that produced no frames are skipped.
func (s *Stage) Execute(ctx context.Context, input pipeline.MergeInput) (pipeline.MergeResult, error) {
	segments := make([]pipeline.SegmentResult, len(input.Segments))
	copy(segments, input.Segments)
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Segment.Index < segments[j].Segment.Index
	})

	src := input.Source
	var inputs []string
	expected := 0

	for _, seg := range segments {
		if seg.Stats.EmittedFrames == 0 {
			s.logger.Debug("Segment %d produced no frames, skipping", seg.Segment.Index)
			continue
		}
		if err := s.checkSegment(src, seg); err != nil {
			return pipeline.MergeResult{}, err
		}
		inputs = append(inputs, seg.Segment.OutputPath)
		expected += seg.Stats.EmittedFrames
	}

	if len(inputs) == 0 {
		return pipeline.MergeResult{}, fmt.Errorf("%w: no segment produced frames", pipeline.ErrSegmentOutputMissing)
	}
	if err := ctx.Err(); err != nil {
		return pipeline.MergeResult{}, err
	}

	s.logger.Info("Merging %d segments (%d frames)", len(inputs), expected)

	if err := s.concat.Concat(ctx, inputs, input.OutputPath); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pipeline.MergeResult{}, ctxErr
		}
		return pipeline.MergeResult{}, fmt.Errorf("concatenate segments: %w", err)
	}

	if err := s.requireFile(input.OutputPath, "merged output"); err != nil {
		return pipeline.MergeResult{}, err
	}
	info, err := s.inspector.Inspect(input.OutputPath)
	if err != nil {
		return pipeline.MergeResult{}, fmt.Errorf("%w: merged output: %v", pipeline.ErrSegmentInconsistent, err)
	}
	if info.VideoFrames != expected {
		return pipeline.MergeResult{}, fmt.Errorf("%w: merged output has %d frames, expected %d",
			pipeline.ErrSegmentInconsistent, info.VideoFrames, expected)
	}

	result := pipeline.MergeResult{
		Path:       input.OutputPath,
		FrameCount: info.VideoFrames,
	}
	if fps := src.FPS(); fps > 0 {
		result.DurationSec = float64(info.VideoFrames) / fps
	}

	s.logger.Debug("Merged %d frames, %.3fs", result.FrameCount, result.DurationSec)
	return result, nil
}

// checkSegment verifies that a segment output exists and matches the source.
func (s *Stage) checkSegment(src pipeline.VideoSource, seg pipeline.SegmentResult) error {
	idx := seg.Segment.Index
	path := seg.Segment.OutputPath

	if err := s.requireFile(path, fmt.Sprintf("segment %d", idx)); err != nil {
		return err
	}

	info, err := s.inspector.Inspect(path)
	if err != nil {
		return fmt.Errorf("%w: segment %d: %v", pipeline.ErrSegmentInconsistent, idx, err)
	}
	if info.Width != src.Width || info.Height != src.Height {
		return fmt.Errorf("%w: segment %d is %dx%d, source is %dx%d",
			pipeline.ErrSegmentInconsistent, idx, info.Width, info.Height, src.Width, src.Height)
	}
	if !sameRate(info.FrameRate, src.FrameRate) {
		return fmt.Errorf("%w: segment %d runs at %s fps, source at %s",
			pipeline.ErrSegmentInconsistent, idx, info.FrameRate, src.FrameRate)
	}
	if info.VideoFrames != seg.Stats.EmittedFrames {
		return fmt.Errorf("%w: segment %d has %d frames, expected %d",
			pipeline.ErrSegmentInconsistent, idx, info.VideoFrames, seg.Stats.EmittedFrames)
	}
	return nil
}

func (s *Stage) requireFile(path, what string) error {
	exists, err := s.fs.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", pipeline.ErrSegmentOutputMissing, what, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s: %s", pipeline.ErrSegmentOutputMissing, what, path)
	}
	return nil
}

func sameRate(a, b ports.FrameRate) bool {
	if a.Equal(b) {
		return true
	}
	fa, fb := a.Float(), b.Float()
	if fa == 0 || fb == 0 {
		return false
	}
	return math.Abs(fa-fb)/fb < rateTolerance
}
