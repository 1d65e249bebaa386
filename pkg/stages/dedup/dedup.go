// Package dedup implements the per-segment deduplication stage.
//
// Each segment is processed with its own decoding cursor and its own encoder,
// so segments share no mutable state. The first frame of a segment is never
// compared with the last frame of the previous segment: a frame that would
// have matched across the boundary is still emitted as a new representative.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/similarity"
)

// thumbnailWidth is the width of representative thumbnails saved to the debug sink.
const thumbnailWidth = 160

// Options configures a Stage.
type Options struct {
	Encoder ports.EncoderOptions
	// Progress, if set, is called with 1 after every processed frame.
	// It is called from worker goroutines and must be safe for concurrent use.
	Progress ports.ProgressFunc
}

// Stage deduplicates one segment of the source.
type Stage struct {
	source   ports.FrameSource
	encoders ports.EncoderFactory
	engine   *similarity.Engine
	renderer ports.Renderer
	sink     ports.DebugSink
	logger   ports.Logger
	opts     Options
}

// NewStage creates a new dedup stage. renderer may be nil, in which case
// debug representatives are saved at full size.
func NewStage(
	source ports.FrameSource,
	encoders ports.EncoderFactory,
	engine *similarity.Engine,
	renderer ports.Renderer,
	sink ports.DebugSink,
	logger ports.Logger,
	opts Options,
) *Stage {
	return &Stage{
		source:   source,
		encoders: encoders,
		engine:   engine,
		renderer: renderer,
		sink:     sink,
		logger:   logger.WithComponent("dedup"),
		opts:     opts,
	}
}

// Execute deduplicates input.Segment and writes it to input.Segment.OutputPath.
// A range that yields no frames writes no file.
func (s *Stage) Execute(ctx context.Context, input pipeline.SegmentInput) (result pipeline.SegmentResult, err error) {
	started := time.Now()
	seg := input.Segment
	src := input.Source
	count := seg.Range.Len()

	result.Segment = seg
	if count == 0 {
		return result, nil
	}

	s.logger.Debug("Segment %d: frames [%d, %d)", seg.Index, seg.Range.Start, seg.Range.End)

	cursor, err := s.source.Open(ctx, src.Path, seg.Range.Start, count, src.Width, src.Height)
	if err != nil {
		return result, fmt.Errorf("%w: segment %d: open decoder: %v", pipeline.ErrFrameRead, seg.Index, err)
	}
	defer cursor.Close()

	var enc ports.VideoEncoder
	defer func() {
		if err != nil && enc != nil {
			enc.Abort()
		}
	}()

	var rep image.Image
	stats := &result.Stats
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		abs := seg.Range.Start + i
		frame, err := cursor.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, fmt.Errorf("%w: segment %d frame %d: %v", pipeline.ErrFrameRead, seg.Index, abs, err)
		}

		if rep == nil {
			enc = s.encoders()
			if err := enc.Begin(seg.OutputPath, src.Width, src.Height, src.FrameRate, s.opts.Encoder); err != nil {
				return result, fmt.Errorf("segment %d: begin encoder: %w", seg.Index, err)
			}
			rep = frame
			s.keep(&result, abs, frame)
		} else {
			similar, err := s.engine.IsSimilar(rep, frame)
			if err != nil {
				return result, fmt.Errorf("%w: segment %d frame %d: %v", pipeline.ErrFrameRead, seg.Index, abs, err)
			}
			if !similar {
				rep = frame
				stats.UniqueFrames++
				s.keep(&result, abs, frame)
			}
		}

		if err := enc.EncodeFrame(rep); err != nil {
			return result, fmt.Errorf("segment %d frame %d: encode: %w", seg.Index, abs, err)
		}
		stats.OriginalFrames++
		stats.EmittedFrames++

		if s.opts.Progress != nil {
			s.opts.Progress(1)
		}
	}

	if stats.OriginalFrames < count {
		stats.Truncated = true
		s.logger.Warn("Segment %d ended early: %d of %d frames decoded", seg.Index, stats.OriginalFrames, count)
	}

	if enc != nil {
		if err := enc.End(); err != nil {
			return result, fmt.Errorf("segment %d: finalize encoder: %w", seg.Index, err)
		}
	}

	result.Elapsed = time.Since(started)
	s.logger.Debug("Segment %d: %d frames, %d unique, %v",
		seg.Index, stats.OriginalFrames, stats.UniqueFrames, result.Elapsed.Round(time.Millisecond))

	if s.sink.Enabled() {
		if data, err := json.MarshalIndent(stats, "", "  "); err == nil {
			s.sink.SaveSegmentJSON(seg.Index, data)
		}
	}

	return result, nil
}

// keep records frame abs as a new representative.
func (s *Stage) keep(result *pipeline.SegmentResult, abs int, frame image.Image) {
	result.Representatives = append(result.Representatives, abs)
	if !s.sink.Enabled() {
		return
	}

	thumb := frame
	if b := frame.Bounds(); s.renderer != nil && b.Dx() > thumbnailWidth {
		thumb = s.renderer.ResizeImage(frame, thumbnailWidth, max(1, b.Dy()*thumbnailWidth/b.Dx()))
	}
	if err := s.sink.SaveRepresentative(result.Segment.Index, abs, thumb); err != nil {
		s.logger.Debug("Failed to save representative %d: %v", abs, err)
	}
}
