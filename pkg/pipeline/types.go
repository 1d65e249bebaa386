package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/user/framededup/pkg/ports"
)

// =============================================================================
// Source
// =============================================================================

// VideoSource describes the probed input video. It is immutable once probed
// and shared read-only by every segment task.
type VideoSource struct {
	Path             string
	FrameCount       int
	FrameRate        ports.FrameRate
	Width            int
	Height           int
	Codec            string
	FormatName       string
	HasAudio         bool
	AudioCodec       string
	AudioDurationSec float64
}

// FPS returns the frame rate as a float.
func (v VideoSource) FPS() float64 {
	return v.FrameRate.Float()
}

// DurationSec returns the nominal video duration (frames / fps).
func (v VideoSource) DurationSec() float64 {
	fps := v.FPS()
	if fps == 0 {
		return 0
	}
	return float64(v.FrameCount) / fps
}

// ValidateInput contains parameters for source validation.
type ValidateInput struct {
	Path string
}

// =============================================================================
// Segments
// =============================================================================

// FrameRange is the half-open interval [Start, End) of frame indices.
type FrameRange struct {
	Start int
	End   int
}

// Len returns the number of frames in the range.
func (r FrameRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Segment is one contiguous range of the source processed by one worker.
type Segment struct {
	Index      int
	Range      FrameRange
	OutputPath string
}

// SegmentStats are the per-segment counters reported by a processor.
type SegmentStats struct {
	// OriginalFrames is the number of source frames decoded for the segment.
	OriginalFrames int `json:"original_frames"`
	// UniqueFrames counts frames after the first that became a new representative.
	UniqueFrames int `json:"unique_frames"`
	// EmittedFrames is the number of frames written to the segment output.
	// It always equals OriginalFrames.
	EmittedFrames int `json:"emitted_frames"`
	// Truncated is set when the decoder ended before the range was exhausted.
	Truncated bool `json:"truncated"`
}

// SegmentInput contains parameters for deduplicating one segment.
type SegmentInput struct {
	Source  VideoSource
	Segment Segment
}

// SegmentResult is the immutable outcome of one segment task.
type SegmentResult struct {
	Segment Segment
	Stats   SegmentStats
	// Representatives lists the absolute frame indices emitted as new representatives,
	// including the first frame of the segment.
	Representatives []int
	Elapsed         time.Duration
}

// ScheduleInput contains parameters for partitioning and dispatching segments.
type ScheduleInput struct {
	Source VideoSource
	// Workers is the requested worker count W.
	Workers int
	// OutputPath returns the temp output path for a segment index.
	OutputPath func(index int) string
}

// ScheduleResult contains every segment result, ordered by segment index.
type ScheduleResult struct {
	Results []SegmentResult
	// Stats maps segment index to its statistics.
	Stats map[int]SegmentStats
}

// TotalFrames sums the emitted frames of all segments.
func (r ScheduleResult) TotalFrames() int {
	total := 0
	for _, s := range r.Stats {
		total += s.EmittedFrames
	}
	return total
}

// UniqueFrames sums the unique frames of all segments.
func (r ScheduleResult) UniqueFrames() int {
	total := 0
	for _, s := range r.Stats {
		total += s.UniqueFrames
	}
	return total
}

// =============================================================================
// Merge and Remux
// =============================================================================

// MergeInput contains parameters for concatenating segment outputs.
type MergeInput struct {
	Source     VideoSource
	Segments   []SegmentResult
	OutputPath string
}

// MergeResult describes the merged video-only stream.
type MergeResult struct {
	Path        string
	FrameCount  int
	DurationSec float64
}

// RemuxInput contains parameters for attaching the source audio.
type RemuxInput struct {
	Source     VideoSource
	Merged     MergeResult
	OutputPath string
}

// RemuxResult describes the final container.
type RemuxResult struct {
	Path             string
	VideoFrames      int
	AudioDurationSec float64
}

// =============================================================================
// Helpers
// =============================================================================

// Ext returns the lower-cased extension of path without the dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
