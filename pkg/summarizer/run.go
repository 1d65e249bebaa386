package summarizer

import (
	"github.com/user/framededup/pkg/orchestrator"
)

// FromRun returns a Builder pre-filled from a finished run and the
// configuration it was started with. The output file size is left to the caller.
func FromRun(result orchestrator.RunResult, config orchestrator.Config) *Builder {
	src := result.Source

	segments := make([]SegmentInfo, len(result.Segments))
	for i, seg := range result.Segments {
		segments[i] = SegmentInfo{
			Index:          seg.Segment.Index,
			Start:          seg.Segment.Range.Start,
			End:            seg.Segment.Range.End,
			OriginalFrames: seg.Stats.OriginalFrames,
			UniqueFrames:   seg.Stats.UniqueFrames,
			EmittedFrames:  seg.Stats.EmittedFrames,
			Truncated:      seg.Stats.Truncated,
			ElapsedMs:      seg.Elapsed.Milliseconds(),
		}
	}

	states := make([]StateInfo, len(result.States))
	for i, tr := range result.States {
		states[i] = StateInfo{
			From:     string(tr.From),
			To:       string(tr.To),
			OffsetMs: tr.At.Sub(result.States[0].At).Milliseconds(),
		}
	}

	return NewBuilder().
		WithRunID(result.RunID).
		WithSource(SourceInfo{
			Path:             src.Path,
			Codec:            src.Codec,
			Width:            src.Width,
			Height:           src.Height,
			FrameRate:        src.FrameRate.String(),
			FrameCount:       src.FrameCount,
			DurationSec:      src.DurationSec(),
			AudioCodec:       src.AudioCodec,
			AudioDurationSec: src.AudioDurationSec,
		}).
		WithSettings(Settings{
			Metric:    result.Metric,
			Threshold: result.Threshold,
			Strategy:  string(result.Strategy),
			Workers:   result.Workers,
			CRF:       config.Encoder.Quality,
			Preset:    config.Encoder.Preset,
		}).
		WithSegments(segments).
		WithOutput(OutputInfo{
			Path:             result.OutputPath,
			FrameCount:       result.OutputFrames,
			UniqueFrames:     result.UniqueFrames,
			ReplacedFrames:   result.ReplacedFrames(),
			DurationSec:      result.DurationSec,
			AudioDurationSec: result.AudioDurationSec,
			ElapsedMs:        result.Elapsed.Milliseconds(),
		}).
		WithStates(states)
}
