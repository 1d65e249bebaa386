// Package summarizer provides summary generation for deduplication runs.
package summarizer

import "time"

// Summary contains all data collected during a deduplication run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id"`

	// Probed input
	Source SourceInfo `json:"source"`

	// Run configuration
	Settings Settings `json:"settings"`

	// Per-segment statistics, ordered by index
	Segments []SegmentInfo `json:"segments"`

	// Final output details
	Output OutputInfo `json:"output"`

	// Pipeline state transitions
	States []StateInfo `json:"states"`
}

// SourceInfo describes the input video.
type SourceInfo struct {
	Path             string  `json:"path"`
	Codec            string  `json:"codec"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	FrameRate        string  `json:"frame_rate"`         // "num/den"
	FrameCount       int     `json:"frame_count"`
	DurationSec      float64 `json:"duration_sec"`
	AudioCodec       string  `json:"audio_codec"`
	AudioDurationSec float64 `json:"audio_duration_sec"`
}

// Settings contains the run configuration.
type Settings struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
	Strategy  string  `json:"strategy"`
	Workers   int     `json:"workers"`   // Effective worker count
	CRF       int     `json:"crf"`
	Preset    string  `json:"preset"`
}

// SegmentInfo contains the statistics of one segment.
type SegmentInfo struct {
	Index          int   `json:"index"`
	Start          int   `json:"start"`
	End            int   `json:"end"`
	OriginalFrames int   `json:"original_frames"`
	UniqueFrames   int   `json:"unique_frames"`
	EmittedFrames  int   `json:"emitted_frames"`
	Truncated      bool  `json:"truncated"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}

// OutputInfo contains information about the output video.
type OutputInfo struct {
	Path             string  `json:"path"`
	FrameCount       int     `json:"frame_count"`
	UniqueFrames     int     `json:"unique_frames"`
	ReplacedFrames   int     `json:"replaced_frames"`
	DurationSec      float64 `json:"duration_sec"`
	AudioDurationSec float64 `json:"audio_duration_sec"`
	FileSize         int64   `json:"file_size"`
	ElapsedMs        int64   `json:"elapsed_ms"`
}

// StateInfo records when the pipeline entered a state.
type StateInfo struct {
	From     string `json:"from"`
	To       string `json:"to"`
	OffsetMs int64  `json:"offset_ms"` // Since the first transition
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRunID sets the run identifier.
func (b *Builder) WithRunID(id string) *Builder {
	b.summary.RunID = id
	return b
}

// WithSource sets source information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithSettings sets the run configuration.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithSegments sets per-segment statistics.
func (b *Builder) WithSegments(segments []SegmentInfo) *Builder {
	b.summary.Segments = segments
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// WithFileSize sets the size of the output file in bytes.
func (b *Builder) WithFileSize(size int64) *Builder {
	b.summary.Output.FileSize = size
	return b
}

// WithStates sets the pipeline state transitions.
func (b *Builder) WithStates(states []StateInfo) *Builder {
	b.summary.States = states
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
