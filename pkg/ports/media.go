package ports

import (
	"context"
	"fmt"
)

// FrameRate is a rational frame rate such as 30000/1001.
type FrameRate struct {
	Num int
	Den int
}

// Float returns the frame rate as frames per second.
// It returns 0 when the rate is unknown.
func (r FrameRate) Float() float64 {
	if r.Num <= 0 || r.Den <= 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Valid reports whether the frame rate is usable.
func (r FrameRate) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// String formats the rate the way ffmpeg accepts it ("num/den").
func (r FrameRate) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Equal compares two rates by value, so 60/2 equals 30/1.
// An unknown rate equals nothing, not even another unknown rate.
func (r FrameRate) Equal(o FrameRate) bool {
	if !r.Valid() || !o.Valid() {
		return false
	}
	return int64(r.Num)*int64(o.Den) == int64(o.Num)*int64(r.Den)
}

// MediaInfo is the probed description of a media file.
type MediaInfo struct {
	FormatName       string    // Container format (e.g. "mov,mp4,m4a,3gp,3g2,mj2")
	DurationSec      float64   // Container duration
	VideoCodec       string    // e.g. "h264"
	Width            int
	Height           int
	FrameRate        FrameRate // Average frame rate of the first video stream
	FrameCount       int       // Number of video frames (0 if unknown)
	HasAudio         bool
	AudioCodec       string
	AudioDurationSec float64
}

// Prober extracts stream information from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

// Concatenator joins video files that share encoding parameters into one file
// without re-encoding. Inputs are joined in the order given.
type Concatenator interface {
	Concat(ctx context.Context, inputs []string, outputPath string) error
}

// Muxer combines the video stream of one file with the audio stream of another.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// ContainerInfo is the result of inspecting an MP4 container natively.
type ContainerInfo struct {
	Codec            string
	Width            int
	Height           int
	FrameRate        FrameRate
	VideoFrames      int
	VideoDurationSec float64
	HasAudio         bool
	AudioDurationSec float64
}

// ContainerInspector reads track metadata from MP4 files.
type ContainerInspector interface {
	Inspect(path string) (ContainerInfo, error)
}

// ProgressFunc is called with the number of frames processed since the last call.
type ProgressFunc func(frames int)
