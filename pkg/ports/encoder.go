package ports

import (
	"image"
)

// VideoEncoder abstracts video encoding operations.
// An encoder instance writes exactly one output file; create a new one per segment.
type VideoEncoder interface {
	// Begin initializes the encoder to write outputPath with the specified
	// dimensions and frame rate.
	Begin(outputPath string, width, height int, fps FrameRate, opts EncoderOptions) error

	// EncodeFrame appends a single frame to the output.
	EncodeFrame(img image.Image) error

	// End finalizes encoding and flushes the output file.
	End() error

	// Abort stops encoding and removes any partial output.
	// It is a no-op after End has succeeded.
	Abort()
}

// EncoderFactory creates a fresh encoder for each output.
type EncoderFactory func() VideoEncoder

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	Quality int    // CRF value: 0-51 (lower is higher quality, 0 = encoder default)
	Preset  string // x264 preset name (empty = encoder default)
}
