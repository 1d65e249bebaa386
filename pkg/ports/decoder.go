package ports

import (
	"context"
	"image"
)

// FrameSource opens independent decoding cursors on a video file.
// Every call to Open returns a new cursor that shares no state with others,
// so cursors may be used concurrently from different goroutines.
type FrameSource interface {
	// Open starts decoding path at frame index start and yields at most count frames.
	// width and height are the canonical frame dimensions reported by the probe.
	Open(ctx context.Context, path string, start, count, width, height int) (FrameCursor, error)
}

// FrameCursor reads decoded frames sequentially.
type FrameCursor interface {
	// Next returns the next decoded frame.
	// It returns io.EOF when the range is exhausted or the stream ended early.
	// The returned image is owned by the caller and is never reused by the cursor.
	Next() (image.Image, error)

	// Close releases the decoding handle. It is safe to call more than once.
	Close() error
}
