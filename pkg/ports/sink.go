package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// Implementations must be safe for concurrent use: segment workers call
// SaveRepresentative from different goroutines.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveSourceJSON saves the probed source description.
	SaveSourceJSON(data []byte) error

	// SaveSegmentJSON saves the statistics of one segment.
	SaveSegmentJSON(index int, data []byte) error

	// SaveRepresentative saves a frame that became a representative.
	SaveRepresentative(segment, frameIndex int, img image.Image) error

	// SaveTimeline saves an overview image of which frames were kept.
	SaveTimeline(img image.Image) error
}
