// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/framededup/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveSourceJSON does nothing.
func (s *Sink) SaveSourceJSON(data []byte) error {
	return nil
}

// SaveSegmentJSON does nothing.
func (s *Sink) SaveSegmentJSON(index int, data []byte) error {
	return nil
}

// SaveRepresentative does nothing.
func (s *Sink) SaveRepresentative(segment, frameIndex int, img image.Image) error {
	return nil
}

// SaveTimeline does nothing.
func (s *Sink) SaveTimeline(img image.Image) error {
	return nil
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
