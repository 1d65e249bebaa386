package mocks

import (
	"image"
	"sync"

	"github.com/user/framededup/pkg/ports"
)

// RepresentativeKey identifies a saved representative frame.
type RepresentativeKey struct {
	Segment int
	Frame   int
}

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	SourceJSON      []byte
	SegmentJSON     map[int][]byte
	Representatives map[RepresentativeKey]image.Image
	Timeline        image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:         enabled,
		SegmentJSON:     make(map[int][]byte),
		Representatives: make(map[RepresentativeKey]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveSourceJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceJSON = data
	return nil
}

func (m *DebugSink) SaveSegmentJSON(index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SegmentJSON[index] = data
	return nil
}

func (m *DebugSink) SaveRepresentative(segment, frameIndex int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Representatives[RepresentativeKey{Segment: segment, Frame: frameIndex}] = img
	return nil
}

func (m *DebugSink) SaveTimeline(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timeline = img
	return nil
}

// RepresentativeCount returns the number of saved representatives.
func (m *DebugSink) RepresentativeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Representatives)
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                                { return false }
func (m *NullSink) SaveSourceJSON(data []byte) error                             { return nil }
func (m *NullSink) SaveSegmentJSON(index int, data []byte) error                 { return nil }
func (m *NullSink) SaveRepresentative(segment, frame int, img image.Image) error { return nil }
func (m *NullSink) SaveTimeline(img image.Image) error                           { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
