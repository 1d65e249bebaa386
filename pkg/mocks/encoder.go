package mocks

import (
	"image"
	"sync"

	"github.com/user/framededup/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
// When Store is set, End publishes the recorded frames as a video at the
// output path so later stages can inspect, concatenate and mux it.
type VideoEncoder struct {
	BeginFunc       func(outputPath string, width, height int, fps ports.FrameRate, opts ports.EncoderOptions) error
	EncodeFrameFunc func(img image.Image) error
	EndFunc         func() error

	Store *MediaStore

	mu sync.Mutex

	// Recorded calls for verification
	BeginCalled bool
	OutputPath  string
	Width       int
	Height      int
	FrameRate   ports.FrameRate
	Options     ports.EncoderOptions
	Frames      []image.Image
	EndCalled   bool
	Aborted     bool
	finished    bool
}

func (m *VideoEncoder) Begin(outputPath string, width, height int, fps ports.FrameRate, opts ports.EncoderOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeginCalled = true
	m.OutputPath = outputPath
	m.Width = width
	m.Height = height
	m.FrameRate = fps
	m.Options = opts
	if m.BeginFunc != nil {
		return m.BeginFunc(outputPath, width, height, fps, opts)
	}
	return nil
}

func (m *VideoEncoder) EncodeFrame(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EncodeFrameFunc != nil {
		if err := m.EncodeFrameFunc(img); err != nil {
			return err
		}
	}
	m.Frames = append(m.Frames, img)
	return nil
}

func (m *VideoEncoder) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndCalled = true
	if m.EndFunc != nil {
		if err := m.EndFunc(); err != nil {
			return err
		}
	}
	m.finished = true
	if m.Store != nil {
		m.Store.Put(m.OutputPath, Video{
			Frames:    m.Frames,
			Width:     m.Width,
			Height:    m.Height,
			FrameRate: m.FrameRate,
		})
	}
	return nil
}

func (m *VideoEncoder) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return
	}
	m.Aborted = true
	if m.Store != nil {
		m.Store.Delete(m.OutputPath)
	}
}

// FrameCount returns the number of recorded frames.
func (m *VideoEncoder) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)
