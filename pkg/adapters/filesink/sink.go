// Package filesink provides a file-based debug sink implementation.
//
// Layout under the base directory:
//
//	source.json
//	segments/segment-0000.json
//	representatives/segment-0000/frame-000042.png
//	timeline.png
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/framededup/pkg/ports"
)

// Sink saves debug output to files. It is safe for concurrent use as long
// as the underlying FileSystem is.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSourceJSON saves the probed source description.
func (s *Sink) SaveSourceJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "source.json")
	return s.fs.WriteFile(path, data)
}

// SaveSegmentJSON saves the statistics of one segment.
func (s *Sink) SaveSegmentJSON(index int, data []byte) error {
	dir := filepath.Join(s.baseDir, "segments")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("segment-%04d.json", index))
	return s.fs.WriteFile(path, data)
}

// SaveRepresentative saves a frame that became a representative.
func (s *Sink) SaveRepresentative(segment, frameIndex int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "representatives", fmt.Sprintf("segment-%04d", segment))
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode representative %d: %w", frameIndex, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", frameIndex))
	return s.fs.WriteFile(path, data)
}

// SaveTimeline saves the overview image of the run.
func (s *Sink) SaveTimeline(img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	path := filepath.Join(s.baseDir, "timeline.png")
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
