package mocks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/user/framededup/pkg/ports"
)

// Video is an in-memory media file.
type Video struct {
	Frames     []image.Image
	Width      int
	Height     int
	FrameRate  ports.FrameRate
	Codec      string
	FormatName string
	// ReportedFrames overrides the probed frame count when non-zero,
	// to simulate containers that over-report.
	ReportedFrames   int
	HasAudio         bool
	AudioCodec       string
	AudioDurationSec float64
}

// OpenCall records a call to Open.
type OpenCall struct {
	Path  string
	Start int
	Count int
}

// MediaStore is an in-memory media runtime. It implements ports.Prober,
// ports.FrameSource, ports.ContainerInspector, ports.Concatenator and
// ports.Muxer over a shared set of videos, and hands out encoders that
// publish into the same set.
type MediaStore struct {
	fs *FileSystem

	mu     sync.RWMutex
	videos map[string]Video

	ProbeFunc   func(ctx context.Context, path string) (ports.MediaInfo, error)
	OpenFunc    func(ctx context.Context, path string, start, count int) error
	FrameFunc   func(path string, index int) error
	InspectFunc func(path string) (ports.ContainerInfo, error)
	ConcatFunc  func(ctx context.Context, inputs []string, outputPath string) error
	MuxFunc     func(ctx context.Context, videoPath, audioPath, outputPath string) error

	// Recorded calls for verification
	OpenCalls   []OpenCall
	ConcatCalls [][]string
	MuxCalls    int
	MuxOutputs  []string
	Encoders    []*VideoEncoder
}

// NewMediaStore creates a MediaStore. When fs is not nil, stored videos are
// mirrored as files so existence checks and renames behave as on disk.
func NewMediaStore(fs *FileSystem) *MediaStore {
	s := &MediaStore{
		fs:     fs,
		videos: make(map[string]Video),
	}
	if fs != nil {
		fs.OnRename = s.Move
	}
	return s
}

// Put stores v at path.
func (s *MediaStore) Put(path string, v Video) {
	s.mu.Lock()
	s.videos[path] = v
	s.mu.Unlock()
	if s.fs != nil {
		s.fs.WriteFile(path, []byte("mock-media"))
	}
}

// Get returns the video stored at path.
func (s *MediaStore) Get(path string) (Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[path]
	return v, ok
}

// Delete removes the video at path.
func (s *MediaStore) Delete(path string) {
	s.mu.Lock()
	delete(s.videos, path)
	s.mu.Unlock()
	if s.fs != nil {
		s.fs.Remove(path)
	}
}

// Move re-keys a stored video, mirroring a rename on the FileSystem.
func (s *MediaStore) Move(oldPath, newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[oldPath]; ok {
		delete(s.videos, oldPath)
		s.videos[newPath] = v
	}
}

// NewEncoder returns an encoder that publishes into the store.
func (s *MediaStore) NewEncoder() ports.VideoEncoder {
	enc := &VideoEncoder{Store: s}
	s.mu.Lock()
	s.Encoders = append(s.Encoders, enc)
	s.mu.Unlock()
	return enc
}

// EncoderFactory returns NewEncoder as a ports.EncoderFactory.
func (s *MediaStore) EncoderFactory() ports.EncoderFactory {
	return s.NewEncoder
}

func (s *MediaStore) lookup(path string) (Video, error) {
	v, ok := s.Get(path)
	if !ok {
		return Video{}, fmt.Errorf("file not found: %s", path)
	}
	return v, nil
}

// Probe implements ports.Prober.
func (s *MediaStore) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	if s.ProbeFunc != nil {
		return s.ProbeFunc(ctx, path)
	}
	v, err := s.lookup(path)
	if err != nil {
		return ports.MediaInfo{}, err
	}

	info := ports.MediaInfo{
		FormatName:       v.FormatName,
		VideoCodec:       v.Codec,
		Width:            v.Width,
		Height:           v.Height,
		FrameRate:        v.FrameRate,
		FrameCount:       len(v.Frames),
		HasAudio:         v.HasAudio,
		AudioCodec:       v.AudioCodec,
		AudioDurationSec: v.AudioDurationSec,
	}
	if info.FormatName == "" {
		info.FormatName = "mov,mp4,m4a,3gp,3g2,mj2"
	}
	if info.VideoCodec == "" {
		info.VideoCodec = "h264"
	}
	if v.ReportedFrames > 0 {
		info.FrameCount = v.ReportedFrames
	}
	if fps := v.FrameRate.Float(); fps > 0 {
		info.DurationSec = float64(len(v.Frames)) / fps
	}
	return info, nil
}

// Open implements ports.FrameSource.
func (s *MediaStore) Open(ctx context.Context, path string, start, count, width, height int) (ports.FrameCursor, error) {
	s.mu.Lock()
	s.OpenCalls = append(s.OpenCalls, OpenCall{Path: path, Start: start, Count: count})
	s.mu.Unlock()

	if s.OpenFunc != nil {
		if err := s.OpenFunc(ctx, path, start, count); err != nil {
			return nil, err
		}
	}
	v, err := s.lookup(path)
	if err != nil {
		return nil, err
	}

	end := min(start+count, len(v.Frames))
	start = min(start, end)
	return &frameCursor{
		store:  s,
		path:   path,
		frames: v.Frames[start:end],
		offset: start,
	}, nil
}

type frameCursor struct {
	store  *MediaStore
	path   string
	frames []image.Image
	offset int
	pos    int
	closed bool
}

func (c *frameCursor) Next() (image.Image, error) {
	if c.closed {
		return nil, errors.New("cursor closed")
	}
	if c.pos >= len(c.frames) {
		return nil, io.EOF
	}
	if c.store.FrameFunc != nil {
		if err := c.store.FrameFunc(c.path, c.offset+c.pos); err != nil {
			return nil, err
		}
	}
	img := c.frames[c.pos]
	c.pos++
	return img, nil
}

func (c *frameCursor) Close() error {
	c.closed = true
	return nil
}

// Inspect implements ports.ContainerInspector.
func (s *MediaStore) Inspect(path string) (ports.ContainerInfo, error) {
	if s.InspectFunc != nil {
		return s.InspectFunc(path)
	}
	v, err := s.lookup(path)
	if err != nil {
		return ports.ContainerInfo{}, err
	}

	info := ports.ContainerInfo{
		Codec:            v.Codec,
		Width:            v.Width,
		Height:           v.Height,
		FrameRate:        v.FrameRate,
		VideoFrames:      len(v.Frames),
		HasAudio:         v.HasAudio,
		AudioDurationSec: v.AudioDurationSec,
	}
	if info.Codec == "" {
		info.Codec = "h264"
	}
	if fps := v.FrameRate.Float(); fps > 0 {
		info.VideoDurationSec = float64(len(v.Frames)) / fps
	}
	return info, nil
}

// Concat implements ports.Concatenator.
func (s *MediaStore) Concat(ctx context.Context, inputs []string, outputPath string) error {
	s.mu.Lock()
	s.ConcatCalls = append(s.ConcatCalls, append([]string(nil), inputs...))
	s.mu.Unlock()

	if s.ConcatFunc != nil {
		return s.ConcatFunc(ctx, inputs, outputPath)
	}
	if len(inputs) == 0 {
		return errors.New("nothing to concatenate")
	}

	var merged Video
	for i, in := range inputs {
		v, err := s.lookup(in)
		if err != nil {
			return err
		}
		if i == 0 {
			merged.Width, merged.Height = v.Width, v.Height
			merged.FrameRate = v.FrameRate
			merged.Codec = v.Codec
		}
		merged.Frames = append(merged.Frames, v.Frames...)
	}
	s.Put(outputPath, merged)
	return nil
}

// Mux implements ports.Muxer.
func (s *MediaStore) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	s.mu.Lock()
	s.MuxCalls++
	s.MuxOutputs = append(s.MuxOutputs, outputPath)
	s.mu.Unlock()

	if s.MuxFunc != nil {
		return s.MuxFunc(ctx, videoPath, audioPath, outputPath)
	}
	video, err := s.lookup(videoPath)
	if err != nil {
		return err
	}
	audio, err := s.lookup(audioPath)
	if err != nil {
		return err
	}
	if !audio.HasAudio {
		return fmt.Errorf("no audio stream in %s", audioPath)
	}

	out := video
	out.HasAudio = true
	out.AudioCodec = audio.AudioCodec
	out.AudioDurationSec = audio.AudioDurationSec
	s.Put(outputPath, out)
	return nil
}

var (
	_ ports.Prober             = (*MediaStore)(nil)
	_ ports.FrameSource        = (*MediaStore)(nil)
	_ ports.ContainerInspector = (*MediaStore)(nil)
	_ ports.Concatenator       = (*MediaStore)(nil)
	_ ports.Muxer              = (*MediaStore)(nil)
)
