package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/user/framededup/pkg/ports"
)

// FrameSource decodes frame ranges by spawning one ffmpeg process per cursor.
// Frames are selected by index with the trim filter, so every cursor is
// frame-accurate regardless of keyframe placement.
type FrameSource struct{}

// NewFrameSource creates a FrameSource.
func NewFrameSource() *FrameSource {
	return &FrameSource{}
}

// Open starts an ffmpeg process that writes frames [start, start+count) of
// path as raw RGBA to its stdout.
func (s *FrameSource) Open(ctx context.Context, path string, start, count, width, height int) (ports.FrameCursor, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("%w: invalid range start=%d count=%d", ErrDecode, start, count)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrDecode, width, height)
	}
	if count == 0 {
		return &frameCursor{done: true}, nil
	}

	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	c := &frameCursor{
		width:     width,
		height:    height,
		remaining: count,
	}
	c.cmd = exec.CommandContext(ctx, ffmpegPath, decodeArgs(path, start, count)...)
	c.cmd.Stderr = &c.stderr

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	c.stdout = stdout

	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return c, nil
}

// decodeArgs builds the ffmpeg arguments for a raw RGBA decode of a frame
// range. Display rotation is ignored so frames keep the coded size the prober
// reports.
func decodeArgs(path string, start, count int) []string {
	filter := fmt.Sprintf("trim=start_frame=%d:end_frame=%d,setpts=PTS-STARTPTS", start, start+count)
	return []string{
		"-nostdin",
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-vf", filter,
		"-an",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

type frameCursor struct {
	width     int
	height    int
	remaining int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	done   bool
	waited bool
}

// Next reads one frame. Each call allocates a fresh buffer.
func (c *frameCursor) Next() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return nil, io.EOF
	}
	if c.remaining == 0 {
		c.done = true
		return nil, io.EOF
	}

	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	_, err := io.ReadFull(c.stdout, img.Pix)
	switch {
	case err == nil:
		c.remaining--
		return img, nil
	case errors.Is(err, io.EOF):
		c.done = true
		if werr := c.wait(); werr != nil {
			return nil, werr
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		c.done = true
		werr := c.wait()
		if werr == nil {
			werr = errors.New("stream ended inside a frame")
		}
		return nil, fmt.Errorf("%w: partial frame: %v", ErrDecode, werr)
	default:
		c.done = true
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
}

// wait reaps the process. A non-zero exit is reported as ErrDecode.
func (c *frameCursor) wait() error {
	if c.waited || c.cmd == nil {
		return nil
	}
	c.waited = true
	if err := c.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg exited: %v\nstderr: %s",
			ErrDecode, err, strings.TrimSpace(c.stderr.String()))
	}
	return nil
}

// Close stops the process if it is still running.
func (c *frameCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done = true
	if c.cmd == nil || c.waited {
		return nil
	}
	c.stdout.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.waited = true
	c.cmd.Wait()
	return nil
}

var (
	_ ports.FrameSource = (*FrameSource)(nil)
	_ ports.FrameCursor = (*frameCursor)(nil)
)
