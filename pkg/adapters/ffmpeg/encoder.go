package ffmpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/user/framededup/pkg/ports"
)

const (
	defaultCRF    = 23
	defaultPreset = "fast"
)

// Encoder implements H.264 encoding using an ffmpeg external process.
// Raw RGBA frames are piped to ffmpeg stdin and written straight to the
// output path.
type Encoder struct {
	width  int
	height int

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     bytes.Buffer
	outputPath string
	frameCount int
	finished   bool
	ended      bool
}

// NewEncoder creates a new ffmpeg-based H.264 encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewEncoderFactory returns a factory producing independent encoders.
func NewEncoderFactory() ports.EncoderFactory {
	return func() ports.VideoEncoder { return NewEncoder() }
}

// Begin starts ffmpeg.
func (e *Encoder) Begin(outputPath string, width, height int, fps ports.FrameRate, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil {
		return fmt.Errorf("ffmpeg: encoder already started for %s", e.outputPath)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("ffmpeg: invalid frame size %dx%d", width, height)
	}
	if !fps.Valid() {
		return fmt.Errorf("ffmpeg: invalid frame rate %s", fps)
	}

	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	e.width = width
	e.height = height
	e.outputPath = outputPath
	e.frameCount = 0

	e.cmd = exec.Command(ffmpegPath, encodeArgs(outputPath, width, height, fps, opts)...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		e.cmd = nil
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		e.cmd = nil
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return nil
}

func encodeArgs(outputPath string, width, height int, fps ports.FrameRate, opts ports.EncoderOptions) []string {
	crf := opts.Quality
	if crf <= 0 || crf > 51 {
		crf = defaultCRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = defaultPreset
	}

	return []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fps.String(),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	}
}

// EncodeFrame writes a single frame to ffmpeg.
func (e *Encoder) EncodeFrame(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.finished {
		return ErrNotInitialized
	}

	if _, err := e.stdin.Write(e.rawFrame(img)); err != nil {
		return fmt.Errorf("failed to write frame: %w\nstderr: %s", err, strings.TrimSpace(e.stderr.String()))
	}

	e.frameCount++
	return nil
}

// rawFrame returns tightly packed RGBA bytes of img at the encoder size.
func (e *Encoder) rawFrame(img image.Image) []byte {
	if rgba, ok := img.(*image.RGBA); ok &&
		rgba.Rect.Min == (image.Point{}) &&
		rgba.Rect.Dx() == e.width && rgba.Rect.Dy() == e.height &&
		rgba.Stride == e.width*4 {
		return rgba.Pix
	}

	rgba := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba.Pix
}

// End closes stdin and waits for ffmpeg to finish writing the file.
func (e *Encoder) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.finished {
		return ErrNotInitialized
	}

	e.stdin.Close()
	e.stdin = nil
	e.finished = true

	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w\nstderr: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	e.ended = true
	return nil
}

// Abort kills ffmpeg and removes the partial output. After a failed End the
// process is already gone and only the file is removed.
func (e *Encoder) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.ended {
		return
	}
	if !e.finished {
		e.finished = true
		if e.stdin != nil {
			e.stdin.Close()
			e.stdin = nil
		}
		if e.cmd.Process != nil {
			e.cmd.Process.Kill()
		}
		e.cmd.Wait()
	}
	os.Remove(e.outputPath)
}

// FrameCount returns the number of frames written so far.
func (e *Encoder) FrameCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameCount
}

var _ ports.VideoEncoder = (*Encoder)(nil)
