package ffmpeg

import (
	"context"

	"github.com/user/framededup/pkg/ports"
)

// Muxer copies the video of one file and the audio of another into a new
// container. Neither stream is re-encoded.
type Muxer struct{}

// NewMuxer creates a Muxer.
func NewMuxer() *Muxer {
	return &Muxer{}
}

// Mux writes outputPath from the first video stream of videoPath and the
// first audio stream of audioPath.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	_, err = run(ctx, ffmpegPath,
		"-y",
		"-v", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	)
	return err
}

var _ ports.Muxer = (*Muxer)(nil)
