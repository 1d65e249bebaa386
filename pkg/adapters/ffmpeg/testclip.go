package ffmpeg

import (
	"context"
	"fmt"
)

// GenerateTestClip writes a 160x120 H.264/AAC MP4 of SMPTE bars with a sine
// tone to path. Integration tests use it to produce a real source file.
func GenerateTestClip(ctx context.Context, path string, seconds, fps int) error {
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	_, err = run(ctx, ffmpegPath, "-y", "-v", "error",
		"-f", "lavfi", "-i", fmt.Sprintf("smptebars=size=160x120:rate=%d:duration=%d", fps, seconds),
		"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=440:sample_rate=48000:duration=%d", seconds),
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		path,
	)
	return err
}
