package ffmpeg

import "errors"

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpeg: ffmpeg not found")

	// ErrFFprobeNotFound is returned when no ffprobe binary can be located.
	ErrFFprobeNotFound = errors.New("ffmpeg: ffprobe not found")

	// ErrNotInitialized is returned when encoder methods are called before Begin.
	ErrNotInitialized = errors.New("ffmpeg: encoder not initialized")

	// ErrDecode is returned when the decoding process fails or yields a partial frame.
	ErrDecode = errors.New("ffmpeg: decode failed")

	// ErrProbe is returned when ffprobe output cannot be obtained or parsed.
	ErrProbe = errors.New("ffmpeg: probe failed")

	// ErrNoVideoStream is returned when a probed file has no video stream.
	ErrNoVideoStream = errors.New("ffmpeg: no video stream")
)
