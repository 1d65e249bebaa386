package pipeline

import "errors"

var (
	// ErrUnsupportedFormat is returned when the source container or extension is not recognized.
	ErrUnsupportedFormat = errors.New("framededup: unsupported format")

	// ErrSourceOpen is returned when the source cannot be opened or probed.
	ErrSourceOpen = errors.New("framededup: cannot open source")

	// ErrFrameRateUnavailable is returned when the source reports no usable frame rate.
	ErrFrameRateUnavailable = errors.New("framededup: frame rate unavailable")

	// ErrFrameRead is returned when decoding fails in the middle of a segment.
	ErrFrameRead = errors.New("framededup: frame read failed")

	// ErrSegmentOutputMissing is returned when an expected temp output does not exist.
	ErrSegmentOutputMissing = errors.New("framededup: segment output missing")

	// ErrSegmentInconsistent is returned when a segment output disagrees with its siblings.
	ErrSegmentInconsistent = errors.New("framededup: segment output inconsistent")

	// ErrMissingAudio is returned when the source has no audio track.
	ErrMissingAudio = errors.New("framededup: source has no audio track")

	// ErrRemux is returned when the final container cannot be produced or verified.
	ErrRemux = errors.New("framededup: remux failed")

	// ErrConfiguration is returned for invalid run parameters.
	ErrConfiguration = errors.New("framededup: invalid configuration")
)
