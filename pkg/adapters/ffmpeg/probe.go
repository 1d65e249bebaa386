package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/framededup/pkg/ports"
)

// Prober reads stream metadata with ffprobe.
type Prober struct {
	// CountFrames makes ffprobe demux the whole file to count packets when the
	// container does not carry a frame count.
	CountFrames bool
}

// NewProber creates a Prober that counts packets.
func NewProber() *Prober {
	return &Prober{CountFrames: true}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	RFrameRate    string `json:"r_frame_rate"`
	NbFrames      string `json:"nb_frames"`
	NbReadPackets string `json:"nb_read_packets"`
	Duration      string `json:"duration"`
}

// Probe runs ffprobe on path.
func (p *Prober) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	ffprobePath, err := FindFFprobe()
	if err != nil {
		return ports.MediaInfo{}, err
	}

	args := []string{"-v", "error"}
	if p.CountFrames {
		args = append(args, "-count_packets")
	}
	args = append(args, "-show_streams", "-show_format", "-of", "json", path)

	out, err := run(ctx, ffprobePath, args...)
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(data []byte) (ports.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("%w: decode json: %v", ErrProbe, err)
	}

	info := ports.MediaInfo{
		FormatName:  out.Format.FormatName,
		DurationSec: parseFloat(out.Format.Duration),
	}

	var video, audio *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			if audio == nil {
				audio = s
			}
		}
	}

	if video == nil {
		return info, ErrNoVideoStream
	}

	info.VideoCodec = video.CodecName
	info.Width = video.Width
	info.Height = video.Height
	info.FrameRate = parseRate(video.AvgFrameRate)
	if !info.FrameRate.Valid() {
		info.FrameRate = parseRate(video.RFrameRate)
	}
	info.FrameCount = parseInt(video.NbFrames)
	if info.FrameCount <= 0 {
		info.FrameCount = parseInt(video.NbReadPackets)
	}

	if audio != nil {
		info.HasAudio = true
		info.AudioCodec = audio.CodecName
		info.AudioDurationSec = parseFloat(audio.Duration)
		if info.AudioDurationSec <= 0 {
			info.AudioDurationSec = info.DurationSec
		}
	}

	return info, nil
}

// parseRate parses "num/den" or a plain number. Unknown rates ("0/0") yield
// an invalid FrameRate.
func parseRate(s string) ports.FrameRate {
	s = strings.TrimSpace(s)
	if s == "" {
		return ports.FrameRate{}
	}
	num, den, found := strings.Cut(s, "/")
	if !found {
		n, err := strconv.Atoi(num)
		if err != nil {
			return ports.FrameRate{}
		}
		return ports.FrameRate{Num: n, Den: 1}
	}
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	if err1 != nil || err2 != nil {
		return ports.FrameRate{}
	}
	return ports.FrameRate{Num: n, Den: d}
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

var _ ports.Prober = (*Prober)(nil)
