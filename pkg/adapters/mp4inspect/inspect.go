// Package mp4inspect reads track metadata from MP4 files without decoding.
// It is used to verify segment outputs and the final container.
package mp4inspect

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framededup/pkg/ports"
)

// Codec names reported by Inspect.
const (
	CodecH264    = "h264"
	CodecHEVC    = "hevc"
	CodecAV1     = "av1"
	CodecUnknown = "unknown"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("mp4inspect: no video track found")

// Inspector implements ports.ContainerInspector with mp4ff.
type Inspector struct{}

// New creates an Inspector.
func New() *Inspector {
	return &Inspector{}
}

// Inspect opens path and reads its track metadata.
func (i *Inspector) Inspect(path string) (ports.ContainerInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ports.ContainerInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return InspectReader(f)
}

// InspectReader reads track metadata from an MP4 stream.
func InspectReader(r io.ReadSeeker) (ports.ContainerInfo, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return ports.ContainerInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return ports.ContainerInfo{}, ErrNoVideoTrack
	}

	video := findTrack(moov, "vide")
	if video == nil {
		return ports.ContainerInfo{}, ErrNoVideoTrack
	}
	audio := findTrack(moov, "soun")

	info := ports.ContainerInfo{Codec: CodecUnknown}
	info.Codec, info.Width, info.Height = sampleEntry(video)

	vt := progressiveTiming(video)
	var at trackTiming
	if audio != nil {
		info.HasAudio = true
		at = progressiveTiming(audio)
	}

	if mp4File.IsFragmented() {
		fv, err := fragmentedTiming(mp4File, moov, video)
		if err != nil {
			return ports.ContainerInfo{}, err
		}
		vt = vt.add(fv)
		if audio != nil {
			fa, err := fragmentedTiming(mp4File, moov, audio)
			if err != nil {
				return ports.ContainerInfo{}, err
			}
			at = at.add(fa)
		}
	}

	info.VideoFrames = vt.samples
	info.VideoDurationSec = vt.seconds()
	info.FrameRate = vt.rate()
	info.AudioDurationSec = at.seconds()

	return info, nil
}

func findTrack(moov *mp4.MoovBox, handler string) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == handler {
			return trak
		}
	}
	return nil
}

func sampleEntry(trak *mp4.TrakBox) (codec string, width, height int) {
	codec = CodecUnknown
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return codec, 0, 0
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			codec = CodecH264
		case "hvc1", "hev1":
			codec = CodecHEVC
		case "av01":
			codec = CodecAV1
		default:
			codec = child.Type()
		}
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			width, height = int(vse.Width), int(vse.Height)
		}
		return codec, width, height
	}
	return codec, 0, 0
}

// trackTiming accumulates sample counts and durations in track timescale units.
type trackTiming struct {
	timescale uint32
	samples   int
	duration  uint64
	// uniform is the sample duration when every sample has the same one, else 0.
	uniform uint32
	mixed   bool
}

func (t *trackTiming) addSamples(count int, dur uint32) {
	if count <= 0 {
		return
	}
	t.samples += count
	t.duration += uint64(count) * uint64(dur)
	switch {
	case t.mixed:
	case t.uniform == 0:
		t.uniform = dur
	case t.uniform != dur:
		t.mixed = true
		t.uniform = 0
	}
}

func (t trackTiming) add(o trackTiming) trackTiming {
	if t.timescale == 0 {
		t.timescale = o.timescale
	}
	if o.samples == 0 {
		return t
	}
	if t.samples == 0 {
		o.timescale = t.timescale
		return o
	}
	t.samples += o.samples
	t.duration += o.duration
	if t.mixed || o.mixed || t.uniform != o.uniform {
		t.mixed = true
		t.uniform = 0
	}
	return t
}

func (t trackTiming) seconds() float64 {
	if t.timescale == 0 {
		return 0
	}
	return float64(t.duration) / float64(t.timescale)
}

// rate returns the exact rate for uniform tracks and the average otherwise.
func (t trackTiming) rate() ports.FrameRate {
	if t.timescale == 0 || t.samples == 0 || t.duration == 0 {
		return ports.FrameRate{}
	}
	num, den := uint64(t.timescale), uint64(t.uniform)
	if t.uniform == 0 {
		num, den = uint64(t.samples)*uint64(t.timescale), t.duration
	}
	g := gcd(num, den)
	return ports.FrameRate{Num: int(num / g), Den: int(den / g)}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// progressiveTiming reads the sample table of a non-fragmented track.
func progressiveTiming(trak *mp4.TrakBox) trackTiming {
	var t trackTiming
	if trak.Mdia.Mdhd != nil {
		t.timescale = trak.Mdia.Mdhd.Timescale
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return t
	}
	stbl := trak.Mdia.Minf.Stbl

	if stbl.Stts != nil {
		for i := range stbl.Stts.SampleCount {
			t.addSamples(int(stbl.Stts.SampleCount[i]), stbl.Stts.SampleTimeDelta[i])
		}
	}
	// stsz is authoritative for the count when stts is missing or disagrees.
	if stbl.Stsz != nil && int(stbl.Stsz.SampleNumber) != t.samples {
		t.samples = int(stbl.Stsz.SampleNumber)
	}
	return t
}

// fragmentedTiming sums samples of trak over all single-track fragments.
func fragmentedTiming(f *mp4.File, moov *mp4.MoovBox, trak *mp4.TrakBox) (trackTiming, error) {
	var t trackTiming
	if trak.Mdia.Mdhd != nil {
		t.timescale = trak.Mdia.Mdhd.Timescale
	}
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, tr := range moov.Mvex.Trexs {
			if tr.TrackID == trackID {
				trex = tr
				break
			}
		}
	}

	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) != 1 {
				continue
			}
			if frag.Moof.Trafs[0].Tfhd.TrackID != trackID {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return t, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				t.addSamples(1, s.Dur)
			}
		}
	}
	return t, nil
}

var _ ports.ContainerInspector = (*Inspector)(nil)
