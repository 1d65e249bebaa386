package mp4inspect

import (
	"bytes"
	"errors"
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framededup/pkg/adapters/ffmpeg"
	"github.com/user/framededup/pkg/ports"
)

// buildFragmented creates a fragmented MP4 with fake sample payloads.
// Each entry of videoDurs is one video sample.
func buildFragmented(t *testing.T, videoDurs []uint32, audioSamples int) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(90000, "video", "und")
	vtrak := init.Moov.Traks[0]
	vtrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("avc1", 64, 48, nil))
	vtrak.Tkhd.Width = mp4.Fixed32(64 << 16)
	vtrak.Tkhd.Height = mp4.Fixed32(48 << 16)

	if audioSamples > 0 {
		init.AddEmptyTrack(48000, "audio", "und")
		atrak := init.Moov.Traks[1]
		atrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateAudioSampleEntryBox("mp4a", 2, 16, 48000, aacEsds()))
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}

	vfrag, err := mp4.CreateFragment(1, vtrakID(init, 0))
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	var decodeTime uint64
	for _, dur := range videoDurs {
		vfrag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: 4, Dur: dur},
			DecodeTime: decodeTime,
			Data:       []byte{0, 0, 0, 0},
		})
		decodeTime += uint64(dur)
	}
	if err := vfrag.Encode(&buf); err != nil {
		t.Fatalf("encode video fragment: %v", err)
	}

	if audioSamples > 0 {
		afrag, err := mp4.CreateFragment(2, vtrakID(init, 1))
		if err != nil {
			t.Fatalf("create fragment: %v", err)
		}
		for i := 0; i < audioSamples; i++ {
			afrag.AddFullSample(mp4.FullSample{
				Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: 2, Dur: 1024},
				DecodeTime: uint64(i) * 1024,
				Data:       []byte{0, 0},
			})
		}
		if err := afrag.Encode(&buf); err != nil {
			t.Fatalf("encode audio fragment: %v", err)
		}
	}

	return buf.Bytes()
}

// aacEsds describes AAC-LC, 48 kHz, stereo.
func aacEsds() *mp4.EsdsBox {
	return mp4.CreateEsdsBox([]byte{0x11, 0x90})
}

func vtrakID(init *mp4.InitSegment, i int) uint32 {
	return init.Moov.Traks[i].Tkhd.TrackID
}

func uniform(n int, dur uint32) []uint32 {
	durs := make([]uint32, n)
	for i := range durs {
		durs[i] = dur
	}
	return durs
}

func TestInspectReader_Fragmented(t *testing.T) {
	data := buildFragmented(t, uniform(10, 3000), 47)

	info, err := InspectReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("InspectReader failed: %v", err)
	}

	if info.Codec != CodecH264 {
		t.Errorf("expected h264, got %s", info.Codec)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", info.Width, info.Height)
	}
	if info.VideoFrames != 10 {
		t.Errorf("expected 10 frames, got %d", info.VideoFrames)
	}
	if info.FrameRate != (ports.FrameRate{Num: 30, Den: 1}) {
		t.Errorf("expected 30/1, got %v", info.FrameRate)
	}
	if math.Abs(info.VideoDurationSec-1.0/3.0) > 1e-9 {
		t.Errorf("expected 1/3s video, got %f", info.VideoDurationSec)
	}
	if !info.HasAudio {
		t.Fatal("expected audio track")
	}
	want := 47.0 * 1024 / 48000
	if math.Abs(info.AudioDurationSec-want) > 1e-9 {
		t.Errorf("expected audio %f, got %f", want, info.AudioDurationSec)
	}
}

func TestInspectReader_NTSCRate(t *testing.T) {
	data := buildFragmented(t, uniform(5, 3003), 0)

	info, err := InspectReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("InspectReader failed: %v", err)
	}
	if info.FrameRate != (ports.FrameRate{Num: 30000, Den: 1001}) {
		t.Errorf("expected 30000/1001, got %v", info.FrameRate)
	}
	if info.HasAudio {
		t.Error("expected no audio")
	}
}

func TestInspectReader_VariableDurationsAverage(t *testing.T) {
	data := buildFragmented(t, []uint32{3000, 6000, 3000, 6000}, 0)

	info, err := InspectReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("InspectReader failed: %v", err)
	}
	// 4 samples over 18000/90000s = 20 fps average.
	if !info.FrameRate.Equal(ports.FrameRate{Num: 20, Den: 1}) {
		t.Errorf("expected average 20 fps, got %v", info.FrameRate)
	}
}

func TestInspectReader_NotMP4(t *testing.T) {
	if _, err := InspectReader(bytes.NewReader([]byte("definitely not an mp4 file"))); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestInspect_MissingFile(t *testing.T) {
	if _, err := New().Inspect(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTrackTimingAdd(t *testing.T) {
	var a trackTiming
	a.timescale = 1000
	a.addSamples(3, 40)

	var b trackTiming
	b.timescale = 1000
	b.addSamples(2, 40)

	sum := a.add(b)
	if sum.samples != 5 || sum.duration != 200 || sum.uniform != 40 {
		t.Errorf("unexpected sum %+v", sum)
	}

	var c trackTiming
	c.timescale = 1000
	c.addSamples(1, 50)
	if mixed := sum.add(c); !mixed.mixed || mixed.uniform != 0 {
		t.Errorf("expected mixed timing, got %+v", mixed)
	}
}

func TestInspect_NoVideoTrack(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(48000, "audio", "und")
	init.Moov.Traks[0].Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateAudioSampleEntryBox("mp4a", 2, 16, 48000, aacEsds()))

	var buf bytes.Buffer
	if err := mp4.NewFtyp("isom", 0x200, []string{"isom"}).Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}

	if _, err := InspectReader(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrNoVideoTrack) {
		t.Errorf("expected ErrNoVideoTrack, got %v", err)
	}
}

func TestIntegration_InspectEncodedFile(t *testing.T) {
	if !ffmpeg.IsAvailable() {
		t.Skip("ffmpeg not available")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	enc := ffmpeg.NewEncoder()
	if err := enc.Begin(path, 64, 48, ports.FrameRate{Num: 10, Den: 1}, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < 12; i++ {
		if err := enc.EncodeFrame(image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
			enc.Abort()
			t.Fatalf("EncodeFrame failed: %v", err)
		}
	}
	if err := enc.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	info, err := New().Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Codec != CodecH264 {
		t.Errorf("expected h264, got %s", info.Codec)
	}
	if info.VideoFrames != 12 {
		t.Errorf("expected 12 frames, got %d", info.VideoFrames)
	}
	if !info.FrameRate.Equal(ports.FrameRate{Num: 10, Den: 1}) {
		t.Errorf("expected 10 fps, got %v", info.FrameRate)
	}
	if info.HasAudio {
		t.Error("expected no audio")
	}
}
