package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/user/framededup/pkg/mocks"
	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
	"github.com/user/framededup/pkg/scheduler"
	"github.com/user/framededup/pkg/similarity"
)

const (
	inPath  = "/videos/in.mp4"
	outPath = "/videos/out.mp4"
)

var rate = ports.FrameRate{Num: 25, Den: 1}

type fixture struct {
	fs     *mocks.FileSystem
	store  *mocks.MediaStore
	sink   *mocks.DebugSink
	logger *mocks.Logger
	orch   *Orchestrator
}

func setup(frames []image.Image, hasAudio bool) *fixture {
	fs := mocks.NewFileSystem()
	store := mocks.NewMediaStore(fs)

	src := mocks.Video{Frames: frames, Width: 8, Height: 8, FrameRate: rate}
	if hasAudio {
		src.HasAudio = true
		src.AudioCodec = "aac"
		src.AudioDurationSec = float64(len(frames)) / rate.Float()
	}
	store.Put(inPath, src)

	f := &fixture{
		fs:     fs,
		store:  store,
		sink:   mocks.NewDebugSink(false),
		logger: mocks.NewLogger(),
	}
	f.orch = New(Deps{
		Source:    store,
		Encoders:  store.EncoderFactory(),
		Prober:    store,
		Inspector: store,
		Concat:    store,
		Muxer:     store,
		FS:        fs,
		Sink:      f.sink,
		Logger:    f.logger,
	})
	return f
}

func config(workers int, threshold float64) Config {
	cfg := DefaultConfig()
	cfg.InputPath = inPath
	cfg.OutputPath = outPath
	cfg.Workers = workers
	cfg.Threshold = threshold
	return cfg
}

func samePixels(a, b image.Image) bool {
	ra, ok1 := a.(*image.RGBA)
	rb, ok2 := b.(*image.RGBA)
	if !ok1 || !ok2 {
		return false
	}
	return ra.Rect == rb.Rect && bytes.Equal(ra.Pix, rb.Pix)
}

func (f *fixture) output(t *testing.T) mocks.Video {
	t.Helper()
	v, ok := f.store.Get(outPath)
	if !ok {
		t.Fatal("expected output video to exist")
	}
	return v
}

func (f *fixture) arenaFiles() []string {
	var leftovers []string
	for path := range f.fs.GetAllFiles() {
		if strings.Contains(path, ".framededup-") {
			leftovers = append(leftovers, path)
		}
	}
	return leftovers
}

func TestOrchestrator_Run_IdenticalFrames(t *testing.T) {
	frames := mocks.RepeatedFrames(100, 8, 8, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	f := setup(frames, true)

	result, err := f.orch.Run(context.Background(), config(1, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.UniqueFrames != 0 {
		t.Errorf("expected 0 unique frames, got %d", result.UniqueFrames)
	}
	if result.ReplacedFrames() != 99 {
		t.Errorf("expected 99 replaced frames, got %d", result.ReplacedFrames())
	}

	out := f.output(t)
	if len(out.Frames) != 100 {
		t.Fatalf("expected 100 output frames, got %d", len(out.Frames))
	}
	for i, frame := range out.Frames {
		if !samePixels(frame, frames[0]) {
			t.Fatalf("frame %d differs from frame 0", i)
		}
	}
}

func TestOrchestrator_Run_AlternatingFrames(t *testing.T) {
	f := setup(mocks.AlternatingFrames(100, 8, 8), true)

	result, err := f.orch.Run(context.Background(), config(1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UniqueFrames != 99 {
		t.Errorf("expected 99 unique frames, got %d", result.UniqueFrames)
	}
	if result.ReplacedFrames() != 0 {
		t.Errorf("expected 0 replaced frames, got %d", result.ReplacedFrames())
	}
}

func TestOrchestrator_Run_MissingAudio(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), false)

	result, err := f.orch.Run(context.Background(), config(2, 1))
	if !errors.Is(err, pipeline.ErrMissingAudio) {
		t.Fatalf("expected ErrMissingAudio, got %v", err)
	}

	if exists, _ := f.fs.Exists(outPath); exists {
		t.Error("expected no output file")
	}
	if len(f.store.OpenCalls) != 0 {
		t.Errorf("expected no segment work, got %d decoder opens", len(f.store.OpenCalls))
	}

	states := result.States
	if len(states) == 0 || states[len(states)-1].To != pipeline.StateFailed {
		t.Fatalf("expected run to end in failed state, got %+v", states)
	}
	if states[len(states)-1].From != pipeline.StateValidating {
		t.Errorf("expected failure from validating, got %s", states[len(states)-1].From)
	}
	if !f.logger.Contains(ports.LevelError, "Pipeline failed") {
		t.Error("expected failure to be logged")
	}
}

func TestOrchestrator_Run_UncopyableAudio(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), true)
	v, _ := f.store.Get(inPath)
	v.AudioCodec = "pcm_s16le"
	f.store.Put(inPath, v)

	_, err := f.orch.Run(context.Background(), config(2, 1))
	if !errors.Is(err, pipeline.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(f.store.OpenCalls) != 0 {
		t.Errorf("expected no segment work, got %d decoder opens", len(f.store.OpenCalls))
	}
}

func TestOrchestrator_Run_PreservesCountAndAudio(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		threshold       float64
		expectedWorkers int
	}{
		{"single worker", 1, 30, 1},
		{"two workers", 2, 30, 2},
		{"uneven split", 7, 30, 7},
		{"tight threshold", 4, 1, 4},
		{"loose threshold", 4, 255, 4},
		{"more workers than frames", 100, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(mocks.GradualFrames(30, 8, 8, 10), true)

			result, err := f.orch.Run(context.Background(), config(tt.workers, tt.threshold))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Workers != tt.expectedWorkers {
				t.Errorf("expected %d effective workers, got %d", tt.expectedWorkers, result.Workers)
			}
			if result.OutputFrames != 30 {
				t.Errorf("expected 30 output frames, got %d", result.OutputFrames)
			}

			out := f.output(t)
			if len(out.Frames) != 30 {
				t.Errorf("expected 30 frames in output, got %d", len(out.Frames))
			}
			if !out.HasAudio {
				t.Fatal("expected output to carry audio")
			}
			if math.Abs(out.AudioDurationSec-1.2) > 1e-9 {
				t.Errorf("expected audio duration 1.2s, got %f", out.AudioDurationSec)
			}
			if math.Abs(result.DurationSec-1.2) > 1e-9 {
				t.Errorf("expected video duration 1.2s, got %f", result.DurationSec)
			}
		})
	}
}

func TestOrchestrator_Run_OutputFramesFollowSource(t *testing.T) {
	frames := mocks.GradualFrames(60, 8, 8, 7)
	f := setup(frames, true)

	result, err := f.orch.Run(context.Background(), config(4, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	starts := make(map[int]bool)
	for _, seg := range result.Segments {
		starts[seg.Segment.Range.Start] = true
	}

	out := f.output(t)
	for i, frame := range out.Frames {
		if starts[i] {
			if !samePixels(frame, frames[i]) {
				t.Errorf("frame %d opens a segment and must equal the source", i)
			}
			continue
		}
		if !samePixels(frame, frames[i]) && !samePixels(frame, out.Frames[i-1]) {
			t.Errorf("frame %d is neither the source frame nor the previous representative", i)
		}
	}
}

func TestOrchestrator_Run_StateHistory(t *testing.T) {
	f := setup(mocks.AlternatingFrames(10, 8, 8), true)

	result, err := f.orch.Run(context.Background(), config(2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []pipeline.State{
		pipeline.StateValidating,
		pipeline.StatePartitioning,
		pipeline.StateProcessingSegments,
		pipeline.StateMergingSegments,
		pipeline.StateRemuxing,
		pipeline.StateDone,
	}
	if len(result.States) != len(expected) {
		t.Fatalf("expected %d transitions, got %d", len(expected), len(result.States))
	}
	from := pipeline.StateIdle
	for i, tr := range result.States {
		if tr.From != from || tr.To != expected[i] {
			t.Errorf("transition %d: expected %s -> %s, got %s -> %s", i, from, expected[i], tr.From, tr.To)
		}
		from = tr.To
	}
	if !f.logger.Contains(ports.LevelInfo, "State remuxing -> done") {
		t.Error("expected transitions to be logged")
	}
}

func TestOrchestrator_Run_RemovesWorkspace(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), true)

	if _, err := f.orch.Run(context.Background(), config(3, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leftovers := f.arenaFiles(); len(leftovers) != 0 {
		t.Errorf("expected temp files to be removed, found %v", leftovers)
	}
	if exists, _ := f.fs.Exists(outPath); !exists {
		t.Error("expected output file")
	}
}

func TestOrchestrator_Run_KeepTemp(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), true)

	cfg := config(2, 1)
	cfg.KeepTemp = true
	if _, err := f.orch.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leftovers := f.arenaFiles()
	var segments int
	for _, path := range leftovers {
		if strings.Contains(path, "segment_") {
			segments++
		}
	}
	if segments != 2 {
		t.Errorf("expected 2 kept segment files, got %v", leftovers)
	}
}

func TestOrchestrator_Run_TempDir(t *testing.T) {
	f := setup(mocks.AlternatingFrames(10, 8, 8), true)

	cfg := config(2, 1)
	cfg.TempDir = "/scratch"
	cfg.KeepTemp = true
	if _, err := f.orch.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, path := range f.arenaFiles() {
		if !strings.HasPrefix(path, "/scratch/") {
			t.Errorf("expected temp file under /scratch, got %s", path)
		}
	}
}

func TestOrchestrator_Run_SegmentFailure(t *testing.T) {
	f := setup(mocks.AlternatingFrames(40, 8, 8), true)
	f.store.FrameFunc = func(path string, index int) error {
		if index == 25 {
			return errors.New("corrupt packet")
		}
		return nil
	}

	result, err := f.orch.Run(context.Background(), config(4, 1))
	if !errors.Is(err, pipeline.ErrFrameRead) {
		t.Fatalf("expected ErrFrameRead, got %v", err)
	}

	if len(f.store.ConcatCalls) != 0 {
		t.Error("expected no merge after a segment failure")
	}
	if exists, _ := f.fs.Exists(outPath); exists {
		t.Error("expected no output file")
	}
	if leftovers := f.arenaFiles(); len(leftovers) != 0 {
		t.Errorf("expected temp files to be removed, found %v", leftovers)
	}
	last := result.States[len(result.States)-1]
	if last.From != pipeline.StateProcessingSegments || last.To != pipeline.StateFailed {
		t.Errorf("expected processing_segments -> failed, got %s -> %s", last.From, last.To)
	}
}

func TestOrchestrator_Run_MuxesIntoOutputContainer(t *testing.T) {
	f := setup(mocks.AlternatingFrames(10, 8, 8), true)

	cfg := config(2, 1)
	cfg.OutputPath = "/videos/out.mov"
	if _, err := f.orch.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.store.MuxOutputs) != 1 || !strings.HasSuffix(f.store.MuxOutputs[0], "remuxed.mov") {
		t.Errorf("expected mux into a .mov container, got %v", f.store.MuxOutputs)
	}
	if exists, _ := f.fs.Exists("/videos/out.mov"); !exists {
		t.Error("expected output file")
	}
}

func TestOrchestrator_Run_PublishFailure(t *testing.T) {
	f := setup(mocks.AlternatingFrames(10, 8, 8), true)
	f.fs.RenameFunc = func(oldPath, newPath string) error {
		return errors.New("cross-device link")
	}

	_, err := f.orch.Run(context.Background(), config(2, 1))
	if err == nil {
		t.Fatal("expected error")
	}
	if exists, _ := f.fs.Exists(outPath); exists {
		t.Error("expected no output file")
	}
}

func TestOrchestrator_Run_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"unknown metric", func(c *Config) { c.Metric = "psnr" }, similarity.ErrUnknownMetric},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }, pipeline.ErrConfiguration},
		{"no output", func(c *Config) { c.OutputPath = "" }, pipeline.ErrConfiguration},
		{"output is input", func(c *Config) { c.OutputPath = inPath }, pipeline.ErrConfiguration},
		{"zero workers", func(c *Config) { c.Workers = 0 }, pipeline.ErrConfiguration},
		{"unsupported input", func(c *Config) { c.InputPath = "/videos/in.txt" }, pipeline.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(mocks.AlternatingFrames(10, 8, 8), true)
			cfg := config(2, 1)
			tt.modify(&cfg)

			_, err := f.orch.Run(context.Background(), cfg)
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
			if !errors.Is(err, pipeline.ErrConfiguration) && !errors.Is(err, pipeline.ErrUnsupportedFormat) {
				t.Errorf("expected a configuration-class error, got %v", err)
			}
			if len(f.store.OpenCalls) != 0 {
				t.Error("expected no segment work")
			}
		})
	}
}

func TestOrchestrator_Run_Sequential(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), true)

	cfg := config(4, 1)
	cfg.Strategy = scheduler.StrategySequential
	result, err := f.orch.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Workers != 1 || len(result.Segments) != 1 {
		t.Errorf("expected a single segment, got %d", len(result.Segments))
	}
	if len(f.store.OpenCalls) != 1 {
		t.Errorf("expected 1 decoder open, got %d", len(f.store.OpenCalls))
	}
	if result.UniqueFrames != 19 {
		t.Errorf("expected 19 unique frames, got %d", result.UniqueFrames)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	f := setup(mocks.AlternatingFrames(20, 8, 8), true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.Run(ctx, config(2, 1))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if exists, _ := f.fs.Exists(outPath); exists {
		t.Error("expected no output file")
	}
}

func TestOrchestrator_Run_Debug(t *testing.T) {
	f := setup(mocks.AlternatingFrames(12, 8, 8), true)
	f.sink = mocks.NewDebugSink(true)
	renderer := &mocks.Renderer{}
	f.orch = New(Deps{
		Source:    f.store,
		Encoders:  f.store.EncoderFactory(),
		Prober:    f.store,
		Inspector: f.store,
		Concat:    f.store,
		Muxer:     f.store,
		FS:        f.fs,
		Renderer:  renderer,
		Sink:      f.sink,
		Logger:    f.logger,
	})

	var progressed int
	cfg := config(1, 1)
	cfg.Progress = func(frames int) { progressed += frames }
	if _, err := f.orch.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.sink.SourceJSON) == 0 {
		t.Error("expected source JSON to be saved")
	}
	if f.sink.Timeline == nil {
		t.Error("expected timeline to be saved")
	}
	if f.sink.RepresentativeCount() != 12 {
		t.Errorf("expected 12 representatives, got %d", f.sink.RepresentativeCount())
	}
	if progressed != 12 {
		t.Errorf("expected progress for 12 frames, got %d", progressed)
	}
}

func TestRenderTimeline(t *testing.T) {
	renderer := &mocks.Renderer{}
	segments := []pipeline.SegmentResult{
		{
			Segment:         pipeline.Segment{Index: 0, Range: pipeline.FrameRange{Start: 0, End: 50}},
			Stats:           pipeline.SegmentStats{EmittedFrames: 50, UniqueFrames: 2},
			Representatives: []int{0, 10, 20},
		},
		{
			Segment:         pipeline.Segment{Index: 1, Range: pipeline.FrameRange{Start: 50, End: 100}},
			Stats:           pipeline.SegmentStats{EmittedFrames: 50, UniqueFrames: 0},
			Representatives: []int{50},
		},
	}

	img := RenderTimeline(renderer, 100, segments)
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != timelineHeight {
		t.Errorf("expected 100x%d timeline, got %v", timelineHeight, img.Bounds())
	}

	canvas := renderer.Canvases[0]
	// two bands plus four representative markers
	if len(canvas.Rects) != 6 {
		t.Errorf("expected 6 rects, got %d", len(canvas.Rects))
	}
	if canvas.Lines != 1 {
		t.Errorf("expected 1 boundary line, got %d", canvas.Lines)
	}
	if len(canvas.Texts) != 2 || canvas.Texts[0] != "#0 2/50" {
		t.Errorf("unexpected labels: %v", canvas.Texts)
	}
	if canvas.Rects[4].Min.X != 50 {
		t.Errorf("expected second band at x=50, got %d", canvas.Rects[4].Min.X)
	}
}

func TestRenderTimeline_ScalesLongVideos(t *testing.T) {
	renderer := &mocks.Renderer{}
	segments := []pipeline.SegmentResult{
		{
			Segment:         pipeline.Segment{Index: 0, Range: pipeline.FrameRange{Start: 0, End: 10000}},
			Representatives: []int{0, 5000},
		},
	}

	img := RenderTimeline(renderer, 10000, segments)
	if img.Bounds().Dx() != timelineMaxWidth {
		t.Errorf("expected width %d, got %d", timelineMaxWidth, img.Bounds().Dx())
	}
	if x := renderer.Canvases[0].Rects[2].Min.X; x != timelineMaxWidth/2 {
		t.Errorf("expected midpoint marker at %d, got %d", timelineMaxWidth/2, x)
	}
}
