package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/framededup/pkg/mocks"
	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

type processorFunc func(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error)

func (f processorFunc) Execute(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error) {
	return f(ctx, in)
}

func echo(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error) {
	n := in.Segment.Range.Len()
	return pipeline.SegmentResult{
		Segment: in.Segment,
		Stats:   pipeline.SegmentStats{OriginalFrames: n, EmittedFrames: n},
	}, nil
}

func scheduleInput(frames, workers int) pipeline.ScheduleInput {
	return pipeline.ScheduleInput{
		Source:     pipeline.VideoSource{Path: "in.mp4", FrameCount: frames, FrameRate: ports.FrameRate{Num: 30, Den: 1}},
		Workers:    workers,
		OutputPath: func(i int) string { return fmt.Sprintf("/work/segment_%04d.mp4", i) },
	}
}

func fr(start, end int) pipeline.FrameRange {
	return pipeline.FrameRange{Start: start, End: end}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		total   int
		workers int
		want    []pipeline.FrameRange
	}{
		{100, 4, []pipeline.FrameRange{fr(0, 25), fr(25, 50), fr(50, 75), fr(75, 100)}},
		{10, 3, []pipeline.FrameRange{fr(0, 3), fr(3, 6), fr(6, 10)}},
		{7, 1, []pipeline.FrameRange{fr(0, 7)}},
		{5, 5, []pipeline.FrameRange{fr(0, 1), fr(1, 2), fr(2, 3), fr(3, 4), fr(4, 5)}},
		{3, 5, []pipeline.FrameRange{fr(0, 0), fr(0, 0), fr(0, 0), fr(0, 0), fr(0, 3)}},
	}

	for _, tt := range tests {
		got, err := Partition(tt.total, tt.workers)
		if err != nil {
			t.Fatalf("Partition(%d, %d) failed: %v", tt.total, tt.workers, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Partition(%d, %d) = %v, want %v", tt.total, tt.workers, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Partition(%d, %d)[%d] = %v, want %v", tt.total, tt.workers, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPartition_CoversEveryFrameOnce(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for workers := 1; workers <= 12; workers++ {
			ranges, err := Partition(total, workers)
			if err != nil {
				t.Fatalf("Partition(%d, %d) failed: %v", total, workers, err)
			}

			size := total / workers
			next := 0
			sum := 0
			for i, r := range ranges {
				if r.Start != next {
					t.Fatalf("Partition(%d, %d): range %d starts at %d, want %d", total, workers, i, r.Start, next)
				}
				want := size
				if i == workers-1 {
					want = total - (workers-1)*size
				}
				if r.Len() != want {
					t.Fatalf("Partition(%d, %d): range %d has %d frames, want %d", total, workers, i, r.Len(), want)
				}
				next = r.End
				sum += r.Len()
			}
			if next != total || sum != total {
				t.Fatalf("Partition(%d, %d) covers %d frames ending at %d", total, workers, sum, next)
			}
		}
	}
}

func TestPartition_ConfigurationErrors(t *testing.T) {
	if _, err := Partition(0, 3); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero frames, got %v", err)
	}
	if _, err := Partition(10, 0); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero workers, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy(""); err != nil || s != StrategyParallel {
		t.Errorf("expected default parallel, got %q, %v", s, err)
	}
	if s, err := ParseStrategy("sequential"); err != nil || s != StrategySequential {
		t.Errorf("expected sequential, got %q, %v", s, err)
	}
	if _, err := ParseStrategy("random"); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestStage_Execute(t *testing.T) {
	stage := NewStage(processorFunc(echo), mocks.NewLogger(), Options{})

	result, err := stage.Execute(context.Background(), scheduleInput(10, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Results) != 3 || len(result.Stats) != 3 {
		t.Fatalf("expected 3 results, got %d/%d", len(result.Results), len(result.Stats))
	}
	if result.TotalFrames() != 10 {
		t.Errorf("expected 10 frames in total, got %d", result.TotalFrames())
	}
	if result.Stats[2].EmittedFrames != 4 {
		t.Errorf("expected last segment to absorb the remainder, got %+v", result.Stats[2])
	}
	if result.Results[1].Segment.OutputPath != "/work/segment_0001.mp4" {
		t.Errorf("unexpected output path %s", result.Results[1].Segment.OutputPath)
	}
}

func TestStage_ResultsOrderedWhenLastSegmentFinishesFirst(t *testing.T) {
	const workers = 4
	lastDone := make(chan struct{})

	var mu sync.Mutex
	var completion []int

	processor := processorFunc(func(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error) {
		if in.Segment.Index == workers-1 {
			defer close(lastDone)
		} else {
			select {
			case <-lastDone:
			case <-ctx.Done():
				return pipeline.SegmentResult{}, ctx.Err()
			}
		}
		mu.Lock()
		completion = append(completion, in.Segment.Index)
		mu.Unlock()
		return echo(ctx, in)
	})

	stage := NewStage(processor, mocks.NewLogger(), Options{})
	result, err := stage.Execute(context.Background(), scheduleInput(40, workers))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completion[0] != workers-1 {
		t.Fatalf("expected segment %d to finish first, got order %v", workers-1, completion)
	}
	for i, r := range result.Results {
		if r.Segment.Index != i {
			t.Fatalf("results not in index order: position %d holds segment %d", i, r.Segment.Index)
		}
	}
}

func TestStage_ClampsWorkersToFrameCount(t *testing.T) {
	log := mocks.NewLogger()
	stage := NewStage(processorFunc(echo), log, Options{})

	segments, err := stage.Segments(scheduleInput(3, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for _, seg := range segments {
		if seg.Range.Len() != 1 {
			t.Errorf("expected 1-frame segments, got %v", seg.Range)
		}
	}
	if !log.Contains(ports.LevelInfo, "clamped") {
		t.Error("expected the clamp to be logged")
	}
}

func TestStage_SequentialStrategy(t *testing.T) {
	stage := NewStage(processorFunc(echo), mocks.NewLogger(), Options{Strategy: StrategySequential})

	result, err := stage.Execute(context.Background(), scheduleInput(50, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected a single segment, got %d", len(result.Results))
	}
	if r := result.Results[0].Segment.Range; r.Start != 0 || r.End != 50 {
		t.Errorf("expected [0, 50), got %v", r)
	}
}

func TestStage_ConfigurationErrors(t *testing.T) {
	stage := NewStage(processorFunc(echo), mocks.NewLogger(), Options{})

	if _, err := stage.Execute(context.Background(), scheduleInput(10, 0)); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero workers, got %v", err)
	}
	if _, err := stage.Execute(context.Background(), scheduleInput(0, 2)); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero frames, got %v", err)
	}
	if _, err := stage.Run(context.Background(), pipeline.VideoSource{}, nil); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for no segments, got %v", err)
	}
}

func TestStage_FailureCancelsSiblings(t *testing.T) {
	var completed atomic.Int32

	processor := processorFunc(func(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error) {
		if in.Segment.Index == 1 {
			return pipeline.SegmentResult{}, fmt.Errorf("%w: corrupt packet", pipeline.ErrFrameRead)
		}
		select {
		case <-ctx.Done():
			return pipeline.SegmentResult{}, ctx.Err()
		case <-time.After(5 * time.Second):
			completed.Add(1)
			return echo(ctx, in)
		}
	})

	stage := NewStage(processor, mocks.NewLogger(), Options{})
	start := time.Now()
	result, err := stage.Execute(context.Background(), scheduleInput(40, 4))

	if !errors.Is(err, pipeline.ErrFrameRead) {
		t.Fatalf("expected ErrFrameRead, got %v", err)
	}
	if len(result.Results) != 0 {
		t.Error("expected no partial results")
	}
	if time.Since(start) > 4*time.Second {
		t.Error("siblings were not cancelled")
	}
	if completed.Load() != 0 {
		t.Errorf("expected no sibling to complete, %d did", completed.Load())
	}
}

func TestStage_SegmentTimeout(t *testing.T) {
	processor := processorFunc(func(ctx context.Context, in pipeline.SegmentInput) (pipeline.SegmentResult, error) {
		<-ctx.Done()
		return pipeline.SegmentResult{}, ctx.Err()
	})

	stage := NewStage(processor, mocks.NewLogger(), Options{SegmentTimeout: 20 * time.Millisecond})
	_, err := stage.Execute(context.Background(), scheduleInput(10, 2))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestStage_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stage := NewStage(processorFunc(echo), mocks.NewLogger(), Options{})
	if _, err := stage.Execute(ctx, scheduleInput(10, 2)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
