// Package scheduler partitions a source into segments and runs one
// deduplication task per segment on a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

// Strategy selects how segments are formed and executed.
type Strategy string

const (
	// StrategyParallel splits the source into one segment per worker.
	StrategyParallel Strategy = "parallel"
	// StrategySequential processes the whole source as a single segment.
	StrategySequential Strategy = "sequential"
)

// ParseStrategy validates a strategy name. An empty name selects StrategyParallel.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyParallel:
		return StrategyParallel, nil
	case StrategySequential:
		return StrategySequential, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", pipeline.ErrConfiguration, s)
	}
}

// Partition splits [0, total) into workers contiguous ranges.
// Every range but the last has total/workers frames; the last one absorbs the remainder.
func Partition(total, workers int) ([]pipeline.FrameRange, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", pipeline.ErrConfiguration, workers)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: source has no frames", pipeline.ErrConfiguration)
	}

	size := total / workers
	ranges := make([]pipeline.FrameRange, workers)
	for i := 0; i < workers-1; i++ {
		ranges[i] = pipeline.FrameRange{Start: i * size, End: (i + 1) * size}
	}
	ranges[workers-1] = pipeline.FrameRange{Start: (workers - 1) * size, End: total}
	return ranges, nil
}

// Options configures a Stage.
type Options struct {
	Strategy Strategy
	// SegmentTimeout bounds each segment task. Zero means no limit.
	SegmentTimeout time.Duration
}

// Stage dispatches segment tasks and waits for all of them.
type Stage struct {
	processor pipeline.Stage[pipeline.SegmentInput, pipeline.SegmentResult]
	logger    ports.Logger
	opts      Options
}

// NewStage creates a new scheduling stage around a segment processor.
func NewStage(processor pipeline.Stage[pipeline.SegmentInput, pipeline.SegmentResult], logger ports.Logger, opts Options) *Stage {
	if opts.Strategy == "" {
		opts.Strategy = StrategyParallel
	}
	return &Stage{
		processor: processor,
		logger:    logger.WithComponent("scheduler"),
		opts:      opts,
	}
}

// Segments computes the segments Execute would dispatch for input.
func (s *Stage) Segments(input pipeline.ScheduleInput) ([]pipeline.Segment, error) {
	if input.Workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", pipeline.ErrConfiguration, input.Workers)
	}
	total := input.Source.FrameCount
	if total <= 0 {
		return nil, fmt.Errorf("%w: source has no frames", pipeline.ErrConfiguration)
	}

	workers := input.Workers
	if s.opts.Strategy == StrategySequential {
		workers = 1
	}
	if workers > total {
		s.logger.Info("Worker count clamped from %d to %d (source has %d frames)", workers, total, total)
		workers = total
	}

	ranges, err := Partition(total, workers)
	if err != nil {
		return nil, err
	}

	segments := make([]pipeline.Segment, len(ranges))
	for i, r := range ranges {
		segments[i] = pipeline.Segment{Index: i, Range: r}
		if input.OutputPath != nil {
			segments[i].OutputPath = input.OutputPath(i)
		}
	}
	return segments, nil
}

// Execute partitions input and runs every segment.
func (s *Stage) Execute(ctx context.Context, input pipeline.ScheduleInput) (pipeline.ScheduleResult, error) {
	segments, err := s.Segments(input)
	if err != nil {
		return pipeline.ScheduleResult{}, err
	}
	return s.Run(ctx, input.Source, segments)
}

// Run dispatches one task per segment and blocks until all of them have finished.
// On the first failure the remaining tasks are cancelled and no result is returned.
func (s *Stage) Run(ctx context.Context, source pipeline.VideoSource, segments []pipeline.Segment) (pipeline.ScheduleResult, error) {
	if len(segments) == 0 {
		return pipeline.ScheduleResult{}, fmt.Errorf("%w: no segments to process", pipeline.ErrConfiguration)
	}

	s.logger.Info("Processing %d segments (%s)", len(segments), s.opts.Strategy)

	results := make(chan pipeline.SegmentResult, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(segments))

	for _, seg := range segments {
		seg := seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			taskCtx := gctx
			if s.opts.SegmentTimeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(gctx, s.opts.SegmentTimeout)
				defer cancel()
			}

			r, err := s.processor.Execute(taskCtx, pipeline.SegmentInput{Source: source, Segment: seg})
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			results <- r
			return nil
		})
	}

	err := g.Wait()
	close(results)
	if err != nil {
		s.logger.Error("Segment processing failed: %v", err)
		return pipeline.ScheduleResult{}, err
	}

	collected := make([]pipeline.SegmentResult, 0, len(segments))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Segment.Index < collected[j].Segment.Index
	})

	out := pipeline.ScheduleResult{
		Results: collected,
		Stats:   make(map[int]pipeline.SegmentStats, len(collected)),
	}
	for _, r := range collected {
		out.Stats[r.Segment.Index] = r.Stats
	}

	s.logger.Debug("All %d segments finished: %d frames, %d unique", len(collected), out.TotalFrames(), out.UniqueFrames())
	return out, nil
}
