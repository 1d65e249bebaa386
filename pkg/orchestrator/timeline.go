package orchestrator

import (
	"fmt"
	"image"
	"image/color"

	"github.com/user/framededup/pkg/pipeline"
	"github.com/user/framededup/pkg/ports"
)

// Timeline geometry.
const (
	timelineMaxWidth = 1600
	timelineHeight   = 72
	timelineLabelY   = 12
	timelineBarTop   = 24
)

var (
	timelineBackground = color.RGBA{R: 26, G: 26, B: 46, A: 255}
	timelineBands      = [2]color.RGBA{{R: 51, G: 51, B: 85, A: 255}, {R: 68, G: 68, B: 102, A: 255}}
	timelineKept       = color.RGBA{R: 74, G: 222, B: 128, A: 255}
	timelineBoundary   = color.RGBA{R: 248, G: 113, B: 113, A: 255}
	timelineText       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RenderTimeline draws an overview of a run: one band per segment, a marker
// for every representative frame and a line at each segment boundary.
// Frames are scaled onto at most timelineMaxWidth pixels.
func RenderTimeline(renderer ports.Renderer, totalFrames int, segments []pipeline.SegmentResult) image.Image {
	width := totalFrames
	if width > timelineMaxWidth {
		width = timelineMaxWidth
	}
	if width < 1 {
		width = 1
	}
	canvas := renderer.CreateCanvas(width, timelineHeight, timelineBackground)

	x := func(frame int) int {
		if totalFrames <= 0 {
			return 0
		}
		return frame * width / totalFrames
	}
	barHeight := timelineHeight - timelineBarTop

	for _, seg := range segments {
		r := seg.Segment.Range
		x0, x1 := x(r.Start), x(r.End)
		if x1 <= x0 {
			x1 = x0 + 1
		}
		canvas.DrawRect(x0, timelineBarTop, x1-x0, barHeight, timelineBands[seg.Segment.Index%2])

		for _, frame := range seg.Representatives {
			canvas.DrawRect(x(frame), timelineBarTop, 1, barHeight, timelineKept)
		}

		if seg.Segment.Index > 0 {
			canvas.DrawLine(x0, 0, x0, timelineHeight, timelineBoundary, 1)
		}
		canvas.DrawText(fmt.Sprintf("#%d %d/%d", seg.Segment.Index, seg.Stats.UniqueFrames, seg.Stats.EmittedFrames), x0+2, timelineLabelY, ports.TextStyle{
			FontSize: 10,
			Color:    timelineText,
			Align:    ports.AlignLeft,
		})
	}

	return canvas.ToImage()
}
