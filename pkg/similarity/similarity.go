// Package similarity compares decoded video frames.
//
// Every metric follows the same polarity: Difference returns a value >= 0
// where smaller means more alike, and two frames are similar when
// Difference < threshold. The structural metric reports 1-SSIM so that it
// obeys this rule.
package similarity

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

var (
	// ErrShapeMismatch is returned when two frames do not have the same dimensions.
	ErrShapeMismatch = errors.New("similarity: frame shapes differ")

	// ErrUnknownMetric is returned for an unrecognized metric name.
	ErrUnknownMetric = errors.New("similarity: unknown metric")

	// ErrInvalidThreshold is returned for a threshold that is not positive.
	ErrInvalidThreshold = errors.New("similarity: threshold must be positive")
)

// Metric names accepted by New.
const (
	MetricPixel      = "pixel"
	MetricStructural = "ssim"
)

// Metric computes a scalar difference between two frames of equal shape.
type Metric interface {
	// Name returns the metric name as accepted by New.
	Name() string

	// Difference returns a value >= 0; 0 means identical.
	Difference(a, b image.Image) (float64, error)
}

// New returns the metric registered under name.
func New(name string) (Metric, error) {
	switch name {
	case MetricPixel, "":
		return PixelDifference{}, nil
	case MetricStructural:
		return Structural{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// DefaultThreshold returns the threshold used when none is configured.
func DefaultThreshold(name string) float64 {
	if name == MetricStructural {
		return 0.05
	}
	return 30
}

// Score is a difference together with the threshold used to interpret it.
type Score struct {
	Difference float64
	Threshold  float64
}

// Similar reports whether Difference is strictly below Threshold.
func (s Score) Similar() bool {
	return s.Difference < s.Threshold
}

// Engine binds a metric to a threshold. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	metric    Metric
	threshold float64
}

// NewEngine creates an engine. threshold must be > 0.
func NewEngine(metric Metric, threshold float64) (*Engine, error) {
	if metric == nil {
		return nil, fmt.Errorf("%w: nil metric", ErrUnknownMetric)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Engine{metric: metric, threshold: threshold}, nil
}

// Metric returns the engine's metric.
func (e *Engine) Metric() Metric {
	return e.metric
}

// Threshold returns the engine's threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Compare scores a pair of frames.
func (e *Engine) Compare(a, b image.Image) (Score, error) {
	d, err := e.metric.Difference(a, b)
	if err != nil {
		return Score{}, err
	}
	return Score{Difference: d, Threshold: e.threshold}, nil
}

// IsSimilar reports whether a and b are interchangeable under the engine threshold.
func (e *Engine) IsSimilar(a, b image.Image) (bool, error) {
	s, err := e.Compare(a, b)
	if err != nil {
		return false, err
	}
	return s.Similar(), nil
}

func checkShape(a, b image.Image) error {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}
	return nil
}

// asRGBA returns img as an *image.RGBA whose bounds start at (0,0).
// Frames from the ffmpeg reader already satisfy this and are not copied.
func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
