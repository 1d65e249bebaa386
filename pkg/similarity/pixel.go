package similarity

import "image"

// PixelDifference is the mean absolute difference of the R, G and B channels
// over every pixel, in the range [0, 255]. Alpha is ignored.
type PixelDifference struct{}

// Name implements Metric.
func (PixelDifference) Name() string { return MetricPixel }

// Difference implements Metric.
func (PixelDifference) Difference(a, b image.Image) (float64, error) {
	if err := checkShape(a, b); err != nil {
		return 0, err
	}
	ra, rb := asRGBA(a), asRGBA(b)
	w, h := ra.Rect.Dx(), ra.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, nil
	}

	var sum uint64
	for y := 0; y < h; y++ {
		pa := ra.Pix[y*ra.Stride : y*ra.Stride+w*4]
		pb := rb.Pix[y*rb.Stride : y*rb.Stride+w*4]
		for i := 0; i < len(pa); i += 4 {
			sum += absDiff(pa[i], pb[i]) + absDiff(pa[i+1], pb[i+1]) + absDiff(pa[i+2], pb[i+2])
		}
	}
	return float64(sum) / float64(w*h*3), nil
}

func absDiff(x, y uint8) uint64 {
	if x > y {
		return uint64(x - y)
	}
	return uint64(y - x)
}
