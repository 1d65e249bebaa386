package similarity

import "image"

const (
	ssimWindow = 8
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// Structural reports 1-SSIM computed on the luma of both frames over
// non-overlapping 8x8 windows. SSIM is clamped to [0, 1], so the result is
// in [0, 1] as well.
type Structural struct{}

// Name implements Metric.
func (Structural) Name() string { return MetricStructural }

// Difference implements Metric.
func (Structural) Difference(a, b image.Image) (float64, error) {
	if err := checkShape(a, b); err != nil {
		return 0, err
	}
	ga, gb := luma(asRGBA(a)), luma(asRGBA(b))
	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0, nil
	}

	var total float64
	windows := 0
	for y0 := 0; y0 < h; y0 += ssimWindow {
		for x0 := 0; x0 < w; x0 += ssimWindow {
			y1 := min(y0+ssimWindow, h)
			x1 := min(x0+ssimWindow, w)
			total += windowSSIM(ga, gb, w, x0, y0, x1, y1)
			windows++
		}
	}

	ssim := total / float64(windows)
	ssim = max(0, min(1, ssim))
	return 1 - ssim, nil
}

func windowSSIM(a, b []float64, stride, x0, y0, x1, y1 int) float64 {
	n := float64((x1 - x0) * (y1 - y0))

	var sumA, sumB float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sumA += a[y*stride+x]
			sumB += b[y*stride+x]
		}
	}
	meanA, meanB := sumA/n, sumB/n

	var varA, varB, cov float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			da := a[y*stride+x] - meanA
			db := b[y*stride+x] - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}

// luma converts to BT.601 grayscale, row-major with stride = width.
func luma(img *image.RGBA) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			out[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		}
	}
	return out
}
