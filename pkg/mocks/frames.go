package mocks

import (
	"image"
	"image/color"
)

// SolidFrame returns a w×h frame filled with c.
func SolidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// RepeatedFrames returns n references to the same solid frame.
func RepeatedFrames(n, w, h int, c color.RGBA) []image.Image {
	frame := SolidFrame(w, h, c)
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

// AlternatingFrames returns n frames switching between black and white.
func AlternatingFrames(n, w, h int) []image.Image {
	black := SolidFrame(w, h, color.RGBA{A: 255})
	white := SolidFrame(w, h, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	frames := make([]image.Image, n)
	for i := range frames {
		if i%2 == 0 {
			frames[i] = black
		} else {
			frames[i] = white
		}
	}
	return frames
}

// GradualFrames returns n solid gray frames whose level increases by step per frame.
func GradualFrames(n, w, h, step int) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		v := uint8((i * step) % 256)
		frames[i] = SolidFrame(w, h, color.RGBA{R: v, G: v, B: v, A: 255})
	}
	return frames
}
