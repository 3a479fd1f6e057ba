// Package surface is the minimal vector drawing interface the compositor
// draws onto. Backends live in raster (bitmap) and svgout (SVG); Recorder
// captures calls for tests.
package surface

import (
	"image"
	"image/color"

	"palm-overlay-renderer/internal/geometry"
)

// Anchor positions text relative to its point.
type Anchor int

const (
	AnchorCenter Anchor = iota
	AnchorLeft
)

// Stroke describes how the current path is outlined.
type Stroke struct {
	Color color.NRGBA
	Width float64
}

// Surface is a 2D drawing target. Path building follows the canvas model:
// BeginPath clears the current path, the PathTracer methods and shape helpers
// append to it, and Stroke or Fill paint it without clearing it.
type Surface interface {
	geometry.PathTracer

	Size() (w, h int)

	BeginPath()
	ClosePath()
	Ellipse(cx, cy, rx, ry float64)
	RoundRect(x, y, w, h, r float64)
	Stroke(s Stroke)
	Fill(c color.NRGBA)

	// Image stretches img over the whole surface.
	Image(img image.Image)
	// Text draws s vertically centred on y.
	Text(s string, x, y, size float64, c color.NRGBA, anchor Anchor)
	// MeasureText returns the advance width and height of s at size.
	MeasureText(s string, size float64) (w, h float64)

	// Push saves the transform, Pop restores it.
	Push()
	Pop()
	// Zoom scales subsequent drawing by f about (cx, cy).
	Zoom(f, cx, cy float64)
}

// WithAlpha returns c with its alpha multiplied by a.
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(float64(c.A)*a + 0.5)
	return c
}
