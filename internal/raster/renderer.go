package raster

import (
	"image"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/postprocess"
)

// Renderer composes scenes into bitmaps. Fonts may be shared between
// renderers; a Renderer itself may be used from several goroutines since
// every call builds its own surface.
type Renderer struct {
	Fonts       *Fonts
	Supersample int
}

// NewRenderer returns a renderer with the embedded font when fonts is nil.
func NewRenderer(fonts *Fonts, supersample int) *Renderer {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	if supersample < 1 {
		supersample = 1
	}
	return &Renderer{Fonts: fonts, Supersample: supersample}
}

// Render draws sc at w×h. With supersampling the scene is drawn at a
// multiple of the size and filtered down.
func (r *Renderer) Render(sc compositor.Scene, w, h int) *image.NRGBA {
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	ss := r.Supersample
	if ss < 1 {
		ss = 1
	}
	s := NewSurface(w*ss, h*ss, r.Fonts)
	compositor.Compose(s, sc)
	frame := s.Frame()
	if ss == 1 {
		return frame
	}
	return postprocess.Downsample(frame, w, h)
}
