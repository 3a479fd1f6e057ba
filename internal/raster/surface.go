// Package raster draws overlay frames into bitmaps with gg and encodes them
// as PNG or WebP.
package raster

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"palm-overlay-renderer/internal/postprocess"
	"palm-overlay-renderer/internal/surface"
)

// Surface is a surface.Surface backed by a gg context. gg does not scale
// line widths or glyphs with its transform, so Surface tracks the zoom
// factor itself and applies it to both.
type Surface struct {
	dc     *gg.Context
	faces  *faceCache
	scale  float64
	scales []float64
}

var _ surface.Surface = (*Surface)(nil)

// NewSurface returns a transparent w×h surface.
func NewSurface(w, h int, fonts *Fonts) *Surface {
	dc := gg.NewContext(w, h)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	return &Surface{dc: dc, faces: newFaceCache(fonts), scale: 1}
}

func (s *Surface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *Surface) MoveTo(x, y float64) { s.dc.MoveTo(x, y) }
func (s *Surface) LineTo(x, y float64) { s.dc.LineTo(x, y) }

func (s *Surface) QuadTo(cx, cy, x, y float64) { s.dc.QuadraticTo(cx, cy, x, y) }

func (s *Surface) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	s.dc.CubicTo(c1x, c1y, c2x, c2y, x, y)
}

func (s *Surface) BeginPath() { s.dc.ClearPath() }
func (s *Surface) ClosePath() { s.dc.ClosePath() }

func (s *Surface) Ellipse(cx, cy, rx, ry float64) { s.dc.DrawEllipse(cx, cy, rx, ry) }

func (s *Surface) RoundRect(x, y, w, h, r float64) { s.dc.DrawRoundedRectangle(x, y, w, h, r) }

func (s *Surface) Stroke(st surface.Stroke) {
	s.dc.SetColor(st.Color)
	s.dc.SetLineWidth(st.Width * s.scale)
	s.dc.StrokePreserve()
}

func (s *Surface) Fill(c color.NRGBA) {
	s.dc.SetColor(c)
	s.dc.FillPreserve()
}

func (s *Surface) Image(img image.Image) {
	w, h := s.Size()
	s.dc.DrawImage(postprocess.Fit(img, w, h), 0, 0)
}

func (s *Surface) Text(str string, x, y, size float64, c color.NRGBA, anchor surface.Anchor) {
	s.dc.SetFontFace(s.faces.face(size * s.scale))
	s.dc.SetColor(c)
	// Glyphs are not transformed, only their anchor point.
	ax := 0.5
	if anchor == surface.AnchorLeft {
		ax = 0
	}
	s.dc.DrawStringAnchored(str, x, y, ax, 0.5)
}

// MeasureText reports the size in untransformed units.
func (s *Surface) MeasureText(str string, size float64) (float64, float64) {
	s.dc.SetFontFace(s.faces.face(size))
	return s.dc.MeasureString(str)
}

func (s *Surface) Push() {
	s.dc.Push()
	s.scales = append(s.scales, s.scale)
}

func (s *Surface) Pop() {
	s.dc.Pop()
	if n := len(s.scales); n > 0 {
		s.scale = s.scales[n-1]
		s.scales = s.scales[:n-1]
	}
}

func (s *Surface) Zoom(f, cx, cy float64) {
	s.dc.ScaleAbout(f, f, cx, cy)
	s.scale *= f
}

// Frame returns the drawn pixels.
func (s *Surface) Frame() *image.NRGBA {
	return postprocess.ToNRGBA(s.dc.Image())
}
