// Package svgout draws overlay frames as SVG documents.
package svgout

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/raster"
	"palm-overlay-renderer/internal/surface"
)

// Surface is a surface.Surface that writes SVG elements. Paths are kept
// as a "d" attribute and emitted on every Stroke or Fill.
type Surface struct {
	canvas *svg.SVG
	w, h   int
	d      strings.Builder
	fonts  *raster.Fonts
	faces  map[float64]font.Face
	groups []int
}

var _ surface.Surface = (*Surface)(nil)

// NewSurface starts a w×h SVG document on out. Call End to close it.
func NewSurface(out io.Writer, w, h int, fonts *raster.Fonts) *Surface {
	if fonts == nil {
		fonts = raster.DefaultFonts()
	}
	s := &Surface{
		canvas: svg.New(out),
		w:      w,
		h:      h,
		fonts:  fonts,
		faces:  make(map[float64]font.Face),
		groups: []int{0},
	}
	s.canvas.Start(w, h)
	return s
}

// End closes any open groups and the document.
func (s *Surface) End() {
	for len(s.groups) > 1 {
		s.Pop()
	}
	for i := 0; i < s.groups[0]; i++ {
		s.canvas.Gend()
	}
	s.groups[0] = 0
	s.canvas.End()
}

func (s *Surface) Size() (int, int) { return s.w, s.h }

func (s *Surface) MoveTo(x, y float64) { fmt.Fprintf(&s.d, "M%s %s ", num(x), num(y)) }
func (s *Surface) LineTo(x, y float64) { fmt.Fprintf(&s.d, "L%s %s ", num(x), num(y)) }

func (s *Surface) QuadTo(cx, cy, x, y float64) {
	fmt.Fprintf(&s.d, "Q%s %s %s %s ", num(cx), num(cy), num(x), num(y))
}

func (s *Surface) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	fmt.Fprintf(&s.d, "C%s %s %s %s %s %s ", num(c1x), num(c1y), num(c2x), num(c2y), num(x), num(y))
}

func (s *Surface) BeginPath() { s.d.Reset() }
func (s *Surface) ClosePath() { s.d.WriteString("Z ") }

func (s *Surface) Ellipse(cx, cy, rx, ry float64) {
	s.MoveTo(cx-rx, cy)
	fmt.Fprintf(&s.d, "A%s %s 0 1 0 %s %s ", num(rx), num(ry), num(cx+rx), num(cy))
	fmt.Fprintf(&s.d, "A%s %s 0 1 0 %s %s ", num(rx), num(ry), num(cx-rx), num(cy))
	s.ClosePath()
}

func (s *Surface) RoundRect(x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	arc := func(ex, ey float64) {
		fmt.Fprintf(&s.d, "A%s %s 0 0 1 %s %s ", num(r), num(r), num(ex), num(ey))
	}
	s.MoveTo(x+r, y)
	s.LineTo(x+w-r, y)
	arc(x+w, y+r)
	s.LineTo(x+w, y+h-r)
	arc(x+w-r, y+h)
	s.LineTo(x+r, y+h)
	arc(x, y+h-r)
	s.LineTo(x, y+r)
	arc(x+r, y)
	s.ClosePath()
}

func (s *Surface) path() string { return strings.TrimSpace(s.d.String()) }

func (s *Surface) Stroke(st surface.Stroke) {
	if s.d.Len() == 0 {
		return
	}
	s.canvas.Path(s.path(), fmt.Sprintf(
		"fill:none;stroke:%s;stroke-opacity:%s;stroke-width:%s;stroke-linecap:round;stroke-linejoin:round",
		rgb(st.Color), alpha(st.Color), num(st.Width)))
}

func (s *Surface) Fill(c color.NRGBA) {
	if s.d.Len() == 0 {
		return
	}
	s.canvas.Path(s.path(), fmt.Sprintf("fill:%s;fill-opacity:%s;stroke:none", rgb(c), alpha(c)))
}

// Image embeds img as a PNG data URI stretched over the canvas.
func (s *Surface) Image(img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	s.canvas.Image(0, 0, s.w, s.h, uri, `preserveAspectRatio="none"`)
}

func (s *Surface) Text(str string, x, y, size float64, c color.NRGBA, anchor surface.Anchor) {
	ta := "middle"
	if anchor == surface.AnchorLeft {
		ta = "start"
	}
	s.canvas.Text(int(math.Round(x)), int(math.Round(y)), str, fmt.Sprintf(
		"font-family:Go,sans-serif;font-size:%spx;fill:%s;fill-opacity:%s;text-anchor:%s;dominant-baseline:central",
		num(size), rgb(c), alpha(c), ta))
}

// MeasureText uses the raster font so layouts match the bitmap output.
func (s *Surface) MeasureText(str string, size float64) (float64, float64) {
	f, ok := s.faces[size]
	if !ok {
		f = s.fonts.NewFace(size)
		s.faces[size] = f
	}
	adv := font.MeasureString(f, str)
	return float64(adv) / 64, size * 72 / 96
}

func (s *Surface) Push() { s.groups = append(s.groups, 0) }

func (s *Surface) Pop() {
	n := len(s.groups)
	if n == 1 {
		return
	}
	for i := 0; i < s.groups[n-1]; i++ {
		s.canvas.Gend()
	}
	s.groups = s.groups[:n-1]
}

func (s *Surface) Zoom(f, cx, cy float64) {
	s.canvas.Gtransform(fmt.Sprintf("translate(%s,%s) scale(%s) translate(%s,%s)",
		num(cx), num(cy), num(f), num(-cx), num(-cy)))
	s.groups[len(s.groups)-1]++
}

// Render writes sc as a complete w×h SVG document.
func Render(out io.Writer, sc compositor.Scene, w, h int, fonts *raster.Fonts) error {
	var buf bytes.Buffer
	s := NewSurface(&buf, w, h, fonts)
	compositor.Compose(s, sc)
	s.End()
	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("svgout: write: %w", err)
	}
	return nil
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func rgb(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func alpha(c color.NRGBA) string {
	return num(float64(c.A) / 255)
}
