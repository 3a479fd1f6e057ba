package surface

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Recorder is a Surface that keeps a textual log of every call. It is used
// by tests and by `inspect` to show what a frame would draw.
type Recorder struct {
	W, H int
	Ops  []string
}

// NewRecorder returns a recorder for a w×h canvas.
func NewRecorder(w, h int) *Recorder {
	return &Recorder{W: w, H: h}
}

func (r *Recorder) add(format string, args ...any) {
	r.Ops = append(r.Ops, fmt.Sprintf(format, args...))
}

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) MoveTo(x, y float64) { r.add("move %.2f %.2f", x, y) }
func (r *Recorder) LineTo(x, y float64) { r.add("line %.2f %.2f", x, y) }

func (r *Recorder) QuadTo(cx, cy, x, y float64) {
	r.add("quad %.2f %.2f %.2f %.2f", cx, cy, x, y)
}

func (r *Recorder) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.add("cubic %.2f %.2f %.2f %.2f %.2f %.2f", c1x, c1y, c2x, c2y, x, y)
}

func (r *Recorder) BeginPath() { r.add("begin") }
func (r *Recorder) ClosePath() { r.add("close") }

func (r *Recorder) Ellipse(cx, cy, rx, ry float64) {
	r.add("ellipse %.2f %.2f %.2f %.2f", cx, cy, rx, ry)
}

func (r *Recorder) RoundRect(x, y, w, h, rad float64) {
	r.add("roundrect %.2f %.2f %.2f %.2f %.2f", x, y, w, h, rad)
}

func (r *Recorder) Stroke(s Stroke) {
	r.add("stroke %s %.2f", hex(s.Color), s.Width)
}

func (r *Recorder) Fill(c color.NRGBA) { r.add("fill %s", hex(c)) }

func (r *Recorder) Image(img image.Image) {
	b := img.Bounds()
	r.add("image %dx%d", b.Dx(), b.Dy())
}

func (r *Recorder) Text(s string, x, y, size float64, c color.NRGBA, anchor Anchor) {
	r.add("text %q %.2f %.2f %.1f %s %d", s, x, y, size, hex(c), anchor)
}

// MeasureText approximates a proportional font.
func (r *Recorder) MeasureText(s string, size float64) (float64, float64) {
	return 0.6 * size * float64(len([]rune(s))), size
}

func (r *Recorder) Push() { r.add("push") }
func (r *Recorder) Pop()  { r.add("pop") }

func (r *Recorder) Zoom(f, cx, cy float64) { r.add("zoom %.2f %.2f %.2f", f, cx, cy) }

// Count returns how many ops start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, op := range r.Ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// Texts returns the strings passed to Text, in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if !strings.HasPrefix(op, "text ") {
			continue
		}
		var s string
		if _, err := fmt.Sscanf(op[len("text "):], "%q", &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
