// Package compositor draws one frame of the palm overlay onto a surface:
// background, mounts, line glow and strokes, labels and badges.
package compositor

import (
	"fmt"
	"image"
	"math"

	"palm-overlay-renderer/internal/geometry"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/surface"
)

// Options are the user facing display settings.
type Options struct {
	ShowLabels     bool    `json:"showLabels" yaml:"show_labels"`
	ShowDepth      bool    `json:"showDepth" yaml:"show_depth"`
	ShowConfidence bool    `json:"showConfidence" yaml:"show_confidence"`
	ShowMounts     bool    `json:"showMounts" yaml:"show_mounts"`
	Opacity        float64 `json:"opacity" yaml:"opacity"`
	Zoom           float64 `json:"zoom" yaml:"zoom"`
}

// Option limits.
const (
	MinOpacity = 0.2
	MaxOpacity = 1.0
	MinZoom    = 0.5
	MaxZoom    = 2.0
)

// DefaultOptions returns the display defaults.
func DefaultOptions() Options {
	return Options{
		ShowLabels:     true,
		ShowDepth:      false,
		ShowConfidence: true,
		ShowMounts:     true,
		Opacity:        0.8,
		Zoom:           1.0,
	}
}

// Clamped returns o with opacity and zoom inside their ranges.
func (o Options) Clamped() Options {
	o.Opacity = math.Max(MinOpacity, math.Min(MaxOpacity, o.Opacity))
	o.Zoom = math.Max(MinZoom, math.Min(MaxZoom, o.Zoom))
	return o
}

// LineState is a line plus its reveal progress in [0,100].
type LineState struct {
	Line     palm.PalmLine
	Progress float64
}

// Scene is everything one frame depends on.
type Scene struct {
	Photo     image.Image // nil draws the placeholder
	Lines     []LineState
	Mounts    []palm.Mount
	Options   Options
	Animating bool
	Hovered   palm.LineID
}

// Compose draws the scene onto s. The output depends only on the scene and
// the surface size.
func Compose(s surface.Surface, sc Scene) {
	iw, ih := s.Size()
	w, h := float64(iw), float64(ih)
	unit := math.Min(w, h) / 400
	opts := sc.Options.Clamped()

	s.Push()
	s.Zoom(opts.Zoom, w/2, h/2)

	drawBackground(s, sc.Photo, w, h, unit)

	if opts.ShowMounts {
		for _, m := range sc.Mounts {
			drawMount(s, m, opts, w, h, unit)
		}
	}

	for _, ls := range sc.Lines {
		if !ls.Line.Visible {
			continue
		}
		path := LinePath(ls, sc.Animating, w, h)
		if len(path) == 0 {
			continue
		}
		drawLine(s, path, ls.Line, sc.Hovered == ls.Line.ID, opts.Opacity, unit)
	}

	if opts.ShowLabels {
		for _, ls := range sc.Lines {
			if !ls.Line.Visible || !revealed(ls, sc.Animating) {
				continue
			}
			drawLabel(s, ls.Line, opts, w, h, unit)
		}
	}

	s.Pop()
}

// revealed reports whether a line is fully drawn: always when no animation
// runs, otherwise once its progress reaches 100.
func revealed(ls LineState, animating bool) bool {
	return !animating || ls.Progress >= 100
}

// LinePath is the path a line is drawn with. Mid-reveal it is the straight
// reveal segment; a line waiting at zero progress gets nil.
func LinePath(ls LineState, animating bool, w, h float64) geometry.Path {
	a := geometry.Resolve(ls.Line.Anchor, w, h)
	if revealed(ls, animating) {
		return geometry.PathFor(ls.Line.ID, a, ls.Line.Anchor.CurveIntensity, w, h)
	}
	return geometry.RevealPath(a, ls.Progress)
}

func drawBackground(s surface.Surface, photo image.Image, w, h, unit float64) {
	if photo != nil {
		s.Image(photo)
		return
	}
	s.BeginPath()
	s.MoveTo(0, 0)
	s.LineTo(w, 0)
	s.LineTo(w, h)
	s.LineTo(0, h)
	s.ClosePath()
	s.Fill(placeholderFill)

	s.BeginPath()
	s.Ellipse(w/2, h*0.55, w*0.34, h*0.38)
	s.Stroke(surface.Stroke{Color: placeholderOutline, Width: 2 * unit})
}

func drawMount(s surface.Surface, m palm.Mount, opts Options, w, h, unit float64) {
	c := geometry.MountCenter(m, w, h)
	r := geometry.MountRadius(w, h)
	fill, stroke := MountColors(m.Strength)

	s.BeginPath()
	s.Ellipse(c.X, c.Y, r, r)
	s.Fill(surface.WithAlpha(fill, opts.Opacity))
	s.Stroke(surface.Stroke{Color: surface.WithAlpha(stroke, opts.Opacity), Width: 1.5 * unit})

	if opts.ShowLabels {
		s.Text(m.Name, c.X, c.Y, mountSize*unit, surface.WithAlpha(stroke, opts.Opacity), surface.AnchorCenter)
	}
}

// glowPasses approximate a blurred halo with widening, fading strokes.
var glowPasses = [...]struct{ widthMul, alpha float64 }{
	{4, 0.06},
	{3, 0.10},
	{2, 0.16},
}

func drawLine(s surface.Surface, path geometry.Path, l palm.PalmLine, hovered bool, opacity, unit float64) {
	width := StrokeWidth(l.Depth, hovered) * unit

	s.BeginPath()
	path.Trace(s)
	for _, g := range glowPasses {
		s.Stroke(surface.Stroke{Color: surface.WithAlpha(l.Color, g.alpha*opacity), Width: width * g.widthMul})
	}
	s.Stroke(surface.Stroke{Color: surface.WithAlpha(l.Color, 0.45*opacity), Width: width + 2*unit})
	s.Stroke(surface.Stroke{Color: surface.WithAlpha(l.Color, opacity), Width: width})
}

func drawLabel(s surface.Surface, l palm.PalmLine, opts Options, w, h, unit float64) {
	p := geometry.LabelPoint(l.ID, w, h)
	text := l.Label()
	size := labelSize * unit
	tw, th := s.MeasureText(text, size)
	pad := 5 * unit

	pill(s, p.X, p.Y, tw, th, pad, l, opts.Opacity, unit)
	s.Text(text, p.X, p.Y, size, surface.WithAlpha(labelText, opts.Opacity), surface.AnchorCenter)

	by := p.Y + th + 2*pad
	switch {
	case opts.ShowDepth:
		c := DepthColor(l.Depth)
		label := l.Depth.Label()
		bw, _ := s.MeasureText(label, badgeSize*unit)
		dotR := 3 * unit
		dotX := p.X - bw/2 - dotR - 2*unit
		s.BeginPath()
		s.Ellipse(dotX, by, dotR, dotR)
		s.Fill(surface.WithAlpha(c, opts.Opacity))
		s.Text(label, p.X, by, badgeSize*unit, surface.WithAlpha(c, opts.Opacity), surface.AnchorCenter)

	case opts.ShowConfidence && l.Confidence > 0:
		label := fmt.Sprintf("%d%%", int(math.Round(l.Confidence*100)))
		bw, bh := s.MeasureText(label, badgeSize*unit)
		pill(s, p.X, by, bw, bh, 3*unit, l, opts.Opacity, unit)
		s.Text(label, p.X, by, badgeSize*unit, surface.WithAlpha(l.Color, opts.Opacity), surface.AnchorCenter)
	}
}

// pill draws a rounded background centred on (x, y) around text of tw×th.
func pill(s surface.Surface, x, y, tw, th, pad float64, l palm.PalmLine, opacity, unit float64) {
	pw, ph := tw+2*pad, th+pad
	s.BeginPath()
	s.RoundRect(x-pw/2, y-ph/2, pw, ph, ph/2)
	s.Fill(surface.WithAlpha(pillBackground, opacity))
	s.Stroke(surface.Stroke{Color: surface.WithAlpha(l.Color, opacity), Width: unit})
}
