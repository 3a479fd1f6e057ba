// Package geometry turns percent anchors into pixel paths for each palm line.
package geometry

import (
	"math"

	"palm-overlay-renderer/internal/mathutil"
)

// PathTracer receives path segments in pixels. Every drawing backend
// implements it.
type PathTracer interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
}

// SegKind is the kind of a path segment.
type SegKind int

const (
	SegMove SegKind = iota
	SegLine
	SegQuad
	SegCubic
)

// Segment is one path command. Pts holds, in order, the control points
// followed by the end point; unused slots are zero.
type Segment struct {
	Kind SegKind
	Pts  [3]mathutil.Vec2
}

// Path is a drawing recipe in pixel space. It may hold several subpaths.
type Path []Segment

// Move starts a new subpath.
func (p Path) Move(pt mathutil.Vec2) Path {
	return append(p, Segment{Kind: SegMove, Pts: [3]mathutil.Vec2{pt}})
}

// Line appends a straight segment.
func (p Path) Line(pt mathutil.Vec2) Path {
	return append(p, Segment{Kind: SegLine, Pts: [3]mathutil.Vec2{pt}})
}

// Quad appends a quadratic curve.
func (p Path) Quad(c, pt mathutil.Vec2) Path {
	return append(p, Segment{Kind: SegQuad, Pts: [3]mathutil.Vec2{c, pt}})
}

// Cubic appends a cubic curve.
func (p Path) Cubic(c1, c2, pt mathutil.Vec2) Path {
	return append(p, Segment{Kind: SegCubic, Pts: [3]mathutil.Vec2{c1, c2, pt}})
}

// Trace replays the path onto a tracer.
func (p Path) Trace(t PathTracer) {
	for _, s := range p {
		switch s.Kind {
		case SegMove:
			t.MoveTo(s.Pts[0].X, s.Pts[0].Y)
		case SegLine:
			t.LineTo(s.Pts[0].X, s.Pts[0].Y)
		case SegQuad:
			t.QuadTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y)
		case SegCubic:
			t.CubicTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y, s.Pts[2].X, s.Pts[2].Y)
		}
	}
}

// Flatten approximates the path with polylines, one per subpath. Each curve
// is sampled at the given number of steps.
func (p Path) Flatten(steps int) [][]mathutil.Vec2 {
	if steps < 1 {
		steps = 1
	}
	var out [][]mathutil.Vec2
	var cur []mathutil.Vec2
	var last mathutil.Vec2
	for _, s := range p {
		switch s.Kind {
		case SegMove:
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = []mathutil.Vec2{s.Pts[0]}
			last = s.Pts[0]
		case SegLine:
			cur = append(cur, s.Pts[0])
			last = s.Pts[0]
		case SegQuad:
			p0 := last
			for i := 1; i <= steps; i++ {
				cur = append(cur, mathutil.QuadAt(p0, s.Pts[0], s.Pts[1], float64(i)/float64(steps)))
			}
			last = s.Pts[1]
		case SegCubic:
			p0 := last
			for i := 1; i <= steps; i++ {
				cur = append(cur, mathutil.CubicAt(p0, s.Pts[0], s.Pts[1], s.Pts[2], float64(i)/float64(steps)))
			}
			last = s.Pts[2]
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Distance returns the smallest distance from pt to the path.
func Distance(p Path, pt mathutil.Vec2) float64 {
	best := math.Inf(1)
	for _, poly := range p.Flatten(24) {
		if d := mathutil.PolylineDist(pt, poly); d < best {
			best = d
		}
	}
	return best
}
