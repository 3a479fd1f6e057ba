package mathutil

import "math"

// QuadAt evaluates a quadratic Bézier at t.
func QuadAt(p0, c, p1 Vec2, t float64) Vec2 {
	u := 1 - t
	return Vec2{
		u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
		u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
	}
}

// CubicAt evaluates a cubic Bézier at t.
func CubicAt(p0, c1, c2, p1 Vec2, t float64) Vec2 {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Vec2{
		a*p0.X + b*c1.X + c*c2.X + d*p1.X,
		a*p0.Y + b*c1.Y + c*c2.Y + d*p1.Y,
	}
}

// SegmentDist returns the distance from p to the segment ab.
func SegmentDist(p, a, b Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < 1e-12 {
		return p.Dist(a)
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return p.Dist(a.Add(ab.Scale(t)))
}

// PolylineDist returns the smallest distance from p to a polyline.
// An empty polyline is infinitely far away.
func PolylineDist(p Vec2, pts []Vec2) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Dist(pts[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		if d := SegmentDist(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}
