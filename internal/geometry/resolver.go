package geometry

import (
	"math"

	"palm-overlay-renderer/internal/mathutil"
	"palm-overlay-renderer/internal/palm"
)

// Anchors are the pixel start and end of a line.
type Anchors struct {
	Start, End mathutil.Vec2
}

// Resolve converts a percent anchor into pixels on a w×h canvas.
func Resolve(pos palm.LinePosition, w, h float64) Anchors {
	return Anchors{
		Start: mathutil.Vec2{X: pos.StartX / 100 * w, Y: pos.StartY / 100 * h},
		End:   mathutil.Vec2{X: pos.EndX / 100 * w, Y: pos.EndY / 100 * h},
	}
}

// CurvatureFactor maps a curve intensity to the control point offset used by
// the heart and head lines, as a fraction of canvas height.
func CurvatureFactor(c palm.CurveIntensity) float64 {
	switch c {
	case palm.Moderate:
		return 0.15
	case palm.Slight:
		return 0.08
	default:
		return 0
	}
}

// Fixed control fractions (of W, H) for lines that ignore curve intensity.
var (
	fateControls   = [2]mathutil.Vec2{{X: 0.50, Y: 0.68}, {X: 0.53, Y: 0.50}}
	sunControls    = [2]mathutil.Vec2{{X: 0.69, Y: 0.66}, {X: 0.67, Y: 0.50}}
	healthControls = [2]mathutil.Vec2{{X: 0.62, Y: 0.70}, {X: 0.72, Y: 0.56}}
)

const (
	lifeBow        = 0.8   // life control point reach, fraction of the x span
	marriageGap    = 0.035 // vertical gap between marriage strokes, fraction of H
	marriageSecond = 0.75  // length of the second marriage stroke
)

// PathFor returns the true drawing recipe for a line.
func PathFor(id palm.LineID, a Anchors, curve palm.CurveIntensity, w, h float64) Path {
	s, e := a.Start, a.End
	var p Path

	switch id {
	case palm.Life:
		c := mathutil.Vec2{X: s.X - lifeBow*(e.X-s.X), Y: (s.Y + e.Y) / 2}
		p = p.Move(s).Quad(c, e)

	case palm.Heart, palm.Head:
		off := CurvatureFactor(curve) * h
		midX := s.X + (e.X-s.X)*0.5
		c1 := mathutil.Vec2{X: midX, Y: s.Y - off}
		c2 := mathutil.Vec2{X: midX, Y: e.Y - off}
		p = p.Move(s).Cubic(c1, c2, e)

	case palm.Fate:
		p = p.Move(s).Cubic(frac(fateControls[0], w, h), frac(fateControls[1], w, h), e)

	case palm.Sun:
		p = p.Move(s).Cubic(frac(sunControls[0], w, h), frac(sunControls[1], w, h), e)

	case palm.Marriage:
		gap := mathutil.Vec2{Y: marriageGap * h}
		p = p.Move(s).Line(e)
		p = p.Move(s.Add(gap)).Line(mathutil.Lerp(s, e, marriageSecond).Add(gap))

	case palm.Health:
		p = p.Move(s).Cubic(frac(healthControls[0], w, h), frac(healthControls[1], w, h), e)

	default:
		p = p.Move(s).Line(e)
	}
	return p
}

// RevealPath is the straight partial stroke drawn while a line is being
// revealed: from the start to the linearly interpolated end point.
// Progress is in [0,100]; zero progress yields an empty path.
func RevealPath(a Anchors, progress float64) Path {
	t := mathutil.Clamp(progress, 0, 100) / 100
	if t == 0 {
		return nil
	}
	return Path{}.Move(a.Start).Line(mathutil.Lerp(a.Start, a.End, t))
}

var labelPoints = map[palm.LineID]mathutil.Vec2{
	palm.Heart:    {X: 0.80, Y: 0.27},
	palm.Head:     {X: 0.84, Y: 0.41},
	palm.Life:     {X: 0.27, Y: 0.60},
	palm.Fate:     {X: 0.46, Y: 0.76},
	palm.Sun:      {X: 0.76, Y: 0.76},
	palm.Marriage: {X: 0.88, Y: 0.20},
	palm.Health:   {X: 0.66, Y: 0.62},
}

// LabelPoint is the fixed label position of a line.
func LabelPoint(id palm.LineID, w, h float64) mathutil.Vec2 {
	f, ok := labelPoints[id]
	if !ok {
		f = mathutil.Vec2{X: 0.5, Y: 0.5}
	}
	return frac(f, w, h)
}

// MountCenter is the pixel centre of a mount.
func MountCenter(m palm.Mount, w, h float64) mathutil.Vec2 {
	return mathutil.Vec2{X: m.X / 100 * w, Y: m.Y / 100 * h}
}

// MountRadius is the radius used for every mount on a w×h canvas.
func MountRadius(w, h float64) float64 {
	return 0.055 * math.Min(w, h)
}

func frac(f mathutil.Vec2, w, h float64) mathutil.Vec2 {
	return mathutil.Vec2{X: f.X * w, Y: f.Y * h}
}
