// Package palm holds the palm line and mount model shared by the resolver,
// the compositor and the overlay controller.
package palm

import (
	"image/color"
	"strings"

	"palm-overlay-renderer/internal/depth"
)

// LineID identifies a palm line. Unknown ids are allowed and draw as
// straight lines.
type LineID string

const (
	Heart    LineID = "heart"
	Head     LineID = "head"
	Life     LineID = "life"
	Fate     LineID = "fate"
	Sun      LineID = "sun"
	Marriage LineID = "marriage"
	Health   LineID = "health"
)

// RevealOrder is the fixed order of the timed reveal. Optional lines are
// never part of it.
var RevealOrder = [...]LineID{Life, Head, Heart, Fate, Sun}

// Primary reports whether the line belongs to the timed reveal.
func (id LineID) Primary() bool {
	for _, p := range RevealOrder {
		if p == id {
			return true
		}
	}
	return false
}

// PayloadKey is the analysis payload key for the line, e.g. "heartLine".
func (id LineID) PayloadKey() string {
	return string(id) + "Line"
}

// CurveIntensity shapes the heart and head Bézier controls.
type CurveIntensity int

const (
	Straight CurveIntensity = iota
	Slight
	Moderate
	Wide
)

// ParseCurveIntensity reads a curve intensity name. Unknown text is Straight.
func ParseCurveIntensity(s string) CurveIntensity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slight":
		return Slight
	case "moderate":
		return Moderate
	case "wide":
		return Wide
	default:
		return Straight
	}
}

func (c CurveIntensity) String() string {
	switch c {
	case Slight:
		return "slight"
	case Moderate:
		return "moderate"
	case Wide:
		return "wide"
	default:
		return "straight"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CurveIntensity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (c *CurveIntensity) UnmarshalText(b []byte) error {
	*c = ParseCurveIntensity(string(b))
	return nil
}

// LinePosition is a resolution independent anchor in percent of the canvas.
// Values outside [0,100] are kept as-is and simply draw off canvas.
type LinePosition struct {
	StartX         float64        `json:"startX" yaml:"startX"`
	StartY         float64        `json:"startY" yaml:"startY"`
	EndX           float64        `json:"endX" yaml:"endX"`
	EndY           float64        `json:"endY" yaml:"endY"`
	CurveIntensity CurveIntensity `json:"curveIntensity" yaml:"curveIntensity"`
}

// PalmLine is one drawable line. Depth and Confidence are derived from
// analysis and never set by the user.
type PalmLine struct {
	ID          LineID
	DisplayName string
	Color       color.NRGBA
	Visible     bool
	Anchor      LinePosition
	Depth       depth.Depth
	Confidence  float64 // [0,1]
}

// Label is the first word of the display name.
func (l PalmLine) Label() string {
	fields := strings.Fields(l.DisplayName)
	if len(fields) == 0 {
		return string(l.ID)
	}
	return fields[0]
}

// MountStrength selects a mount's colour pair.
type MountStrength int

const (
	MountModerate MountStrength = iota
	MountStrong
	MountWeak
)

// ParseMountStrength reads a strength name. Unknown text is MountModerate.
func ParseMountStrength(s string) MountStrength {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return MountStrong
	case "weak":
		return MountWeak
	default:
		return MountModerate
	}
}

func (s MountStrength) String() string {
	switch s {
	case MountStrong:
		return "strong"
	case MountWeak:
		return "weak"
	default:
		return "moderate"
	}
}

// Mount is a fixed circular zone on the palm.
type Mount struct {
	Name     string
	X, Y     float64 // percent
	Strength MountStrength
}

// Key is the lowercase payload key of the mount.
func (m Mount) Key() string {
	return strings.ToLower(m.Name)
}
