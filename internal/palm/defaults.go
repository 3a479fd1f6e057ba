package palm

import (
	"image/color"
	"strings"
)

// Variant selects which lines a line set contains.
type Variant string

const (
	Basic    Variant = "basic"    // the five primary lines
	Extended Variant = "extended" // primary lines plus marriage and health
)

// Locale selects display names.
type Locale string

const (
	English   Locale = "en"
	Bilingual Locale = "hi" // English name followed by the Hindi name
)

// ParseVariant reads a variant name. Unknown text is Basic.
func ParseVariant(s string) Variant {
	if strings.EqualFold(strings.TrimSpace(s), string(Extended)) {
		return Extended
	}
	return Basic
}

// ParseLocale reads a locale tag. Unknown tags are English.
func ParseLocale(s string) Locale {
	if strings.EqualFold(strings.TrimSpace(s), string(Bilingual)) {
		return Bilingual
	}
	return English
}

type lineDefault struct {
	id     LineID
	name   string
	hindi  string
	color  color.NRGBA
	anchor LinePosition
}

// lineDefaults is never handed out directly; DefaultLines copies it.
var lineDefaults = [...]lineDefault{
	{Heart, "Heart Line", "हृदय रेखा", color.NRGBA{239, 68, 68, 255},
		LinePosition{StartX: 82, StartY: 34, EndX: 28, EndY: 30, CurveIntensity: Moderate}},
	{Head, "Head Line", "मस्तिष्क रेखा", color.NRGBA{59, 130, 246, 255},
		LinePosition{StartX: 80, StartY: 46, EndX: 30, EndY: 50, CurveIntensity: Slight}},
	{Life, "Life Line", "जीवन रेखा", color.NRGBA{34, 197, 94, 255},
		LinePosition{StartX: 36, StartY: 40, EndX: 46, EndY: 88, CurveIntensity: Moderate}},
	{Fate, "Fate Line", "भाग्य रेखा", color.NRGBA{168, 85, 247, 255},
		LinePosition{StartX: 52, StartY: 88, EndX: 50, EndY: 32}},
	{Sun, "Sun Line", "सूर्य रेखा", color.NRGBA{245, 158, 11, 255},
		LinePosition{StartX: 68, StartY: 80, EndX: 66, EndY: 34}},
	{Marriage, "Marriage Line", "विवाह रेखा", color.NRGBA{236, 72, 153, 255},
		LinePosition{StartX: 92, StartY: 27, EndX: 84, EndY: 26}},
	{Health, "Health Line", "स्वास्थ्य रेखा", color.NRGBA{20, 184, 166, 255},
		LinePosition{StartX: 58, StartY: 84, EndX: 76, EndY: 42}},
}

var mountDefaults = [...]Mount{
	{Name: "Jupiter", X: 30, Y: 24},
	{Name: "Saturn", X: 46, Y: 21},
	{Name: "Apollo", X: 62, Y: 22},
	{Name: "Mercury", X: 78, Y: 26},
	{Name: "Venus", X: 30, Y: 70},
	{Name: "Moon", X: 76, Y: 70},
	{Name: "Mars", X: 56, Y: 56},
}

// DefaultLines returns a freshly allocated line set for the variant.
// Primary lines start visible, optional lines hidden.
func DefaultLines(v Variant, loc Locale) []PalmLine {
	lines := make([]PalmLine, 0, len(lineDefaults))
	for _, d := range lineDefaults {
		if v != Extended && !d.id.Primary() {
			continue
		}
		name := d.name
		if loc == Bilingual {
			name = d.name + " (" + d.hindi + ")"
		}
		lines = append(lines, PalmLine{
			ID:          d.id,
			DisplayName: name,
			Color:       d.color,
			Visible:     d.id.Primary(),
			Anchor:      d.anchor,
		})
	}
	return lines
}

// DefaultAnchor returns the hardcoded anchor for a line id. Unknown ids get
// a horizontal line across the middle of the palm.
func DefaultAnchor(id LineID) LinePosition {
	for _, d := range lineDefaults {
		if d.id == id {
			return d.anchor
		}
	}
	return LinePosition{StartX: 30, StartY: 50, EndX: 70, EndY: 50}
}

// DefaultMounts returns a freshly allocated mount set, all moderate.
func DefaultMounts() []Mount {
	mounts := make([]Mount, len(mountDefaults))
	copy(mounts, mountDefaults[:])
	return mounts
}

// Find returns the index of the line with the id, or -1.
func Find(lines []PalmLine, id LineID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}
