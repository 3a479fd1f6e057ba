package compositor

import (
	"image/color"

	"palm-overlay-renderer/internal/depth"
	"palm-overlay-renderer/internal/palm"
)

// Badge colours.
var (
	SuccessColor = color.NRGBA{34, 197, 94, 255}
	WarningColor = color.NRGBA{245, 158, 11, 255}
	InfoColor    = color.NRGBA{59, 130, 246, 255}
)

var (
	placeholderFill    = color.NRGBA{245, 230, 211, 255}
	placeholderOutline = color.NRGBA{180, 140, 110, 255}
	pillBackground     = color.NRGBA{15, 23, 42, 200}
	labelText          = color.NRGBA{255, 255, 255, 255}
)

// mountColors holds the fill and stroke pair for each strength.
var mountColors = map[palm.MountStrength][2]color.NRGBA{
	palm.MountStrong:   {{250, 204, 21, 90}, {234, 179, 8, 255}},
	palm.MountModerate: {{147, 197, 253, 70}, {59, 130, 246, 255}},
	palm.MountWeak:     {{203, 213, 225, 60}, {148, 163, 184, 255}},
}

// Stroke widths at a 400px reference canvas.
const (
	thinWidth   = 2.0
	mediumWidth = 3.0
	deepWidth   = 4.5
	hoverExtra  = 1.5

	labelSize = 11.0
	badgeSize = 9.0
	mountSize = 8.0
)

// StrokeWidth returns the main stroke width for a depth at the reference
// size, widened when the line is hovered.
func StrokeWidth(d depth.Depth, hovered bool) float64 {
	w := mediumWidth
	switch d {
	case depth.Thin:
		w = thinWidth
	case depth.Deep:
		w = deepWidth
	}
	if hovered {
		w += hoverExtra
	}
	return w
}

// DepthColor is the badge colour for a depth.
func DepthColor(d depth.Depth) color.NRGBA {
	switch d {
	case depth.Deep:
		return SuccessColor
	case depth.Thin:
		return WarningColor
	default:
		return InfoColor
	}
}

// MountColors returns the fill and stroke colours for a strength.
func MountColors(s palm.MountStrength) (fill, stroke color.NRGBA) {
	pair, ok := mountColors[s]
	if !ok {
		pair = mountColors[palm.MountModerate]
	}
	return pair[0], pair[1]
}
