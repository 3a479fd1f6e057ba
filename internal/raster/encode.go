package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
	SVG  Format = "svg"
)

// ErrUnknownFormat is returned for format names that are not png, webp or svg.
var ErrUnknownFormat = errors.New("raster: unknown format")

// ParseFormat reads a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png", "":
		return PNG, nil
	case "webp":
		return WebP, nil
	case "svg":
		return SVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFor picks the format from a file name's extension, PNG when absent.
func FormatFor(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case WebP:
		return "image/webp"
	case SVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Encode writes img as PNG or WebP. SVG is vector output and is handled by
// the svgout package.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("raster: encode png: %w", err)
		}
	case WebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("raster: encode webp: %w", err)
		}
	default:
		return fmt.Errorf("%w: cannot rasterise to %q", ErrUnknownFormat, f)
	}
	return nil
}

// SaveFile encodes img into path, creating parent directories.
func SaveFile(path string, img image.Image, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("raster: mkdir for %s: %w", path, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("raster: create %s: %w", path, err)
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
