package raster

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds a parsed TrueType font. A parsed font is safe to share;
// faces are not, so every Surface builds its own from it.
type Fonts struct {
	font *truetype.Font
}

// DefaultFonts returns the embedded Go Regular font.
func DefaultFonts() *Fonts {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("raster: parse embedded font: %v", err))
	}
	return &Fonts{font: f}
}

// LoadFonts parses a TrueType file. An empty path yields the embedded font.
func LoadFonts(path string) (*Fonts, error) {
	if path == "" {
		return DefaultFonts(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("raster: read font %s: %w", path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("raster: parse font %s: %w", path, err)
	}
	return &Fonts{font: f}, nil
}

// faceCache keys faces by point size. Not safe for concurrent use.
type faceCache struct {
	fonts *Fonts
	faces map[float64]font.Face
}

func newFaceCache(f *Fonts) *faceCache {
	if f == nil {
		f = DefaultFonts()
	}
	return &faceCache{fonts: f, faces: make(map[float64]font.Face)}
}

func (c *faceCache) face(size float64) font.Face {
	if size < 1 {
		size = 1
	}
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(c.fonts.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	c.faces[size] = f
	return f
}

// NewFace builds a face at size points. Faces are not safe for concurrent
// use.
func (f *Fonts) NewFace(size float64) font.Face {
	return newFaceCache(f).face(size)
}
