// Package depth derives a coarse line prominence from free-text analysis.
package depth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Depth is the qualitative prominence of a palm line.
type Depth int

const (
	Medium Depth = iota // zero value, used whenever nothing matches
	Thin
	Deep
)

var (
	deepWords = []string{"deep", "strong", "prominent", "clear"}
	thinWords = []string{"thin", "faint", "light", "weak"}
)

var titler = cases.Title(language.English)

// Classify maps the observed and type commentary of one line to a Depth.
// Deep keywords are checked before thin keywords; the first rule that
// matches wins.
func Classify(observed, typ string) Depth {
	text := strings.ToLower(observed + " " + typ)
	if containsAny(text, deepWords) {
		return Deep
	}
	if containsAny(text, thinWords) {
		return Thin
	}
	return Medium
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Parse reads a depth name. Anything unknown is Medium.
func Parse(s string) Depth {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thin":
		return Thin
	case "deep":
		return Deep
	default:
		return Medium
	}
}

func (d Depth) String() string {
	switch d {
	case Thin:
		return "thin"
	case Deep:
		return "deep"
	default:
		return "medium"
	}
}

// Label is the badge text for the depth, e.g. "Deep".
func (d Depth) Label() string {
	return titler.String(d.String())
}

// MarshalText implements encoding.TextMarshaler.
func (d Depth) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Depth) UnmarshalText(b []byte) error {
	*d = Parse(string(b))
	return nil
}
