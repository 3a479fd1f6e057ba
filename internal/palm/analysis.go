package palm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"palm-overlay-renderer/internal/depth"
)

// DefaultRating is used when a reading carries no rating.
const DefaultRating = 5.0

// MaxRating is the top of the external rating scale.
const MaxRating = 10.0

// LineReading is the analysis of one line. Every field is optional.
type LineReading struct {
	Position *LinePosition `json:"position,omitempty"`
	Rating   *float64      `json:"rating,omitempty"`
	Type     string        `json:"type,omitempty"`
	Observed string        `json:"observed,omitempty"`
}

// Analysis is one payload from the palm analysis backend.
type Analysis struct {
	// Version is an optional caller supplied change marker. When zero the
	// payload content decides whether it is new.
	Version int64
	Lines   map[LineID]LineReading
	Mounts  map[string]MountStrength
}

// UnmarshalJSON tolerates malformed field values: anything that cannot be
// read falls back to the documented default instead of failing the payload.
func (r *LineReading) UnmarshalJSON(b []byte) error {
	var raw struct {
		Position json.RawMessage `json:"position"`
		Rating   json.RawMessage `json:"rating"`
		Type     json.RawMessage `json:"type"`
		Observed json.RawMessage `json:"observed"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = LineReading{}
	if len(raw.Position) > 0 && string(raw.Position) != "null" {
		var pos LinePosition
		if err := json.Unmarshal(raw.Position, &pos); err == nil {
			r.Position = &pos
		}
	}
	if v, ok := parseNumber(raw.Rating); ok {
		r.Rating = &v
	}
	r.Type = parseString(raw.Type)
	r.Observed = parseString(raw.Observed)
	return nil
}

// UnmarshalJSON reads the "<id>Line" keyed payload.
func (a *Analysis) UnmarshalJSON(b []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}
	*a = Analysis{Lines: make(map[LineID]LineReading)}
	for key, val := range top {
		switch {
		case key == "version":
			if v, ok := parseVersion(val); ok {
				a.Version = v
			}
		case key == "mounts":
			var m map[string]string
			if err := json.Unmarshal(val, &m); err != nil {
				continue
			}
			a.Mounts = make(map[string]MountStrength, len(m))
			for name, s := range m {
				a.Mounts[strings.ToLower(name)] = ParseMountStrength(s)
			}
		case strings.HasSuffix(key, "Line") && len(key) > len("Line"):
			var r LineReading
			if err := json.Unmarshal(val, &r); err != nil {
				continue
			}
			a.Lines[LineID(strings.TrimSuffix(key, "Line"))] = r
		}
	}
	return nil
}

// MarshalJSON writes the payload back in the "<id>Line" keyed shape.
func (a Analysis) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Lines)+2)
	for id, r := range a.Lines {
		out[id.PayloadKey()] = r
	}
	if len(a.Mounts) > 0 {
		m := make(map[string]string, len(a.Mounts))
		for name, s := range a.Mounts {
			m[name] = s.String()
		}
		out["mounts"] = m
	}
	if a.Version != 0 {
		out["version"] = a.Version
	}
	return json.Marshal(out)
}

// ParseAnalysis decodes a payload.
func ParseAnalysis(b []byte) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal(b, &a); err != nil {
		return Analysis{}, fmt.Errorf("palm: parse analysis: %w", err)
	}
	return a, nil
}

// LoadAnalysis reads a payload file.
func LoadAnalysis(path string) (Analysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Analysis{}, fmt.Errorf("palm: read %s: %w", path, err)
	}
	a, err := ParseAnalysis(raw)
	if err != nil {
		return Analysis{}, fmt.Errorf("palm: %s: %w", path, err)
	}
	return a, nil
}

// Key identifies the payload for change detection: the explicit version when
// present, otherwise a hash of the canonical encoding. Two structurally
// identical payloads share a key.
func (a Analysis) Key() string {
	if a.Version != 0 {
		return "v" + strconv.FormatInt(a.Version, 10)
	}
	// encoding/json sorts map keys, so this is canonical.
	b, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return "h" + hex.EncodeToString(sum[:8])
}

// Apply builds a replacement line set and mount set from a payload. Anchor,
// confidence and depth are recomputed for every line; only Visible is kept.
// The inputs are not modified.
func Apply(lines []PalmLine, mounts []Mount, a Analysis) ([]PalmLine, []Mount) {
	outLines := make([]PalmLine, len(lines))
	for i, l := range lines {
		r := a.Lines[l.ID]

		l.Anchor = DefaultAnchor(l.ID)
		if r.Position != nil {
			l.Anchor = *r.Position
		}

		rating := DefaultRating
		if r.Rating != nil {
			rating = *r.Rating
		}
		l.Confidence = clamp(rating, 0, MaxRating) / MaxRating
		l.Depth = depth.Classify(r.Observed, r.Type)

		outLines[i] = l
	}

	outMounts := make([]Mount, len(mounts))
	for i, m := range mounts {
		m.Strength = MountModerate
		if s, ok := a.Mounts[m.Key()]; ok {
			m.Strength = s
		}
		outMounts[i] = m
	}
	return outLines, outMounts
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// parseVersion accepts an integer or an integer string. Fractions and values
// outside int64 are refused so Key falls back to the content hash.
func parseVersion(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
