package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest summarises a batch run.
type Manifest struct {
	Generated time.Time `json:"generated"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Results   []Result  `json:"results"`
}

// WriteManifest writes manifest.json describing results. Output paths are
// made relative to the manifest's directory where possible.
func WriteManifest(path string, results []Result) error {
	base := filepath.Dir(path)
	m := Manifest{Generated: time.Now().UTC(), Total: len(results), Results: make([]Result, len(results))}
	for i, r := range results {
		if r.Success {
			m.Succeeded++
		}
		if rel, err := filepath.Rel(base, r.Output); err == nil && r.Output != "" {
			r.Output = filepath.ToSlash(rel)
		}
		m.Results[i] = r
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	return nil
}
