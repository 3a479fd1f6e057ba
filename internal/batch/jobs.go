package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Job is one overlay to render: a photo, an optional analysis payload and
// an optional output path.
type Job struct {
	ID       string `json:"id" yaml:"id"`
	Photo    string `json:"photo" yaml:"photo"`
	Analysis string `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
}

type jobFile struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// LoadJobs reads a YAML or JSON job list. Relative photo, analysis and
// output paths are taken relative to the file. Jobs without an id get a
// random one.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}

	var f jobFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("batch: parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(f.Jobs))
	for i := range f.Jobs {
		j := &f.Jobs[i]
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		if seen[j.ID] {
			return nil, fmt.Errorf("batch: %s: duplicate job id %q", path, j.ID)
		}
		seen[j.ID] = true
		j.Photo = relativeTo(base, j.Photo)
		j.Analysis = relativeTo(base, j.Analysis)
		j.Output = relativeTo(base, j.Output)
	}
	return f.Jobs, nil
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, ":") {
		return p
	}
	return filepath.Join(base, p)
}
