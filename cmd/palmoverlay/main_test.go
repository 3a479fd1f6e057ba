package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg, flags, cfgFile = config.Config{}, config.Flags{}, ""
	t.Cleanup(func() { logger = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeAnalysis(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "reading.json")
	payload := `{"heartLine": {"rating": 8, "observed": "deep and clear"},
		"lifeLine": {"rating": 3, "type": "faint"},
		"mounts": {"jupiter": "strong"}}`
	require.NoError(t, os.WriteFile(p, []byte(payload), 0644))
	return p
}

func TestInspectPrintsGeometry(t *testing.T) {
	out, err := execute(t, "inspect", "--analysis", writeAnalysis(t), "--width", "400", "--height", "500")
	require.NoError(t, err)

	assert.Contains(t, out, "Canvas 400x500")
	var heart, life, jupiter string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "heart "):
			heart = line
		case strings.HasPrefix(line, "life "):
			life = line
		case strings.HasPrefix(line, "Jupiter "):
			jupiter = line
		}
	}
	require.NotEmpty(t, heart)
	assert.Contains(t, heart, "deep")
	assert.Contains(t, heart, "80%")
	assert.Contains(t, life, "thin")
	assert.Contains(t, life, "30%")
	assert.Contains(t, jupiter, "strong")
}

func TestRenderWritesImage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "still.png")
	stdout, err := execute(t, "render",
		"--analysis", writeAnalysis(t),
		"--photo", filepath.Join(t.TempDir(), "missing.jpg"),
		"--width", "80", "--height", "100", "--supersample", "1",
		"-o", out)
	require.NoError(t, err, "a missing photo falls back to the placeholder")
	assert.Equal(t, out, strings.TrimSpace(stdout))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 100), img.Bounds())
}

func TestRenderRejectsUnknownExtension(t *testing.T) {
	_, err := execute(t, "render", "-o", filepath.Join(t.TempDir(), "still.gif"))
	assert.Error(t, err)
}

func TestBuildControllerRejectsUnknownLine(t *testing.T) {
	cfg = config.Config{}
	cfg.Resolve(config.Flags{})
	logger = zap.NewNop()
	t.Cleanup(func() { logger = nil })

	_, err := buildController(context.Background(), sceneOptions{hide: []string{"elbow"}})
	assert.ErrorContains(t, err, `unknown line "elbow"`)

	ctrl, err := buildController(context.Background(), sceneOptions{hide: []string{"fate"}, hover: "heart"})
	require.NoError(t, err)
	defer ctrl.Close()
	for _, l := range ctrl.Lines() {
		assert.Equal(t, l.ID != "fate", l.Visible, l.ID)
	}
	assert.Equal(t, "heart", string(ctrl.Hovered()))
}

func TestBatchCommandWritesManifest(t *testing.T) {
	dir := t.TempDir()
	analysis := writeAnalysis(t)
	jobs := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobs, []byte("jobs:\n"+
		"  - id: one\n    analysis: "+analysis+"\n"+
		"  - id: two\n"), 0644))
	outDir := filepath.Join(dir, "out")

	stdout, err := execute(t, "batch", jobs, "-o", outDir, "--workers", "2",
		"--width", "40", "--height", "50", "--supersample", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rendered 2/2")
	assert.FileExists(t, filepath.Join(outDir, "manifest.json"))
	assert.FileExists(t, filepath.Join(outDir, "one.png"))
	assert.FileExists(t, filepath.Join(outDir, "two.png"))
}
