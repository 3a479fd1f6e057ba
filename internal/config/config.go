package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/palm"
)

// ErrUnknownFormat is returned for config files that are neither YAML nor
// JSON.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Config holds all render, display, reveal, server and logging settings.
type Config struct {
	Render  RenderConfig  `json:"render" yaml:"render"`
	Display DisplayConfig `json:"display" yaml:"display"`
	Reveal  RevealConfig  `json:"reveal" yaml:"reveal"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// RenderConfig controls output images.
type RenderConfig struct {
	Width        int      `json:"width" yaml:"width"`
	Height       int      `json:"height" yaml:"height"`
	Supersample  int      `json:"supersample" yaml:"supersample"`
	Format       string   `json:"format" yaml:"format"`
	Workers      int      `json:"workers" yaml:"workers"`
	FontPath     string   `json:"font_path" yaml:"font_path"`
	Variant      string   `json:"variant" yaml:"variant"`
	Locale       string   `json:"locale" yaml:"locale"`
	OutputDir    string   `json:"output_dir" yaml:"output_dir"`
	PhotoTimeout Duration `json:"photo_timeout" yaml:"photo_timeout"`
}

// DisplayConfig holds display defaults. Unset toggles keep the built-in
// defaults, so they are pointers.
type DisplayConfig struct {
	ShowLabels     *bool   `json:"show_labels,omitempty" yaml:"show_labels,omitempty"`
	ShowDepth      *bool   `json:"show_depth,omitempty" yaml:"show_depth,omitempty"`
	ShowConfidence *bool   `json:"show_confidence,omitempty" yaml:"show_confidence,omitempty"`
	ShowMounts     *bool   `json:"show_mounts,omitempty" yaml:"show_mounts,omitempty"`
	Opacity        float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Zoom           float64 `json:"zoom,omitempty" yaml:"zoom,omitempty"`
}

// RevealConfig times the reveal animation.
type RevealConfig struct {
	LineDuration Duration `json:"line_duration" yaml:"line_duration"`
	StartDelay   Duration `json:"start_delay" yaml:"start_delay"`
	FPS          int      `json:"fps" yaml:"fps"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	MDNS        bool   `json:"mdns" yaml:"mdns"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Instance    string `json:"instance" yaml:"instance"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// Duration is a time.Duration written as "800ms" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads a YAML or JSON config file, chosen by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Width       int
	Height      int
	Supersample int
	Format      string
	Workers     int
	OutputDir   string
	FontPath    string
	Variant     string
	Locale      string
	Addr        string
	LogLevel    string
	Verbose     bool
}

// Resolve applies flag overrides and fills empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Render.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Render.Height = flags.Height
	}
	if flags.Supersample > 0 {
		c.Render.Supersample = flags.Supersample
	}
	if flags.Format != "" {
		c.Render.Format = flags.Format
	}
	if flags.Workers > 0 {
		c.Render.Workers = flags.Workers
	}
	if flags.OutputDir != "" {
		c.Render.OutputDir = flags.OutputDir
	}
	if flags.FontPath != "" {
		c.Render.FontPath = flags.FontPath
	}
	if flags.Variant != "" {
		c.Render.Variant = flags.Variant
	}
	if flags.Locale != "" {
		c.Render.Locale = flags.Locale
	}
	if flags.Addr != "" {
		c.Server.Addr = flags.Addr
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	if flags.Verbose {
		c.Log.Level = "debug"
		c.Log.Development = true
	}

	if c.Render.Width <= 0 {
		c.Render.Width = 400
	}
	if c.Render.Height <= 0 {
		c.Render.Height = 500
	}
	if c.Render.Supersample <= 0 {
		c.Render.Supersample = 2
	}
	if c.Render.Format == "" {
		c.Render.Format = "png"
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = runtime.NumCPU()
	}
	c.Render.Variant = string(palm.ParseVariant(c.Render.Variant))
	c.Render.Locale = string(palm.ParseLocale(c.Render.Locale))
	if c.Render.OutputDir == "" {
		c.Render.OutputDir = "renders"
	}
	if c.Render.PhotoTimeout <= 0 {
		c.Render.PhotoTimeout = Duration(15 * time.Second)
	}

	if c.Reveal.LineDuration <= 0 {
		c.Reveal.LineDuration = Duration(800 * time.Millisecond)
	}
	if c.Reveal.StartDelay <= 0 {
		c.Reveal.StartDelay = Duration(300 * time.Millisecond)
	}
	if c.Reveal.FPS <= 0 {
		c.Reveal.FPS = 30
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = "_palmoverlay._tcp"
	}
	if c.Server.Instance == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "palmoverlay"
		}
		c.Server.Instance = host
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Options returns the display options with defaults for unset fields.
func (d DisplayConfig) Options() compositor.Options {
	o := compositor.DefaultOptions()
	if d.ShowLabels != nil {
		o.ShowLabels = *d.ShowLabels
	}
	if d.ShowDepth != nil {
		o.ShowDepth = *d.ShowDepth
	}
	if d.ShowConfidence != nil {
		o.ShowConfidence = *d.ShowConfidence
	}
	if d.ShowMounts != nil {
		o.ShowMounts = *d.ShowMounts
	}
	if d.Opacity != 0 {
		o.Opacity = d.Opacity
	}
	if d.Zoom != 0 {
		o.Zoom = d.Zoom
	}
	return o.Clamped()
}
