package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/batch"
	"palm-overlay-renderer/internal/config"
	"palm-overlay-renderer/internal/logging"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/raster"
)

var (
	// Global flags
	cfgFile string
	flags   config.Flags

	// Resolved in PersistentPreRunE
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "palmoverlay",
	Short: "Render palm line overlays from analysis payloads",
	Long: `palmoverlay draws the palm line overlay (lines, mounts, labels and badges)
over a palm photo, or over a placeholder when no photo is available.

Stills, reveal sequences, batches and PDF reports are written to disk;
"serve" runs a live preview over HTTP and websocket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		cfg.Resolve(flags)

		var err error
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to a YAML or JSON config file")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Debug logging with development output")
	pf.IntVar(&flags.Width, "width", 0, "Canvas width in pixels (default 400)")
	pf.IntVar(&flags.Height, "height", 0, "Canvas height in pixels (default 500)")
	pf.IntVar(&flags.Supersample, "supersample", 0, "Supersampling factor (default 2)")
	pf.StringVar(&flags.Format, "format", "", "Output format: png, webp or svg (default png)")
	pf.StringVar(&flags.FontPath, "font", "", "TrueType font for labels (default Go Regular)")
	pf.StringVar(&flags.Variant, "lines", "", "Line set: basic or extended")
	pf.StringVar(&flags.Locale, "locale", "", "Display names: en or hi")

	rootCmd.AddCommand(renderCmd, animateCmd, batchCmd, serveCmd, reportCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRenderer builds the raster renderer from the resolved config.
func newRenderer() (*raster.Renderer, error) {
	var fonts *raster.Fonts
	if cfg.Render.FontPath != "" {
		f, err := raster.LoadFonts(cfg.Render.FontPath)
		if err != nil {
			return nil, err
		}
		fonts = f
	}
	return raster.NewRenderer(fonts, cfg.Render.Supersample), nil
}

func newPhotoSource() photo.Source {
	return photo.NewCache(photo.NewLoader(cfg.Render.PhotoTimeout.Std()))
}

func outputFormat() (raster.Format, error) {
	return raster.ParseFormat(cfg.Render.Format)
}

// batchConfig is the shared render setup for render, batch and report.
func batchConfig() (batch.Config, error) {
	r, err := newRenderer()
	if err != nil {
		return batch.Config{}, err
	}
	format, err := outputFormat()
	if err != nil {
		return batch.Config{}, err
	}
	return batch.Config{
		OutputDir: cfg.Render.OutputDir,
		Renderer:  r,
		Photos:    newPhotoSource(),
		Format:    format,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Variant:   palm.Variant(cfg.Render.Variant),
		Locale:    palm.Locale(cfg.Render.Locale),
		Display:   cfg.Display.Options(),
		Workers:   cfg.Render.Workers,
		Logger:    logger,
	}, nil
}

// loadAnalysis reads an analysis payload; an empty path means no analysis.
func loadAnalysis(path string) (palm.Analysis, bool, error) {
	if path == "" {
		return palm.Analysis{}, false, nil
	}
	a, err := palm.LoadAnalysis(path)
	if err != nil {
		return palm.Analysis{}, false, err
	}
	return a, true, nil
}

func since(start time.Time) string {
	return fmt.Sprintf("%.1fs", time.Since(start).Seconds())
}
