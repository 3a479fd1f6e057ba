package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/batch"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/raster"
)

var (
	animatePhoto    string
	animateAnalysis string
	animateDir      string
	animateFPS      int
)

var animateCmd = &cobra.Command{
	Use:   "animate",
	Short: "Export the reveal animation as numbered frames",
	Long: `Renders the line reveal frame by frame on a simulated clock and writes
frame_00000.png, frame_00001.png, ... plus a sequence.json index.
SVG is not an animation format here; it falls back to PNG.

Example:
  palmoverlay animate --analysis reading.json --dir frames --fps 24`,
	RunE: runAnimate,
}

func init() {
	f := animateCmd.Flags()
	f.StringVar(&animatePhoto, "photo", "", "Palm photo: file path, http(s) URL or data URI")
	f.StringVar(&animateAnalysis, "analysis", "", "Analysis payload JSON file")
	f.StringVar(&animateDir, "dir", "", "Frame directory (default <output>/sequence)")
	f.IntVar(&animateFPS, "fps", 0, "Frames per second (default from config, 30)")
}

func runAnimate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	a, _, err := loadAnalysis(animateAnalysis)
	if err != nil {
		return err
	}
	r, err := newRenderer()
	if err != nil {
		return err
	}
	format, err := outputFormat()
	if err != nil {
		return err
	}
	if format == raster.SVG {
		format = raster.PNG
	}

	dir := animateDir
	if dir == "" {
		dir = filepath.Join(cfg.Render.OutputDir, "sequence")
	}
	fps := animateFPS
	if fps <= 0 {
		fps = cfg.Reveal.FPS
	}

	seq, err := batch.ExportSequence(cmd.Context(), batch.SequenceConfig{
		Dir:          dir,
		FPS:          fps,
		Format:       format,
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Variant:      palm.Variant(cfg.Render.Variant),
		Locale:       palm.Locale(cfg.Render.Locale),
		Display:      cfg.Display.Options(),
		LineDuration: cfg.Reveal.LineDuration.Std(),
		Renderer:     r,
		Photos:       newPhotoSource(),
		Logger:       logger,
	}, animatePhoto, a)
	if err != nil {
		return err
	}
	logger.Info("sequence exported",
		zap.String("dir", dir),
		zap.Int("frames", len(seq.Frames)),
		zap.Int64("duration_ms", seq.DurationMS),
		zap.String("took", since(start)))
	fmt.Fprintf(cmd.OutOrStdout(), "%d frames in %s\n", len(seq.Frames), dir)
	return nil
}
