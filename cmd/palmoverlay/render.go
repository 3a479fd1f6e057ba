package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/batch"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/raster"
)

var (
	renderPhoto    string
	renderAnalysis string
	renderOutput   string
	renderHide     []string
	renderHover    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one overlay still",
	Long: `Renders the overlay with its reveal complete. Without --photo, or when the
photo cannot be loaded, the placeholder palm is drawn instead.

Example:
  palmoverlay render --photo hand.jpg --analysis reading.json -o hand.webp`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderPhoto, "photo", "", "Palm photo: file path, http(s) URL or data URI")
	f.StringVar(&renderAnalysis, "analysis", "", "Analysis payload JSON file")
	f.StringVarP(&renderOutput, "output", "o", "", "Output file; the extension picks the format")
	f.StringSliceVar(&renderHide, "hide", nil, "Line ids to hide (e.g. fate,sun)")
	f.StringVar(&renderHover, "hover", "", "Line id to draw highlighted")
}

// sceneOptions describes one still for render and report.
type sceneOptions struct {
	photo    string
	analysis string
	hide     []string
	hover    string
}

// buildController prepares a controller with its reveal complete. A photo
// that cannot be loaded is logged and replaced by the placeholder.
func buildController(ctx context.Context, opts sceneOptions) (*overlay.Controller, error) {
	a, ok, err := loadAnalysis(opts.analysis)
	if err != nil {
		return nil, err
	}
	display := cfg.Display.Options()
	ctrl := overlay.New(overlay.Config{
		Variant:      palm.Variant(cfg.Render.Variant),
		Locale:       palm.Locale(cfg.Render.Locale),
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Display:      &display,
		LineDuration: cfg.Reveal.LineDuration.Std(),
		RevealDelay:  cfg.Reveal.StartDelay.Std(),
		Photos:       newPhotoSource(),
		Logger:       logger,
	})
	if ok {
		ctrl.ApplyAnalysis(a)
	}
	ctrl.FinishReveal()

	for _, id := range opts.hide {
		if !ctrl.SetVisible(palm.LineID(id), false) {
			ctrl.Close()
			return nil, fmt.Errorf("unknown line %q", id)
		}
	}
	ctrl.Hover(palm.LineID(opts.hover))

	if opts.photo != "" {
		if err := ctrl.LoadPhoto(ctx, opts.photo); err != nil {
			logger.Warn("photo unavailable, drawing placeholder", zap.String("photo", opts.photo), zap.Error(err))
		}
	}
	return ctrl, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	start := time.Now()
	r, err := newRenderer()
	if err != nil {
		return err
	}

	out := renderOutput
	var format raster.Format
	if out == "" {
		if format, err = outputFormat(); err != nil {
			return err
		}
		out = filepath.Join(cfg.Render.OutputDir, "overlay"+format.Ext())
	} else if format, err = raster.FormatFor(out); err != nil {
		return err
	}

	ctrl, err := buildController(cmd.Context(), sceneOptions{
		photo:    renderPhoto,
		analysis: renderAnalysis,
		hide:     renderHide,
		hover:    renderHover,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	w, h := ctrl.Size()
	if err := batch.WriteScene(out, ctrl.Scene(), w, h, format, r); err != nil {
		return err
	}
	logger.Info("rendered", zap.String("output", out), zap.String("took", since(start)))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
