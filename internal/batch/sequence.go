package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/logging"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/raster"
	"palm-overlay-renderer/internal/reveal"
)

// SequenceConfig configures a reveal sequence export.
type SequenceConfig struct {
	Dir          string
	FPS          int
	Format       raster.Format
	Width        int
	Height       int
	Variant      palm.Variant
	Locale       palm.Locale
	Display      compositor.Options
	LineDuration time.Duration
	Renderer     *raster.Renderer
	Photos       photo.Source
	Logger       *zap.Logger
}

// Sequence is the sequence.json index written next to the frames.
type Sequence struct {
	FPS        int      `json:"fps"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	DurationMS int64    `json:"duration_ms"`
	Order      []string `json:"order"`
	Frames     []string `json:"frames"`
}

// maxFrames bounds an export whose reveal never completes.
const maxFrames = 10000

// ExportSequence renders the reveal of a as numbered frames on a simulated
// clock, one frame per 1/FPS, until the reveal completes. The start delay
// is skipped.
func ExportSequence(ctx context.Context, cfg SequenceConfig, photoSrc string, a palm.Analysis) (Sequence, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Format == raster.SVG || cfg.Format == "" {
		cfg.Format = raster.PNG
	}
	log := logging.OrNop(cfg.Logger)

	epoch := time.Unix(0, 0).UTC()
	clock := reveal.NewMockClock(epoch)
	ctrl := overlay.New(overlay.Config{
		Variant:      cfg.Variant,
		Locale:       cfg.Locale,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Display:      &cfg.Display,
		LineDuration: cfg.LineDuration,
		RevealDelay:  -1,
		Clock:        clock,
		Photos:       cfg.Photos,
		Logger:       log,
	})
	defer ctrl.Close()

	if photoSrc != "" {
		if err := ctrl.LoadPhoto(ctx, photoSrc); err != nil {
			log.Warn("sequence uses placeholder", zap.Error(err))
		}
	}
	ctrl.ApplyAnalysis(a)

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return Sequence{}, fmt.Errorf("batch: mkdir %s: %w", cfg.Dir, err)
	}
	w, h := ctrl.Size()
	seq := Sequence{FPS: cfg.FPS, Width: w, Height: h}
	for _, id := range palm.RevealOrder {
		seq.Order = append(seq.Order, string(id))
	}

	step := time.Second / time.Duration(cfg.FPS)
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return seq, err
		}
		if n >= maxFrames {
			return seq, fmt.Errorf("batch: sequence exceeds %d frames", maxFrames)
		}
		ctrl.Tick()

		name := fmt.Sprintf("frame_%05d%s", n, cfg.Format.Ext())
		if err := WriteScene(filepath.Join(cfg.Dir, name), ctrl.Scene(), w, h, cfg.Format, cfg.Renderer); err != nil {
			return seq, err
		}
		seq.Frames = append(seq.Frames, name)

		if !ctrl.Pending() {
			break
		}
		clock.Advance(step)
	}
	seq.DurationMS = clock.Now().Sub(epoch).Milliseconds()

	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return seq, fmt.Errorf("batch: encode sequence: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Dir, "sequence.json"), data, 0644); err != nil {
		return seq, fmt.Errorf("batch: write sequence.json: %w", err)
	}
	log.Info("sequence exported", zap.String("dir", cfg.Dir), zap.Int("frames", len(seq.Frames)))
	return seq, nil
}
