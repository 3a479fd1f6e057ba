package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/logging"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/raster"
	"palm-overlay-renderer/internal/svgout"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	Renderer  *raster.Renderer
	Photos    photo.Source
	Format    raster.Format
	Width     int
	Height    int
	Variant   palm.Variant
	Locale    palm.Locale
	Display   compositor.Options
	Workers   int
	Logger    *zap.Logger
}

// Result holds the outcome of processing one job.
type Result struct {
	ID      string `json:"id"`
	Output  string `json:"output,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Run processes all jobs using a worker pool. Cancelling ctx stops
// handing out new jobs; jobs never started report the context error.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	log := logging.OrNop(cfg.Logger)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("batch progress", zap.Int64("done", p), zap.Int("total", total), zap.Float64("per_sec", rate))
				}
			}
		}
	}()

	jobChan := make(chan int, workers*2)
	var g errgroup.Group

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range jobChan {
				results[idx] = Process(ctx, cfg, jobs[idx])
				processed.Add(1)
			}
			return nil
		})
	}

send:
	for i := range jobs {
		if ctx.Err() != nil {
			for j := i; j < total; j++ {
				results[j] = Result{ID: jobs[j].ID, Error: ctx.Err().Error()}
			}
			break
		}
		select {
		case jobChan <- i:
		case <-ctx.Done():
			for j := i; j < total; j++ {
				results[j] = Result{ID: jobs[j].ID, Error: ctx.Err().Error()}
			}
			break send
		}
	}
	close(jobChan)

	_ = g.Wait()
	close(done)

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	log.Info("batch finished", zap.Int("ok", ok), zap.Int("failed", total-ok), zap.Duration("took", time.Since(start)))
	return results
}

// Process renders one job with its reveal complete.
func Process(ctx context.Context, cfg Config, job Job) Result {
	res := Result{ID: job.ID}

	ctrl := overlay.New(overlay.Config{
		Variant: cfg.Variant,
		Locale:  cfg.Locale,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Display: &cfg.Display,
		Photos:  cfg.Photos,
		Logger:  cfg.Logger,
	})
	defer ctrl.Close()

	if job.Analysis != "" {
		a, err := palm.LoadAnalysis(job.Analysis)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		ctrl.ApplyAnalysis(a)
	}
	ctrl.FinishReveal()

	if job.Photo != "" {
		if err := ctrl.LoadPhoto(ctx, job.Photo); err != nil {
			res.Warning = "placeholder used: " + err.Error()
		}
	}

	out := job.Output
	if out == "" {
		out = filepath.Join(cfg.OutputDir, job.ID+cfg.Format.Ext())
	}
	format := cfg.Format
	if job.Output != "" {
		f, err := raster.FormatFor(job.Output)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		format = f
	}

	if err := WriteScene(out, ctrl.Scene(), cfg.Width, cfg.Height, format, cfg.Renderer); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = out
	res.Success = true
	return res
}

// WriteScene renders sc into path in the given format.
func WriteScene(path string, sc compositor.Scene, w, h int, format raster.Format, r *raster.Renderer) error {
	if r == nil {
		r = raster.NewRenderer(nil, 1)
	}
	if format != raster.SVG {
		return raster.SaveFile(path, r.Render(sc, w, h), format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("batch: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: create %s: %w", path, err)
	}
	if err := svgout.Render(f, sc, w, h, r.Fonts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
