package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/report"
)

var (
	reportPhoto    string
	reportAnalysis string
	reportOutput   string
	reportTitle    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a PDF summary of a reading",
	Long: `Renders the overlay and writes a one page PDF with the image, a table of
lines (depth, confidence, visibility, curve) and the mount strengths.

Example:
  palmoverlay report --photo hand.jpg --analysis reading.json -o reading.pdf`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportPhoto, "photo", "", "Palm photo: file path, http(s) URL or data URI")
	f.StringVar(&reportAnalysis, "analysis", "", "Analysis payload JSON file")
	f.StringVarP(&reportOutput, "output", "o", "", "PDF path (default <output>/report.pdf)")
	f.StringVar(&reportTitle, "title", "Palm reading", "Report title")
}

func runReport(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	ctrl, err := buildController(cmd.Context(), sceneOptions{photo: reportPhoto, analysis: reportAnalysis})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	out := reportOutput
	if out == "" {
		out = filepath.Join(cfg.Render.OutputDir, "report.pdf")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}

	w, h := ctrl.Size()
	err = report.Write(f, report.Report{
		Title:     reportTitle,
		Image:     r.Render(ctrl.Scene(), w, h),
		Lines:     ctrl.Lines(),
		Mounts:    ctrl.Mounts(),
		Generated: time.Now(),
		Compress:  true,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	logger.Info("report written", zap.String("output", out))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
