package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch [jobs.yaml]",
	Short: "Render every job in a jobs file",
	Long: `Renders a YAML or JSON jobs file with a worker pool and writes
manifest.json next to the outputs.

Jobs file:
  jobs:
    - id: alice
      photo: photos/alice.jpg
      analysis: readings/alice.json
    - photo: https://example.com/bob.png
      output: out/bob.webp`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.IntVar(&flags.Workers, "workers", 0, "Number of worker goroutines (default: NumCPU)")
	f.StringVarP(&flags.OutputDir, "output", "o", "", "Output directory (default renders)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	jobs, err := batch.LoadJobs(args[0])
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs to render.")
		return nil
	}
	bc, err := batchConfig()
	if err != nil {
		return err
	}

	logger.Info("batch starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", bc.Workers),
		zap.String("output", bc.OutputDir))
	start := time.Now()
	results := batch.Run(cmd.Context(), bc, jobs)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			logger.Warn("job failed", zap.String("id", r.ID), zap.String("error", r.Error))
		}
	}

	if err := os.MkdirAll(bc.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	manifestPath := filepath.Join(bc.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		logger.Warn("manifest write failed", zap.Error(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d/%d in %s, manifest %s\n",
		len(results)-failed, len(results), since(start), manifestPath)
	if failed > 0 {
		return fmt.Errorf("%d jobs failed", failed)
	}
	return nil
}
