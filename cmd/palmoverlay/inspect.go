package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/geometry"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/surface"
)

var (
	inspectAnalysis string
	inspectOps      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print resolved line geometry, depth and confidence",
	Long: `Applies an analysis payload and prints, per line, the pixel anchors on the
configured canvas, the curve intensity and the derived depth and confidence.
--ops also dumps the drawing operations of the finished frame.

Example:
  palmoverlay inspect --analysis reading.json --width 800 --height 1000`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectAnalysis, "analysis", "", "Analysis payload JSON file")
	f.BoolVar(&inspectOps, "ops", false, "Dump recorded drawing operations")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctrl, err := buildController(cmd.Context(), sceneOptions{analysis: inspectAnalysis})
	if err != nil {
		return err
	}
	defer ctrl.Close()
	return writeInspection(cmd.OutOrStdout(), ctrl, inspectOps)
}

func writeInspection(out io.Writer, ctrl *overlay.Controller, ops bool) error {
	iw, ih := ctrl.Size()
	w, h := float64(iw), float64(ih)

	fmt.Fprintf(out, "Canvas %dx%d\n\n", iw, ih)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tVISIBLE\tSTART\tEND\tCURVE\tDEPTH\tCONFIDENCE")
	for _, l := range ctrl.Lines() {
		a := geometry.Resolve(l.Anchor, w, h)
		fmt.Fprintf(tw, "%s\t%s\t%t\t(%.1f, %.1f)\t(%.1f, %.1f)\t%s\t%s\t%.0f%%\n",
			l.ID, l.DisplayName, l.Visible,
			a.Start.X, a.Start.Y, a.End.X, a.End.Y,
			l.Anchor.CurveIntensity, l.Depth, l.Confidence*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MOUNT\tCENTER\tSTRENGTH")
	for _, m := range ctrl.Mounts() {
		c := geometry.MountCenter(m, w, h)
		fmt.Fprintf(tw, "%s\t(%.1f, %.1f)\t%s\n", m.Name, c.X, c.Y, m.Strength)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if ops {
		rec := surface.NewRecorder(iw, ih)
		compositor.Compose(rec, ctrl.Scene())
		fmt.Fprintf(out, "\n%d operations\n", len(rec.Ops))
		for _, op := range rec.Ops {
			fmt.Fprintln(out, op)
		}
	}
	return nil
}
