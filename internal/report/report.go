// Package report writes a one page PDF summary of an overlay: the rendered
// image, a per-line table and mount strengths.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/postprocess"
)

// Report is the content of a PDF summary.
type Report struct {
	Title     string
	Image     image.Image // optional
	Lines     []palm.PalmLine
	Mounts    []palm.Mount
	Generated time.Time
	// Compress toggles PDF stream compression.
	Compress bool
}

const (
	margin   = 15.0
	pageW    = 210.0
	rowH     = 7.0
	maxImgH  = 120.0
	imageKey = "overlay"
)

// Write renders r as PDF into w.
func Write(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetTitle(r.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.Title, "", 1, "L", false, 0, "")
	if !r.Generated.IsZero() {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, r.Generated.Format(time.RFC1123), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	if r.Image != nil {
		if err := placeImage(pdf, r.Image); err != nil {
			return err
		}
	}

	lineTable(pdf, r.Lines)
	if len(r.Mounts) > 0 {
		pdf.Ln(6)
		mountTable(pdf, r.Mounts)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: write pdf: %w", err)
	}
	return nil
}

func placeImage(pdf *gofpdf.Fpdf, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, pageImage(img)); err != nil {
		return fmt.Errorf("report: encode image: %w", err)
	}
	pdf.RegisterImageOptionsReader(imageKey, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: register image: %w", err)
	}

	b := img.Bounds()
	maxW := pageW - 2*margin
	scale := math.Min(maxW/float64(b.Dx()), maxImgH/float64(b.Dy()))
	w, h := float64(b.Dx())*scale, float64(b.Dy())*scale
	x := (pageW - w) / 2
	pdf.ImageOptions(imageKey, x, pdf.GetY(), w, h, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(4)
	return nil
}

var paper = color.NRGBA{255, 255, 255, 255}

// pageImage flattens img onto the page colour; a transparent overlay would
// otherwise need an alpha mask in the PDF.
func pageImage(img image.Image) *image.NRGBA {
	return postprocess.Flatten(postprocess.ToNRGBA(img), paper)
}

var lineCols = [...]struct {
	title string
	width float64
}{
	{"Line", 50},
	{"Depth", 35},
	{"Confidence", 35},
	{"Visible", 25},
	{"Curve", 35},
}

func lineTable(pdf *gofpdf.Fpdf, lines []palm.PalmLine) {
	header(pdf)
	for _, c := range lineCols {
		pdf.CellFormat(c.width, rowH, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range lines {
		pdf.SetTextColor(int(l.Color.R), int(l.Color.G), int(l.Color.B))
		pdf.CellFormat(lineCols[0].width, rowH, l.Label(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(lineCols[1].width, rowH, l.Depth.Label(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(lineCols[2].width, rowH, fmt.Sprintf("%d%%", int(math.Round(l.Confidence*100))), "1", 0, "C", false, 0, "")
		pdf.CellFormat(lineCols[3].width, rowH, yesNo(l.Visible), "1", 0, "C", false, 0, "")
		pdf.CellFormat(lineCols[4].width, rowH, l.Anchor.CurveIntensity.String(), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
}

func mountTable(pdf *gofpdf.Fpdf, mounts []palm.Mount) {
	header(pdf)
	pdf.CellFormat(50, rowH, "Mount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, rowH, "Strength", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range mounts {
		pdf.CellFormat(50, rowH, m.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, rowH, m.Strength.String(), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
}

func header(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(226, 232, 240)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
