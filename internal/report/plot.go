package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"iqdump-service/internal/rfmetrics"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 4 * vg.Inch
	plotFloor  = -180.0
)

// PlotSpectrum renders the display spectra of both capture paths into a PNG at path
func PlotSpectrum(path, title string, spectra ...rfmetrics.Spectrum) error {
	if len(spectra) == 0 {
		return fmt.Errorf("no spectrum to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "MHz"
	p.Y.Label.Text = "dBFS"
	p.Y.Min = plotFloor
	p.Y.Max = 0

	palette := []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 200},
	}
	for idx, spectrum := range spectra {
		line, err := plotter.NewLine(spectrumXYs(spectrum))
		if err != nil {
			return fmt.Errorf("path %d: %w", idx+1, err)
		}
		line.Color = palette[idx%len(palette)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Path%d", idx+1), line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	img, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(img); err != nil {
		img.Close()
		return err
	}
	return img.Close()
}

func spectrumXYs(s rfmetrics.Spectrum) plotter.XYs {
	xys := make(plotter.XYs, len(s.FreqMHz))
	for i := range xys {
		xys[i].X = s.FreqMHz[i]
		// Keep the floor visible instead of clipping the trace
		xys[i].Y = max(s.DisplayDb[i], plotFloor)
	}
	return xys
}
