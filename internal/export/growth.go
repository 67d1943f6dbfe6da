package export

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
)

var (
	seriesColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	trendColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// RenderGrowthChart plots the measured built-up area per year with the
// fitted trend line overlaid, and returns the encoded PNG.
func RenderGrowthChart(report *pipeline.ReconstructionReport) ([]byte, error) {
	if len(report.Series) == 0 {
		return nil, fmt.Errorf("report %s has no measured years to plot", report.ID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Built-up Area by Year", report.Region.Name)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Built-up Area (km²)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(report.Series))
	for i, sp := range report.Series {
		pts[i] = plotter.XY{X: float64(sp.Year), Y: sp.AreaKm2}
	}

	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("series line: %w", err)
	}
	line.Color = seriesColor
	line.Width = vg.Points(1.5)
	scatter.Color = seriesColor
	p.Add(line, scatter)
	p.Legend.Add("measured", line, scatter)

	if report.Trend != nil && len(report.Series) >= 2 {
		first := float64(report.Series[0].Year)
		last := float64(report.Series[len(report.Series)-1].Year)
		fit := plotter.XYs{
			{X: first, Y: report.Trend.InterceptKm2 + report.Trend.SlopeKm2PerYear*first},
			{X: last, Y: report.Trend.InterceptKm2 + report.Trend.SlopeKm2PerYear*last},
		}
		trendLine, err := plotter.NewLine(fit)
		if err != nil {
			return nil, fmt.Errorf("trend line: %w", err)
		}
		trendLine.Color = trendColor
		trendLine.Width = vg.Points(1)
		trendLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(trendLine)
		p.Legend.Add(fmt.Sprintf("trend %.3f km²/yr (R²=%.2f)",
			report.Trend.SlopeKm2PerYear, report.Trend.RSquared), trendLine)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("render growth chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode growth chart: %w", err)
	}
	return buf.Bytes(), nil
}
