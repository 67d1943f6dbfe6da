package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/elvinvaliyev/karabakh-monitor/internal/httputil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
)

// handleGrowthChart renders the built-up area time series of the most
// recent run as an HTML line chart.
// Query params:
//   - report_id (optional; defaults to the most recent run)
//   - units (optional; km2, ha, or m2)
func (ws *WebServer) handleGrowthChart(w http.ResponseWriter, r *http.Request) {
	report := ws.currentReport(r.URL.Query().Get("report_id"))
	if report == nil {
		httputil.NotFound(w, "no analysis run available; POST /api/analyze first")
		return
	}

	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = ws.units
	}
	data := PrepareGrowthChartData(report, unit)
	if len(data.Years) == 0 {
		httputil.NotFound(w, "report has no measured years")
		return
	}

	measured := make([]opts.LineData, len(data.Areas))
	for i, a := range data.Areas {
		measured[i] = opts.LineData{Value: a}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Built-up Area Growth", Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s - Built-up Area by Year", data.RegionName),
			Subtitle: growthSubtitle(data),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("Area (%s)", unitLabel(data.Units))}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
	)

	line.SetXAxis(data.Years).
		AddSeries("measured", measured,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	if len(data.TrendAreas) > 0 {
		trend := make([]opts.LineData, len(data.TrendAreas))
		for i, a := range data.TrendAreas {
			trend[i] = opts.LineData{Value: a}
		}
		line.AddSeries(data.TrendLabel, trend,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
		)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render growth chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleChangeChart renders the baseline vs comparison change summary
// as an HTML bar chart.
func (ws *WebServer) handleChangeChart(w http.ResponseWriter, r *http.Request) {
	report := ws.currentReport(r.URL.Query().Get("report_id"))
	if report == nil {
		httputil.NotFound(w, "no analysis run available; POST /api/analyze first")
		return
	}

	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = ws.units
	}
	data := PrepareChangeChartData(report, unit)
	if data == nil {
		httputil.NotFound(w, fmt.Sprintf("report has no change summary: %s", report.ChangeUnavailableReason))
		return
	}

	bars := make([]opts.BarData, len(data.Areas))
	for i, a := range data.Areas {
		bars[i] = opts.BarData{Value: a}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Change Summary", Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s - Change %d vs %d", data.RegionName, data.BaselineYear, data.ComparisonYear),
			Subtitle: fmt.Sprintf("areas in %s", unitLabel(data.Units)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("Area (%s)", unitLabel(data.Units))}),
	)
	bar.SetXAxis(data.Labels).
		AddSeries("area", bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render change chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func growthSubtitle(data *GrowthChartData) string {
	if len(data.FailedYears) == 0 {
		return fmt.Sprintf("%d measured years", len(data.Years))
	}
	return fmt.Sprintf("%d measured years; no data for %v", len(data.Years), data.FailedYears)
}

func unitLabel(unit string) string {
	switch unit {
	case units.HA:
		return "ha"
	case units.M2:
		return "m²"
	default:
		return "km²"
	}
}
