package monitor

import (
	"fmt"
	"net/http"

	"github.com/elvinvaliyev/karabakh-monitor/internal/export"
	"github.com/elvinvaliyev/karabakh-monitor/internal/httputil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
)

// handleExportGrowthPNG serves the growth chart of the current report
// as a PNG download.
func (ws *WebServer) handleExportGrowthPNG(w http.ResponseWriter, r *http.Request) {
	report := ws.currentReport(r.URL.Query().Get("report_id"))
	if report == nil {
		httputil.NotFound(w, "no analysis run available; POST /api/analyze first")
		return
	}

	data, err := export.RenderGrowthChart(report)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render growth chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "attachment; filename=growth.png")
	_, _ = w.Write(data)
}

// handleExportChangePNG serves the change overlay of the current
// report as a PNG download. 404s when the diff is unavailable, since
// the raster only lives in memory for the most recent run.
func (ws *WebServer) handleExportChangePNG(w http.ResponseWriter, r *http.Request) {
	report := ws.currentReport(r.URL.Query().Get("report_id"))
	if report == nil {
		httputil.NotFound(w, "no analysis run available; POST /api/analyze first")
		return
	}
	if report.Change == nil {
		httputil.NotFound(w, fmt.Sprintf("report has no change raster: %s", report.ChangeUnavailableReason))
		return
	}

	data, err := export.RenderChangeOverlay(report.Change)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render change overlay: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "attachment; filename=change.png")
	_, _ = w.Write(data)
}

// handleExportSeriesCSV serves the per-year outcomes of the current
// report as CSV.
// Query params:
//   - report_id (optional)
//   - units (optional; km2, ha, or m2)
func (ws *WebServer) handleExportSeriesCSV(w http.ResponseWriter, r *http.Request) {
	report := ws.currentReport(r.URL.Query().Get("report_id"))
	if report == nil {
		httputil.NotFound(w, "no analysis run available; POST /api/analyze first")
		return
	}

	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = ws.units
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, fmt.Sprintf("invalid units %q (valid: %s)", unit, units.GetValidUnitsString()))
		return
	}

	data, err := export.SeriesCSVInUnits(report, unit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode series: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=series.csv")
	_, _ = w.Write(data)
}
