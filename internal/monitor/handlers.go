package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elvinvaliyev/karabakh-monitor/internal/db"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/httputil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/monitoring"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
	"github.com/elvinvaliyev/karabakh-monitor/internal/version"
)

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok", "version": version.Version})
}

// analyzeRequest selects a region either by preset name or by explicit
// bounds, plus the anchor years for the spatial diff.
type analyzeRequest struct {
	Preset string    `json:"preset,omitempty"`
	Name   string    `json:"name,omitempty"`
	Bounds *geo.BBox `json:"bounds,omitempty"`

	StartYear      int `json:"start_year"`
	EndYear        int `json:"end_year"`
	BaselineYear   int `json:"baseline_year"`
	ComparisonYear int `json:"comparison_year"`
}

func (req *analyzeRequest) region() (geo.RegionSpec, error) {
	if req.Preset != "" {
		return geo.Preset(req.Preset, req.StartYear, req.EndYear)
	}
	if req.Bounds == nil {
		return geo.RegionSpec{}, &geo.InvalidRegionError{Reason: "request needs either a preset or explicit bounds"}
	}
	return geo.Custom(req.Name, *req.Bounds, req.StartYear, req.EndYear)
}

func (ws *WebServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	region, err := req.region()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	// Anchors default to the region's year range endpoints.
	baseline := req.BaselineYear
	if baseline == 0 {
		baseline = region.StartYear
	}
	comparison := req.ComparisonYear
	if comparison == 0 {
		comparison = region.EndYear
	}

	report, err := ws.runner.Run(r.Context(), region, baseline, comparison)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidRegion) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	if ws.db != nil {
		if err := ws.db.InsertReport(report); err != nil {
			// The run itself succeeded; log and serve the result anyway.
			monitoring.Logf("failed to persist report %s: %v", report.ID, err)
		}
	}
	ws.setLastReport(report)

	httputil.WriteJSONOK(w, report)
}

// requireDB rejects history requests on a server running without
// persistence. Analysis still works in that configuration; only the
// stored-run endpoints are off.
func (ws *WebServer) requireDB(w http.ResponseWriter) bool {
	if ws.db == nil {
		httputil.ServiceUnavailable(w, "no database configured; run history is disabled")
		return false
	}
	return true
}

func (ws *WebServer) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !ws.requireDB(w) {
		return
	}

	runs, err := ws.db.ListRuns(parseLimit(r, 50))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list reports: %v", err))
		return
	}
	if runs == nil {
		runs = []db.AnalysisRun{}
	}

	httputil.WriteJSONOK(w, runs)
}

func (ws *WebServer) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	if !ws.requireDB(w) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if id == "" || strings.Contains(id, "/") {
		httputil.BadRequest(w, "missing report id")
		return
	}

	report, err := ws.db.LoadReport(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, fmt.Sprintf("no report with id %s", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load report: %v", err))
		return
	}

	httputil.WriteJSONOK(w, report)
}

func (ws *WebServer) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	if !ws.requireDB(w) {
		return
	}

	regionID := r.URL.Query().Get("region")
	if regionID == "" {
		httputil.BadRequest(w, "missing 'region' parameter")
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

	series, err := ws.db.RegionSeries(regionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load time series: %v", err))
		return
	}
	if len(series) == 0 {
		httputil.NotFound(w, fmt.Sprintf("no measurements for region %s", regionID))
		return
	}

	type seriesPoint struct {
		Year int     `json:"year"`
		Area float64 `json:"area"`
	}
	out := struct {
		RegionID string        `json:"region_id"`
		Units    string        `json:"units"`
		Series   []seriesPoint `json:"series"`
	}{RegionID: regionID, Units: unit}
	for _, p := range series {
		out.Series = append(out.Series, seriesPoint{
			Year: p.Year,
			Area: units.ConvertArea(p.AreaKm2, unit),
		})
	}

	httputil.WriteJSONOK(w, out)
}

func (ws *WebServer) handleRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	type presetInfo struct {
		Name   string   `json:"name"`
		Bounds geo.BBox `json:"bounds"`
	}
	var presets []presetInfo
	for _, name := range geo.PresetNames() {
		region, err := geo.Preset(name, geo.MinYear, geo.MaxYear)
		if err != nil {
			continue
		}
		presets = append(presets, presetInfo{Name: name, Bounds: region.Bounds})
	}

	httputil.WriteJSONOK(w, presets)
}

func (ws *WebServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	out := map[string]interface{}{
		"units":                ws.units,
		"pixel_resolution_m":   ws.cfg.GetPixelResolutionM(),
		"cloud_ceiling_pct":    ws.cfg.GetCloudCeilingPct(),
		"max_cloud_relax_pct":  ws.cfg.GetMaxCloudRelaxPct(),
		"built_threshold":      ws.cfg.GetBuiltThreshold(),
		"classifier_model":     ws.cfg.GetClassifierModel(),
		"max_concurrent_years": ws.cfg.GetMaxConcurrentYears(),
		"window_start_month":   ws.cfg.GetWindowStartMonth(),
		"window_end_month":     ws.cfg.GetWindowEndMonth(),
	}

	httputil.WriteJSONOK(w, out)
}
