// Package monitor provides the HTTP interface for running analyses and
// browsing results: the JSON API, debug chart pages, and artifact
// export endpoints.
package monitor

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/config"
	"github.com/elvinvaliyev/karabakh-monitor/internal/db"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/monitoring"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
)

// AnalysisRunner runs the per-year pipeline for a region. Satisfied by
// *pipeline.Orchestrator; handlers depend on the interface so tests can
// substitute a canned runner.
type AnalysisRunner interface {
	Run(ctx context.Context, region geo.RegionSpec, baselineYear, comparisonYear int) (*pipeline.ReconstructionReport, error)
}

// WebServer handles the HTTP interface for the change monitor.
type WebServer struct {
	address string
	runner  AnalysisRunner
	db      *db.DB
	cfg     *config.AnalysisConfig
	units   string
	server  *http.Server

	// lastReport keeps the most recent run in memory so chart and
	// overlay endpoints can serve the change raster, which is not
	// persisted.
	mu         sync.RWMutex
	lastReport *pipeline.ReconstructionReport
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Runner  AnalysisRunner
	DB      *db.DB
	Config  *config.AnalysisConfig
	Units   string
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) *WebServer {
	if cfg.Config == nil {
		cfg.Config = config.EmptyAnalysisConfig()
	}
	if cfg.Units == "" {
		cfg.Units = "km2"
	}

	ws := &WebServer{
		address: cfg.Address,
		runner:  cfg.Runner,
		db:      cfg.DB,
		cfg:     cfg.Config,
		units:   cfg.Units,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: LoggingMiddleware(ws.ServeMux()),
	}

	return ws
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// ServeMux configures the HTTP routes and handlers.
func (ws *WebServer) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/api/analyze", ws.handleAnalyze)
	mux.HandleFunc("/api/reports", ws.handleListReports)
	mux.HandleFunc("/api/reports/", ws.handleGetReport)
	mux.HandleFunc("/api/timeseries", ws.handleTimeSeries)
	mux.HandleFunc("/api/regions", ws.handleRegions)
	mux.HandleFunc("/api/config", ws.handleConfig)

	mux.HandleFunc("/charts/growth", ws.handleGrowthChart)
	mux.HandleFunc("/charts/change", ws.handleChangeChart)

	mux.HandleFunc("/export/growth.png", ws.handleExportGrowthPNG)
	mux.HandleFunc("/export/change.png", ws.handleExportChangePNG)
	mux.HandleFunc("/export/series.csv", ws.handleExportSeriesCSV)

	return mux
}

// setLastReport stashes the most recent run for chart endpoints.
func (ws *WebServer) setLastReport(report *pipeline.ReconstructionReport) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.lastReport = report
}

// currentReport returns the report to render: the one matching id, or
// the most recent run when id is empty.
func (ws *WebServer) currentReport(id string) *pipeline.ReconstructionReport {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if ws.lastReport == nil {
		return nil
	}
	if id != "" && ws.lastReport.ID != id {
		return nil
	}
	return ws.lastReport
}

func parseLimit(r *http.Request, fallback int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			return parsed
		}
	}
	return fallback
}
