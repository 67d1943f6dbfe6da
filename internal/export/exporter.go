// Package export renders report artifacts to disk: the growth chart
// and change overlay PNGs, the time-series CSV, and the report JSON.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/elvinvaliyev/karabakh-monitor/internal/fsutil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/security"
)

// Exporter writes report artifacts under a single output directory.
// File names embed the sanitized region name, so repeated runs for the
// same region overwrite their previous artifacts.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewExporter creates an exporter writing to dir via the real
// filesystem.
func NewExporter(dir string) *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, Dir: dir}
}

// WriteGrowthChart renders the built-area time series to a PNG and
// returns the path written.
func (e *Exporter) WriteGrowthChart(report *pipeline.ReconstructionReport) (string, error) {
	data, err := RenderGrowthChart(report)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("growth_%s.png", security.SanitizeFilename(report.Region.Name))
	return e.write(name, data)
}

// WriteChangeOverlay renders the spatial diff to a PNG and returns the
// path written. Fails when the report carries no change raster.
func (e *Exporter) WriteChangeOverlay(report *pipeline.ReconstructionReport) (string, error) {
	if report.Change == nil {
		return "", fmt.Errorf("report %s has no change raster: %s", report.ID, report.ChangeUnavailableReason)
	}
	data, err := RenderChangeOverlay(report.Change)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("change_%s_%d_%d.png",
		security.SanitizeFilename(report.Region.Name),
		report.BaselineYear, report.ComparisonYear)
	return e.write(name, data)
}

// WriteSeriesCSV writes the per-year outcomes as CSV and returns the
// path written.
func (e *Exporter) WriteSeriesCSV(report *pipeline.ReconstructionReport) (string, error) {
	data, err := SeriesCSV(report)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("series_%s.csv", security.SanitizeFilename(report.Region.Name))
	return e.write(name, data)
}

// WriteReportJSON writes the full report (minus the change raster) as
// indented JSON and returns the path written.
func (e *Exporter) WriteReportJSON(report *pipeline.ReconstructionReport) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("encode report %s: %w", report.ID, err)
	}
	name := fmt.Sprintf("report_%s.json", security.SanitizeFilename(report.ID))
	return e.write(name, buf.Bytes())
}

// WriteAll writes every artifact the report supports. The change
// overlay is skipped, not failed, when the diff is unavailable.
func (e *Exporter) WriteAll(report *pipeline.ReconstructionReport) ([]string, error) {
	var paths []string

	for _, write := range []func(*pipeline.ReconstructionReport) (string, error){
		e.WriteGrowthChart,
		e.WriteSeriesCSV,
		e.WriteReportJSON,
	} {
		path, err := write(report)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if report.Change != nil {
		path, err := e.WriteChangeOverlay(report)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	if e.Dir == "" {
		return "", fmt.Errorf("no export directory configured")
	}
	if err := e.FS.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", e.Dir, err)
	}

	path := filepath.Join(e.Dir, name)
	if err := security.ValidatePathWithinDirectory(path, e.Dir); err != nil {
		return "", err
	}

	if err := e.FS.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
