package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/fsutil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

func testChangeRaster(t *testing.T) *raster.ChangeRaster {
	t.Helper()

	bounds := geo.BBox{MinLon: 47.0, MinLat: 39.0, MaxLon: 47.001, MaxLat: 39.001}
	g := raster.NewGrid(bounds, 10)

	cr := &raster.ChangeRaster{
		Grid:           g,
		BaselineYear:   2020,
		ComparisonYear: 2023,
		Classes:        make([]raster.ChangeClass, g.Pixels()),
	}
	cr.Classes[g.Idx(0, 0)] = raster.ChangeUnchangedBuilt
	cr.Classes[g.Idx(0, 1)] = raster.ChangeNewConstruction
	return cr
}

func testExportReport(t *testing.T) *pipeline.ReconstructionReport {
	t.Helper()

	region, err := geo.Preset("shusha", 2020, 2023)
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}

	return &pipeline.ReconstructionReport{
		ID:             "run-1",
		Region:         region,
		BaselineYear:   2020,
		ComparisonYear: 2023,
		Series: pipeline.TimeSeries{
			{Year: 2020, AreaKm2: 1.0},
			{Year: 2022, AreaKm2: 1.3},
			{Year: 2023, AreaKm2: 1.5},
		},
		Years: []pipeline.YearResult{
			{Year: 2020, State: pipeline.StateAreaComputed, AreaKm2: 1.0, SceneCount: 4},
			{Year: 2021, State: pipeline.StateFailed, FailureReason: "no scenes"},
			{Year: 2022, State: pipeline.StateAreaComputed, AreaKm2: 1.3, SceneCount: 3},
			{Year: 2023, State: pipeline.StateAreaComputed, AreaKm2: 1.5, SceneCount: 5},
		},
		Trend:     &pipeline.Trend{SlopeKm2PerYear: 0.17, InterceptKm2: -342.4, RSquared: 0.99},
		Change:    testChangeRaster(t),
		CreatedAt: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
}

func TestRenderChangeOverlayPalette(t *testing.T) {
	cr := testChangeRaster(t)

	data, err := RenderChangeOverlay(cr)
	if err != nil {
		t.Fatalf("RenderChangeOverlay: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode overlay: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != cr.Grid.Cols || bounds.Dy() != cr.Grid.Rows {
		t.Fatalf("overlay is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), cr.Grid.Cols, cr.Grid.Rows)
	}

	r, g, b, a := img.At(0, 0).RGBA()
	if a == 0 || r>>8 != 255 || g>>8 != 215 || b>>8 != 0 {
		t.Errorf("unchanged built pixel = (%d,%d,%d,%d), want opaque yellow", r>>8, g>>8, b>>8, a>>8)
	}

	r, g, b, a = img.At(1, 0).RGBA()
	if a == 0 || r>>8 != 220 || g>>8 != 20 || b>>8 != 20 {
		t.Errorf("new construction pixel = (%d,%d,%d,%d), want opaque red", r>>8, g>>8, b>>8, a>>8)
	}

	if _, _, _, a = img.At(2, 0).RGBA(); a != 0 {
		t.Errorf("not-built pixel has alpha %d, want transparent", a>>8)
	}
}

func TestRenderChangeOverlayShapeMismatch(t *testing.T) {
	cr := testChangeRaster(t)
	cr.Classes = cr.Classes[:len(cr.Classes)-1]

	if _, err := RenderChangeOverlay(cr); err == nil {
		t.Fatal("expected error for truncated class slice")
	}
}

func TestRenderGrowthChart(t *testing.T) {
	report := testExportReport(t)

	data, err := RenderGrowthChart(report)
	if err != nil {
		t.Fatalf("RenderGrowthChart: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Error("chart image is empty")
	}
}

func TestRenderGrowthChartEmptySeries(t *testing.T) {
	report := testExportReport(t)
	report.Series = nil

	if _, err := RenderGrowthChart(report); err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestSeriesCSV(t *testing.T) {
	report := testExportReport(t)

	data, err := SeriesCSV(report)
	if err != nil {
		t.Fatalf("SeriesCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d CSV lines, want header + 4 years:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "year,state,area_km2") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "failed") || !strings.Contains(lines[2], "no scenes") {
		t.Errorf("failed year row = %q", lines[2])
	}
	if !strings.Contains(lines[2], ",,") {
		t.Errorf("failed year should have empty area column: %q", lines[2])
	}
}

func TestSeriesCSVInHectares(t *testing.T) {
	report := testExportReport(t)

	data, err := SeriesCSVInUnits(report, "ha")
	if err != nil {
		t.Fatalf("SeriesCSVInUnits: %v", err)
	}
	if !strings.Contains(string(data), "area_ha") {
		t.Error("header missing area_ha column")
	}
	if !strings.Contains(string(data), "100.000000") {
		t.Errorf("1.0 km² should convert to 100 ha:\n%s", data)
	}

	if _, err := SeriesCSVInUnits(report, "acres"); err == nil {
		t.Fatal("expected error for invalid unit")
	}
}

func TestExporterWriteAll(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir)
	report := testExportReport(t)

	paths, err := exporter.WriteAll(report)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("wrote %d artifacts, want 4: %v", len(paths), paths)
	}

	wantNames := []string{
		"growth_shusha.png",
		"series_shusha.csv",
		"report_run-1.json",
		"change_shusha_2020_2023.png",
	}
	for i, want := range wantNames {
		if got := filepath.Base(paths[i]); got != want {
			t.Errorf("paths[%d] = %s, want %s", i, got, want)
		}
		if _, err := os.Stat(paths[i]); err != nil {
			t.Errorf("artifact %s not on disk: %v", paths[i], err)
		}
	}
}

func TestExporterCapturesArtifactsInMemory(t *testing.T) {
	// Path validation resolves the export directory on the real
	// filesystem, so the directory must exist even though writes land
	// in memory.
	memfs := fsutil.NewMemoryFileSystem()
	exporter := &Exporter{FS: memfs, Dir: t.TempDir()}
	report := testExportReport(t)

	paths, err := exporter.WriteAll(report)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if got := len(memfs.Paths()); got != len(paths) {
		t.Fatalf("memory fs recorded %d files, want %d", got, len(paths))
	}

	data, ok := memfs.ReadFile(paths[2])
	if !ok {
		t.Fatalf("report JSON %s not captured", paths[2])
	}
	if !strings.Contains(string(data), `"id": "run-1"`) {
		t.Errorf("report JSON = %s", data)
	}
}

func TestExporterSkipsMissingChange(t *testing.T) {
	exporter := NewExporter(t.TempDir())
	report := testExportReport(t)
	report.Change = nil
	report.ChangeUnavailableReason = "baseline year failed"

	paths, err := exporter.WriteAll(report)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d artifacts, want 3 without overlay", len(paths))
	}

	if _, err := exporter.WriteChangeOverlay(report); err == nil {
		t.Fatal("expected explicit overlay write to fail without change raster")
	}
}
