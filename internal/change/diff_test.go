package change

import (
	"errors"
	"math"
	"testing"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
)

func diffTestGrid() raster.Grid {
	// ~33x45 pixels at 10m over a small box.
	return raster.NewGrid(geo.BBox{MinLon: 46.0, MinLat: 39.0, MaxLon: 46.004, MaxLat: 39.003}, 10)
}

func maskWithBuilt(g raster.Grid, year, builtCount int) *raster.BuiltMask {
	m := raster.NewBuiltMask(g, year)
	for i := 0; i < builtCount; i++ {
		m.Bits[i] = true
	}
	return m
}

func TestAggregateArea(t *testing.T) {
	g := diffTestGrid()
	m := maskWithBuilt(g, 2020, 100)

	// 100 pixels × 100 m² = 0.01 km².
	if got := AggregateArea(m, 10); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("AggregateArea = %g, want 0.01", got)
	}
	if got := AggregateArea(raster.NewBuiltMask(g, 2020), 10); got != 0 {
		t.Errorf("empty mask area = %g, want 0", got)
	}
}

func TestAggregateAreaBounds(t *testing.T) {
	g := diffTestGrid()
	full := raster.NewBuiltMask(g, 2020)
	for i := range full.Bits {
		full.Bits[i] = true
	}

	area := AggregateArea(full, g.ResolutionM)
	if area < 0 {
		t.Errorf("area must be non-negative, got %g", area)
	}
	if region := RegionAreaKm2(g); area > region+1e-12 {
		t.Errorf("area %g exceeds region area %g", area, region)
	}
}

// The 100→150 pixel scenario: 50 newly built at 10m resolution is
// 0.005 km² of new construction and the same scalar delta.
func TestDiffGrowthScenario(t *testing.T) {
	g := diffTestGrid()
	baseline := maskWithBuilt(g, 2020, 100)
	comparison := maskWithBuilt(g, 2024, 150)

	cr, summary, err := Diff(baseline, comparison)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}

	if summary.NewConstructionPixels != 50 {
		t.Errorf("NewConstructionPixels = %d, want 50", summary.NewConstructionPixels)
	}
	if math.Abs(summary.NewConstructionKm2-0.005) > 1e-12 {
		t.Errorf("NewConstructionKm2 = %g, want 0.005", summary.NewConstructionKm2)
	}
	if math.Abs(summary.DeltaAreaKm2-0.005) > 1e-12 {
		t.Errorf("DeltaAreaKm2 = %g, want 0.005", summary.DeltaAreaKm2)
	}
	if summary.RegressedKm2 != 0 {
		t.Errorf("RegressedKm2 = %g, want 0", summary.RegressedKm2)
	}

	notBuilt, unchanged, newCon := cr.Counts()
	if unchanged != 100 || newCon != 50 {
		t.Errorf("counts = (unchanged %d, new %d), want (100, 50)", unchanged, newCon)
	}
	if notBuilt+unchanged+newCon != g.Pixels() {
		t.Errorf("class counts sum to %d, want %d", notBuilt+unchanged+newCon, g.Pixels())
	}
	if cr.BaselineYear != 2020 || cr.ComparisonYear != 2024 {
		t.Errorf("change raster years = %d/%d", cr.BaselineYear, cr.ComparisonYear)
	}
}

func TestDiffIdenticalMasks(t *testing.T) {
	g := diffTestGrid()
	baseline := maskWithBuilt(g, 2020, 40)
	comparison := maskWithBuilt(g, 2021, 40)

	cr, summary, err := Diff(baseline, comparison)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if summary.DeltaAreaKm2 != 0 {
		t.Errorf("DeltaAreaKm2 = %g, want 0 for identical masks", summary.DeltaAreaKm2)
	}
	if _, _, newCon := cr.Counts(); newCon != 0 {
		t.Errorf("identical masks produced %d new-construction pixels", newCon)
	}
}

func TestDiffRegressionDivergesDeltaFromNewConstruction(t *testing.T) {
	g := diffTestGrid()
	baseline := raster.NewBuiltMask(g, 2020)
	comparison := raster.NewBuiltMask(g, 2024)
	// Pixels 0-9 regress; pixels 10-14 are newly built.
	for i := 0; i < 10; i++ {
		baseline.Bits[i] = true
	}
	for i := 10; i < 15; i++ {
		comparison.Bits[i] = true
	}

	cr, summary, err := Diff(baseline, comparison)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}

	if math.Abs(summary.NewConstructionKm2-0.0005) > 1e-12 {
		t.Errorf("NewConstructionKm2 = %g, want 0.0005", summary.NewConstructionKm2)
	}
	if math.Abs(summary.DeltaAreaKm2-(-0.0005)) > 1e-12 {
		t.Errorf("DeltaAreaKm2 = %g, want -0.0005", summary.DeltaAreaKm2)
	}
	if math.Abs(summary.RegressedKm2-0.001) > 1e-12 {
		t.Errorf("RegressedKm2 = %g, want 0.001", summary.RegressedKm2)
	}

	// Regressed pixels land in the not-built bucket, not a fourth state.
	if cr.Classes[0] != raster.ChangeNotBuilt {
		t.Errorf("regressed pixel classified %v, want not_built", cr.Classes[0])
	}
}

func TestDiffGridMismatch(t *testing.T) {
	a := maskWithBuilt(diffTestGrid(), 2020, 5)
	otherGrid := raster.NewGrid(geo.BBox{MinLon: 46.0, MinLat: 39.0, MaxLon: 46.01, MaxLat: 39.01}, 10)
	b := maskWithBuilt(otherGrid, 2024, 5)

	cr, _, err := Diff(a, b)
	if err == nil {
		t.Fatal("grids of different shapes must not diff")
	}
	if cr != nil {
		t.Error("failed diff must not return a partial change raster")
	}

	if !errors.Is(err, satelerr.ErrGridMismatch) {
		t.Errorf("want ErrGridMismatch, got %v", err)
	}
	var gm *satelerr.GridMismatchError
	if !errors.As(err, &gm) {
		t.Fatalf("unexpected error type: %T", err)
	}
}

func TestDiffResolutionMismatch(t *testing.T) {
	bounds := geo.BBox{MinLon: 46.0, MinLat: 39.0, MaxLon: 46.004, MaxLat: 39.003}
	a := maskWithBuilt(raster.NewGrid(bounds, 10), 2020, 5)
	b := maskWithBuilt(raster.NewGrid(bounds, 20), 2024, 5)

	if _, _, err := Diff(a, b); err == nil {
		t.Error("grids at different resolutions must not diff")
	}
}
