package change

import (
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
)

// DiffSummary carries the scalar outcomes of a baseline/comparison
// diff. NewConstructionKm2 is mask-based (area of pixels that flipped
// to built); DeltaAreaKm2 is the plain year-over-year difference of the
// two aggregate areas. The two agree when nothing regressed from built
// to not-built and diverge by RegressedKm2 otherwise, so the report
// exposes all three.
type DiffSummary struct {
	BaselineKm2        float64 `json:"baseline_km2"`
	ComparisonKm2      float64 `json:"comparison_km2"`
	UnchangedBuiltKm2  float64 `json:"unchanged_built_km2"`
	NewConstructionKm2 float64 `json:"new_construction_km2"`
	RegressedKm2       float64 `json:"regressed_km2"`
	DeltaAreaKm2       float64 `json:"delta_area_km2"`

	NewConstructionPixels int `json:"new_construction_pixels"`
}

// Diff compares two built masks pixel-wise into the tri-state change
// raster. Built in both years is unchanged-built; built only in the
// comparison year is new construction; everything else — including
// pixels that regressed from built to not-built — is not-built.
// Demolition is deliberately not distinguished from never-built; the
// regressed area is still counted in the summary so the delta
// divergence stays visible. Both masks must share one grid; a mismatch
// is a programming error upstream and fails with no partial result.
func Diff(baseline, comparison *raster.BuiltMask) (*raster.ChangeRaster, DiffSummary, error) {
	if !baseline.Grid.SameShape(comparison.Grid) {
		return nil, DiffSummary{}, &satelerr.GridMismatchError{
			Want: baseline.Grid.String(),
			Got:  comparison.Grid.String(),
		}
	}

	g := baseline.Grid
	cr := &raster.ChangeRaster{
		Grid:           g,
		BaselineYear:   baseline.Year,
		ComparisonYear: comparison.Year,
		Classes:        make([]raster.ChangeClass, g.Pixels()),
	}

	var newConstruction, regressed int
	for i := range cr.Classes {
		before, after := baseline.Bits[i], comparison.Bits[i]
		switch {
		case before && after:
			cr.Classes[i] = raster.ChangeUnchangedBuilt
		case !before && after:
			cr.Classes[i] = raster.ChangeNewConstruction
			newConstruction++
		default:
			cr.Classes[i] = raster.ChangeNotBuilt
			if before {
				regressed++
			}
		}
	}

	pixelKm2 := g.PixelAreaM2() / 1e6
	baselineKm2 := AggregateArea(baseline, g.ResolutionM)
	comparisonKm2 := AggregateArea(comparison, g.ResolutionM)
	summary := DiffSummary{
		BaselineKm2:           baselineKm2,
		ComparisonKm2:         comparisonKm2,
		UnchangedBuiltKm2:     float64(comparison.CountBuilt()-newConstruction) * pixelKm2,
		NewConstructionKm2:    float64(newConstruction) * pixelKm2,
		RegressedKm2:          float64(regressed) * pixelKm2,
		DeltaAreaKm2:          comparisonKm2 - baselineKm2,
		NewConstructionPixels: newConstruction,
	}
	return cr, summary, nil
}
