// Package change reduces built-up masks into scalar areas and computes
// the spatial diff between two analysis years.
package change

import "github.com/elvinvaliyev/karabakh-monitor/internal/raster"

// AggregateArea reduces a binary mask to built-up area in km². Each
// built pixel contributes its nominal ground area. Boundary handling is
// settled upstream: the compositor excludes pixels whose centre falls
// outside the region before classification, so by the time a mask
// reaches aggregation every pixel either counts fully or not at all,
// identically for every year of the region.
func AggregateArea(mask *raster.BuiltMask, pixelResolutionMeters float64) float64 {
	if mask == nil || pixelResolutionMeters <= 0 {
		return 0
	}
	return float64(mask.CountBuilt()) * pixelResolutionMeters * pixelResolutionMeters / 1e6
}

// RegionAreaKm2 returns the total grid area in km², the upper bound for
// any aggregated built-up area on that grid.
func RegionAreaKm2(g raster.Grid) float64 {
	return float64(g.Pixels()) * g.PixelAreaM2() / 1e6
}
