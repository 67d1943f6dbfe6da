// Package raster holds the gridded data types shared by every pipeline
// stage: the geographic pixel grid, yearly composites, classifier
// output, built-up masks, and the change raster. All pixel-wise
// operations downstream require grids to match exactly, so the Grid is
// computed once per region and carried unchanged through the pipeline.
package raster

import (
	"fmt"
	"math"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
)

// Metres per degree of latitude. Longitude is scaled by the cosine of
// the grid's mid-latitude (equirectangular approximation), which is
// accurate to well under a pixel at the study-region scale.
const metersPerDegree = 111_320.0

// DefaultResolutionM is the pixel edge length the reference classifier
// operates at.
const DefaultResolutionM = 10.0

// Grid describes a north-up pixel grid over a bounding box. Row 0 is
// the northernmost row; pixels are addressed row-major.
type Grid struct {
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	OriginLon   float64 `json:"origin_lon"` // west edge of column 0
	OriginLat   float64 `json:"origin_lat"` // north edge of row 0
	LonStepDeg  float64 `json:"lon_step_deg"`
	LatStepDeg  float64 `json:"lat_step_deg"`
	ResolutionM float64 `json:"resolution_m"`
}

// NewGrid derives the pixel grid covering bounds at the given
// resolution. The same bounds and resolution always produce the same
// grid, which is what makes cached per-year rasters comparable.
func NewGrid(bounds geo.BBox, resolutionM float64) Grid {
	if resolutionM <= 0 {
		resolutionM = DefaultResolutionM
	}
	latStep := resolutionM / metersPerDegree
	lonStep := resolutionM / (metersPerDegree * math.Cos(bounds.MidLat()*math.Pi/180))

	rows := int(math.Ceil(bounds.HeightDeg() / latStep))
	cols := int(math.Ceil(bounds.WidthDeg() / lonStep))
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}

	return Grid{
		Rows:        rows,
		Cols:        cols,
		OriginLon:   bounds.MinLon,
		OriginLat:   bounds.MaxLat,
		LonStepDeg:  lonStep,
		LatStepDeg:  latStep,
		ResolutionM: resolutionM,
	}
}

// Pixels returns the total pixel count.
func (g Grid) Pixels() int { return g.Rows * g.Cols }

// Idx converts a (row, col) address to a row-major slice index.
func (g Grid) Idx(row, col int) int { return row*g.Cols + col }

// CellCenter returns the geographic centre of the pixel at (row, col).
func (g Grid) CellCenter(row, col int) geo.Point {
	return geo.Point{
		Lon: g.OriginLon + (float64(col)+0.5)*g.LonStepDeg,
		Lat: g.OriginLat - (float64(row)+0.5)*g.LatStepDeg,
	}
}

// PixelAreaM2 returns the nominal ground area of one pixel.
func (g Grid) PixelAreaM2() float64 { return g.ResolutionM * g.ResolutionM }

// SameShape reports whether two grids are pixel-compatible: identical
// dimensions, alignment, and resolution. Every pixel-wise operation in
// the pipeline is gated on this.
func (g Grid) SameShape(other Grid) bool {
	const eps = 1e-9
	return g.Rows == other.Rows &&
		g.Cols == other.Cols &&
		math.Abs(g.OriginLon-other.OriginLon) < eps &&
		math.Abs(g.OriginLat-other.OriginLat) < eps &&
		math.Abs(g.LonStepDeg-other.LonStepDeg) < eps &&
		math.Abs(g.LatStepDeg-other.LatStepDeg) < eps &&
		math.Abs(g.ResolutionM-other.ResolutionM) < eps
}

// String describes the grid for error messages.
func (g Grid) String() string {
	return fmt.Sprintf("%dx%d @ %gm", g.Rows, g.Cols, g.ResolutionM)
}

// Interior returns a per-pixel flag marking pixels whose centre lies
// inside the region geometry. The centre-containment rule is applied
// uniformly to every year of a region so boundary-straddling pixels are
// counted the same way in every composite; for plain bounding boxes the
// whole grid is interior.
func (g Grid) Interior(region geo.RegionSpec) []bool {
	interior := make([]bool, g.Pixels())
	if len(region.Ring) == 0 {
		for i := range interior {
			interior[i] = true
		}
		return interior
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			interior[g.Idx(row, col)] = region.ContainsPoint(g.CellCenter(row, col))
		}
	}
	return interior
}
