package raster

import (
	"math"
	"testing"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
)

func testBounds() geo.BBox {
	return geo.BBox{MinLon: 46.72, MinLat: 39.73, MaxLon: 46.78, MaxLat: 39.78}
}

func TestNewGridDimensions(t *testing.T) {
	g := NewGrid(testBounds(), 10)

	// 0.05 degrees of latitude at ~111.32 km/deg is ~5566 m, so a 10 m
	// grid should have ~557 rows.
	if g.Rows < 550 || g.Rows > 565 {
		t.Errorf("Rows = %d, want ~557", g.Rows)
	}
	if g.Cols < 500 || g.Cols > 525 {
		t.Errorf("Cols = %d, want ~514", g.Cols)
	}
	if g.ResolutionM != 10 {
		t.Errorf("ResolutionM = %g, want 10", g.ResolutionM)
	}
	if g.OriginLon != 46.72 || g.OriginLat != 39.78 {
		t.Errorf("origin = (%g, %g), want (46.72, 39.78)", g.OriginLon, g.OriginLat)
	}
}

func TestNewGridDeterministic(t *testing.T) {
	a := NewGrid(testBounds(), 10)
	b := NewGrid(testBounds(), 10)
	if !a.SameShape(b) {
		t.Error("identical bounds and resolution should produce identical grids")
	}
}

func TestNewGridZeroResolutionDefaults(t *testing.T) {
	g := NewGrid(testBounds(), 0)
	if g.ResolutionM != DefaultResolutionM {
		t.Errorf("ResolutionM = %g, want default %g", g.ResolutionM, DefaultResolutionM)
	}
}

func TestSameShape(t *testing.T) {
	g := NewGrid(testBounds(), 10)

	other := g
	other.Rows++
	if g.SameShape(other) {
		t.Error("grids with different row counts should not match")
	}

	other = g
	other.ResolutionM = 20
	if g.SameShape(other) {
		t.Error("grids with different resolutions should not match")
	}

	other = g
	other.OriginLon += 0.01
	if g.SameShape(other) {
		t.Error("grids with different origins should not match")
	}
}

func TestCellCenter(t *testing.T) {
	g := NewGrid(testBounds(), 10)

	c := g.CellCenter(0, 0)
	if c.Lon <= g.OriginLon || c.Lat >= g.OriginLat {
		t.Errorf("first cell centre (%g, %g) should be inside the grid from origin (%g, %g)",
			c.Lon, c.Lat, g.OriginLon, g.OriginLat)
	}

	// Centres step by exactly one pixel.
	c2 := g.CellCenter(0, 1)
	if math.Abs((c2.Lon-c.Lon)-g.LonStepDeg) > 1e-12 {
		t.Errorf("column step = %g, want %g", c2.Lon-c.Lon, g.LonStepDeg)
	}
	c3 := g.CellCenter(1, 0)
	if math.Abs((c.Lat-c3.Lat)-g.LatStepDeg) > 1e-12 {
		t.Errorf("row step = %g, want %g", c.Lat-c3.Lat, g.LatStepDeg)
	}
}

func TestInteriorBBoxOnly(t *testing.T) {
	g := NewGrid(testBounds(), 100)
	region := geo.RegionSpec{Bounds: testBounds(), StartYear: 2020, EndYear: 2024}

	interior := g.Interior(region)
	for i, in := range interior {
		if !in {
			t.Fatalf("pixel %d excluded for a bbox-only region", i)
		}
	}
}

func TestInteriorRingExcludesCorners(t *testing.T) {
	bounds := geo.BBox{MinLon: 0, MinLat: 0, MaxLon: 0.1, MaxLat: 0.1}
	g := NewGrid(bounds, 500)
	// Diamond inscribed in the box: corners of the grid fall outside.
	region := geo.RegionSpec{
		Bounds: bounds,
		Ring: []geo.Point{
			{Lon: 0.05, Lat: 0},
			{Lon: 0.1, Lat: 0.05},
			{Lon: 0.05, Lat: 0.1},
			{Lon: 0, Lat: 0.05},
		},
		StartYear: 2020,
		EndYear:   2024,
	}

	interior := g.Interior(region)
	if interior[g.Idx(0, 0)] {
		t.Error("grid corner should fall outside the diamond ring")
	}
	if !interior[g.Idx(g.Rows/2, g.Cols/2)] {
		t.Error("grid centre should fall inside the diamond ring")
	}

	inside := 0
	for _, in := range interior {
		if in {
			inside++
		}
	}
	// A diamond covers half the box area.
	frac := float64(inside) / float64(g.Pixels())
	if frac < 0.4 || frac > 0.6 {
		t.Errorf("interior fraction = %g, want ~0.5", frac)
	}
}
