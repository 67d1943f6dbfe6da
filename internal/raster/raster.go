package raster

import "math"

// Band names carried by composites, in the order the classifier expects
// them: blue, green, red, near infrared, and the two shortwave infrared
// bands.
var BandNames = []string{"B2", "B3", "B4", "B8", "B11", "B12"}

// CompositeRaster is a cloud-filtered yearly composite over a region
// grid. Band planes are row-major float32 with NaN marking nodata
// (cloud-masked everywhere, or outside the region interior). Values are
// surface reflectance in [0, 1].
type CompositeRaster struct {
	Grid Grid
	Year int

	// Bands maps band name to its pixel plane. Every plane has
	// Grid.Pixels() samples.
	Bands map[string][]float32

	// Provenance: which scenes contributed to the composite.
	SceneCount int
	SceneIDs   []string
}

// NewCompositeRaster allocates a composite with all bands set to NaN.
func NewCompositeRaster(g Grid, year int) *CompositeRaster {
	c := &CompositeRaster{Grid: g, Year: year, Bands: make(map[string][]float32, len(BandNames))}
	for _, name := range BandNames {
		plane := make([]float32, g.Pixels())
		for i := range plane {
			plane[i] = float32(math.NaN())
		}
		c.Bands[name] = plane
	}
	return c
}

// ValidPixels counts pixels with at least one non-NaN band sample.
func (c *CompositeRaster) ValidPixels() int {
	count := 0
	for i := 0; i < c.Grid.Pixels(); i++ {
		for _, plane := range c.Bands {
			if !math.IsNaN(float64(plane[i])) {
				count++
				break
			}
		}
	}
	return count
}

// LabelNoData marks a pixel the classifier could not label (nodata in
// the composite).
const LabelNoData = uint8(255)

// ClassificationRaster is the external classifier's per-pixel output
// over a composite's grid. Exactly one of Labels or Probs is populated:
// Labels for categorical output (class index per pixel, LabelNoData for
// unclassifiable pixels), Probs for probability output (one plane per
// class index, NaN for unclassifiable pixels).
type ClassificationRaster struct {
	Grid  Grid
	Year  int
	Model string

	Labels []uint8
	Probs  [][]float32
}

// Categorical reports whether the raster carries discrete labels.
func (c *ClassificationRaster) Categorical() bool { return c.Labels != nil }

// BuiltMask is the binary built-up raster for one year. Immutable once
// extracted; the orchestrator caches and reuses it across diffs.
type BuiltMask struct {
	Grid Grid
	Year int
	Bits []bool
}

// NewBuiltMask allocates an all-false mask on the given grid.
func NewBuiltMask(g Grid, year int) *BuiltMask {
	return &BuiltMask{Grid: g, Year: year, Bits: make([]bool, g.Pixels())}
}

// CountBuilt returns the number of built pixels.
func (m *BuiltMask) CountBuilt() int {
	count := 0
	for _, b := range m.Bits {
		if b {
			count++
		}
	}
	return count
}

// ChangeClass is the per-pixel change category between a baseline and a
// comparison year.
type ChangeClass uint8

const (
	// ChangeNotBuilt covers pixels not built in the comparison year.
	// Pixels that regressed from built to not-built land here too:
	// demolition is not distinguished from never-built, a documented
	// limitation of the two-mask diff.
	ChangeNotBuilt ChangeClass = iota

	// ChangeUnchangedBuilt covers pixels built in both years.
	ChangeUnchangedBuilt

	// ChangeNewConstruction covers pixels built only in the comparison
	// year.
	ChangeNewConstruction
)

// String returns the change class name used in JSON and chart output.
func (c ChangeClass) String() string {
	switch c {
	case ChangeUnchangedBuilt:
		return "unchanged_built"
	case ChangeNewConstruction:
		return "new_construction"
	default:
		return "not_built"
	}
}

// ChangeRaster is the tri-state spatial diff between two built masks on
// the same grid.
type ChangeRaster struct {
	Grid           Grid
	BaselineYear   int
	ComparisonYear int
	Classes        []ChangeClass
}

// Counts returns the pixel totals per change class. The three counts
// always sum to Grid.Pixels().
func (cr *ChangeRaster) Counts() (notBuilt, unchangedBuilt, newConstruction int) {
	for _, c := range cr.Classes {
		switch c {
		case ChangeUnchangedBuilt:
			unchangedBuilt++
		case ChangeNewConstruction:
			newConstruction++
		default:
			notBuilt++
		}
	}
	return
}
