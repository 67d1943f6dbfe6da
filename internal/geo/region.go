// Package geo defines study regions for change analysis: WGS84 bounding
// boxes, optional polygon outlines, and the year range to analyse.
package geo

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidRegion is returned when a region fails validation.
var ErrInvalidRegion = errors.New("invalid region")

// Analysis years are bounded by the satellite record: nothing usable
// before the Landsat era, and a generous upper bound for scheduling.
const (
	MinYear = 1972
	MaxYear = 2100
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BBox is an axis-aligned WGS84 bounding box in degrees.
// Ordering follows the [minLon, minLat, maxLon, maxLat] convention
// used by imagery catalog APIs.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Validate checks that the box is well formed and within world bounds.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidRegionError{Reason: "bounding box contains non-finite coordinate"}
		}
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return &InvalidRegionError{Reason: fmt.Sprintf("bounding box outside world bounds: %s", b)}
	}
	if b.MinLon >= b.MaxLon {
		return &InvalidRegionError{Reason: fmt.Sprintf("min longitude %g must be less than max longitude %g", b.MinLon, b.MaxLon)}
	}
	if b.MinLat >= b.MaxLat {
		return &InvalidRegionError{Reason: fmt.Sprintf("min latitude %g must be less than max latitude %g", b.MinLat, b.MaxLat)}
	}
	return nil
}

// Contains reports whether the point lies inside or on the box.
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// MidLat returns the latitude of the box centre, used for the
// equirectangular metre-per-degree approximation.
func (b BBox) MidLat() float64 {
	return (b.MinLat + b.MaxLat) / 2
}

// WidthDeg returns the longitudinal extent in degrees.
func (b BBox) WidthDeg() float64 { return b.MaxLon - b.MinLon }

// HeightDeg returns the latitudinal extent in degrees.
func (b BBox) HeightDeg() float64 { return b.MaxLat - b.MinLat }

func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ParseBBox parses a comma separated "minLon,minLat,maxLon,maxLat" string.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox must have 4 comma separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("failed to parse bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	b := BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// RegionSpec names a study area and the inclusive year range to analyse.
// Ring, when set, restricts the analysis to a polygon inside the
// bounding box; pixels whose centre falls outside the ring are excluded.
type RegionSpec struct {
	Name      string  `json:"name"`
	Bounds    BBox    `json:"bounds"`
	Ring      []Point `json:"ring,omitempty"`
	StartYear int     `json:"start_year"`
	EndYear   int     `json:"end_year"`
}

// InvalidRegionError describes why a RegionSpec was rejected.
type InvalidRegionError struct {
	Reason string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("invalid region: %s", e.Reason)
}

func (e *InvalidRegionError) Unwrap() error { return ErrInvalidRegion }

// Validate checks geometry and year range. It is called eagerly before
// any pipeline work is scheduled so a bad request fails fast.
func (r RegionSpec) Validate() error {
	if err := r.Bounds.Validate(); err != nil {
		return err
	}
	if len(r.Ring) > 0 {
		if len(r.Ring) < 3 {
			return &InvalidRegionError{Reason: fmt.Sprintf("polygon ring needs at least 3 vertices, got %d", len(r.Ring))}
		}
		for i, p := range r.Ring {
			if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
				return &InvalidRegionError{Reason: fmt.Sprintf("ring vertex %d has non-finite coordinate", i)}
			}
			if !r.Bounds.Contains(p) {
				return &InvalidRegionError{Reason: fmt.Sprintf("ring vertex %d (%g, %g) outside bounding box %s", i, p.Lon, p.Lat, r.Bounds)}
			}
		}
	}
	if r.StartYear > r.EndYear {
		return &InvalidRegionError{Reason: fmt.Sprintf("start year %d after end year %d", r.StartYear, r.EndYear)}
	}
	if r.StartYear < MinYear || r.EndYear > MaxYear {
		return &InvalidRegionError{Reason: fmt.Sprintf("years must fall within [%d, %d], got [%d, %d]", MinYear, MaxYear, r.StartYear, r.EndYear)}
	}
	return nil
}

// ID returns a stable identity string for the region geometry. Two
// specs with the same name, bounds, and ring share an ID regardless of
// year range, so cached per-year stage results survive range changes.
func (r RegionSpec) ID() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	fmt.Fprintf(&sb, "@%.5f,%.5f,%.5f,%.5f", r.Bounds.MinLon, r.Bounds.MinLat, r.Bounds.MaxLon, r.Bounds.MaxLat)
	if len(r.Ring) > 0 {
		h := fnv.New32a()
		for _, p := range r.Ring {
			fmt.Fprintf(h, "%.5f,%.5f;", p.Lon, p.Lat)
		}
		fmt.Fprintf(&sb, "#%08x", h.Sum32())
	}
	return sb.String()
}

// Years returns the inclusive analysis years in ascending order.
func (r RegionSpec) Years() []int {
	if r.StartYear > r.EndYear {
		return nil
	}
	years := make([]int, 0, r.EndYear-r.StartYear+1)
	for y := r.StartYear; y <= r.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// ContainsPoint reports whether the point is inside the analysis area.
// With no ring this is the bounding box test; with a ring it is an
// even-odd polygon test.
func (r RegionSpec) ContainsPoint(p Point) bool {
	if !r.Bounds.Contains(p) {
		return false
	}
	if len(r.Ring) == 0 {
		return true
	}
	return ringContains(r.Ring, p)
}

// ringContains implements even-odd ray casting. Points exactly on an
// edge may land on either side; the analysis treats this as acceptable
// because the same rule is applied to every year of the same region.
func ringContains(ring []Point, p Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}
