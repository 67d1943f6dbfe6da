package geo

import (
	"fmt"
	"sort"
)

// Preset study regions. The wide Agdam–Fuzuli box covers the main
// post-2020 reconstruction corridor; the city boxes track individual
// rebuild sites.
var presets = map[string]BBox{
	"agdam-fuzuli": {MinLon: 46.50, MinLat: 39.30, MaxLon: 47.50, MaxLat: 40.50},
	"fuzuli-city":  {MinLon: 47.11, MinLat: 39.58, MaxLon: 47.18, MaxLat: 39.62},
	"agdam-city":   {MinLon: 46.90, MinLat: 39.97, MaxLon: 46.96, MaxLat: 40.01},
	"shusha":       {MinLon: 46.72, MinLat: 39.73, MaxLon: 46.78, MaxLat: 39.78},
}

// PresetNames returns the preset region names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a RegionSpec for a named preset region with the given
// year range. The returned spec is validated before being returned.
func Preset(name string, startYear, endYear int) (RegionSpec, error) {
	bounds, ok := presets[name]
	if !ok {
		return RegionSpec{}, &InvalidRegionError{Reason: fmt.Sprintf("unknown preset region %q (known: %v)", name, PresetNames())}
	}
	spec := RegionSpec{
		Name:      name,
		Bounds:    bounds,
		StartYear: startYear,
		EndYear:   endYear,
	}
	if err := spec.Validate(); err != nil {
		return RegionSpec{}, err
	}
	return spec, nil
}

// Custom builds a validated RegionSpec from an explicit bounding box.
func Custom(name string, bounds BBox, startYear, endYear int) (RegionSpec, error) {
	if name == "" {
		name = "custom"
	}
	spec := RegionSpec{
		Name:      name,
		Bounds:    bounds,
		StartYear: startYear,
		EndYear:   endYear,
	}
	if err := spec.Validate(); err != nil {
		return RegionSpec{}, err
	}
	return spec, nil
}
