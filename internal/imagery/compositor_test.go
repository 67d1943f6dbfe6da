package imagery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
)

// fakeSource serves canned scenes and per-scene band values. Each scene
// contributes a constant value per band unless overridden per pixel.
type fakeSource struct {
	scenes      map[float64][]Scene // keyed by the ceiling used in Search
	defaultList []Scene
	searchErr   error
	fetchErr    error

	// value(sceneID, band, pixel) returns the raw DN and QA for a pixel.
	value func(sceneID, band string, pixel int) (dn float64, qa uint16)

	searchCalls []float64
}

func (f *fakeSource) Search(ctx context.Context, bounds geo.BBox, window TimeWindow, maxCloudPct float64) ([]Scene, error) {
	f.searchCalls = append(f.searchCalls, maxCloudPct)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.scenes != nil {
		return f.scenes[maxCloudPct], nil
	}
	return f.defaultList, nil
}

func (f *fakeSource) FetchBands(ctx context.Context, sceneID string, grid raster.Grid) (*SceneRaster, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	sr := &SceneRaster{SceneID: sceneID, Grid: grid, Bands: make(map[string][]float32), QA: make([]uint16, grid.Pixels())}
	for _, name := range raster.BandNames {
		plane := make([]float32, grid.Pixels())
		for i := range plane {
			dn, qa := f.value(sceneID, name, i)
			plane[i] = float32(dn)
			if qa != 0 {
				sr.QA[i] = qa
			}
		}
		sr.Bands[name] = plane
	}
	return sr, nil
}

func testRegion() geo.RegionSpec {
	return geo.RegionSpec{
		Name:      "test",
		Bounds:    geo.BBox{MinLon: 0, MinLat: 0, MaxLon: 0.01, MaxLat: 0.01},
		StartYear: 2020,
		EndYear:   2024,
	}
}

func sceneList(ids ...string) []Scene {
	scenes := make([]Scene, len(ids))
	for i, id := range ids {
		scenes[i] = Scene{ID: id, AcquiredAt: time.Date(2022, time.July, i+1, 0, 0, 0, 0, time.UTC), CloudCoverPct: 5}
	}
	return scenes
}

func TestSummerWindow(t *testing.T) {
	w := SummerWindow(2021)
	if w.Start.Month() != time.June || w.Start.Day() != 1 {
		t.Errorf("window starts at %v, want June 1", w.Start)
	}
	if w.End.Month() != time.October || w.End.Day() != 1 {
		t.Errorf("window ends at %v, want October 1", w.End)
	}
	if w.Start.Year() != 2021 || w.End.Year() != 2021 {
		t.Error("window should stay within the requested year")
	}
}

func TestMonthWindowDecemberSpansYearEnd(t *testing.T) {
	w := MonthWindow(2021, 11, 12)
	if w.Start.Month() != time.November {
		t.Errorf("window starts at %v, want November 1", w.Start)
	}
	if w.End.Year() != 2022 || w.End.Month() != time.January || w.End.Day() != 1 {
		t.Errorf("window ends at %v, want January 1 of the next year", w.End)
	}
}

func TestCompositeMedianAcrossScenes(t *testing.T) {
	// Three scenes with DN 1000, 2000, 9000: the median (2000) scaled by
	// 1/10000 is 0.2, and the transient outlier is suppressed.
	dns := map[string]float64{"a": 1000, "b": 2000, "c": 9000}
	src := &fakeSource{
		defaultList: sceneList("a", "b", "c"),
		value: func(sceneID, band string, pixel int) (float64, uint16) {
			return dns[sceneID], 0
		},
	}

	comp, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2022)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if comp.SceneCount != 3 {
		t.Errorf("SceneCount = %d, want 3", comp.SceneCount)
	}
	got := float64(comp.Bands["B4"][0])
	if math.Abs(got-0.2) > 1e-6 {
		t.Errorf("median reflectance = %g, want 0.2", got)
	}
}

func TestCompositeSkipsCloudMaskedPixels(t *testing.T) {
	// Scene "cloudy" flags pixel 0 as cloud; its inflated value must not
	// contaminate the median there, but still counts elsewhere.
	src := &fakeSource{
		defaultList: sceneList("clear", "cloudy"),
		value: func(sceneID, band string, pixel int) (float64, uint16) {
			if sceneID == "cloudy" {
				if pixel == 0 {
					return 9999, 1 << 10
				}
				return 3000, 0
			}
			return 1000, 0
		},
	}

	comp, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2022)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if got := float64(comp.Bands["B2"][0]); math.Abs(got-0.1) > 1e-6 {
		t.Errorf("cloud-masked pixel median = %g, want 0.1 (clear scene only)", got)
	}
	// At an unmasked pixel both scenes contribute; empirical median of
	// {0.1, 0.3} is the lower sample.
	if got := float64(comp.Bands["B2"][1]); math.Abs(got-0.1) > 1e-6 {
		t.Errorf("unmasked pixel median = %g, want 0.1", got)
	}
}

func TestCompositeAllCloudMaskedFails(t *testing.T) {
	src := &fakeSource{
		defaultList: sceneList("a"),
		value: func(sceneID, band string, pixel int) (float64, uint16) {
			return 1000, 1 << 11 // cirrus everywhere
		},
	}

	_, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2022)
	if !errors.Is(err, satelerr.ErrDataUnavailable) {
		t.Errorf("want ErrDataUnavailable for fully masked stack, got %v", err)
	}
}

func TestCompositeZeroScenes(t *testing.T) {
	src := &fakeSource{defaultList: nil, value: func(string, string, int) (float64, uint16) { return 0, 0 }}

	_, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2021)
	if err == nil {
		t.Fatal("want error for zero scenes")
	}
	var de *satelerr.DataUnavailableError
	if !errors.As(err, &de) {
		t.Fatalf("want DataUnavailableError, got %T: %v", err, err)
	}
	if de.Year != 2021 {
		t.Errorf("error year = %d, want 2021", de.Year)
	}
}

func TestCompositeSearchErrorWrapsDataUnavailable(t *testing.T) {
	src := &fakeSource{searchErr: errors.New("connection refused")}
	_, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2022)
	if !errors.Is(err, satelerr.ErrDataUnavailable) {
		t.Errorf("provider failure should surface as ErrDataUnavailable, got %v", err)
	}
}

func TestCompositeDeterministic(t *testing.T) {
	src := &fakeSource{
		defaultList: sceneList("a", "b"),
		value: func(sceneID, band string, pixel int) (float64, uint16) {
			if sceneID == "a" {
				return float64(1000 + pixel%7), 0
			}
			return float64(2000 + pixel%5), 0
		},
	}
	c := NewCompositor(src)

	first, err := c.Composite(context.Background(), testRegion(), 2022)
	if err != nil {
		t.Fatalf("first Composite failed: %v", err)
	}
	second, err := c.Composite(context.Background(), testRegion(), 2022)
	if err != nil {
		t.Fatalf("second Composite failed: %v", err)
	}

	for _, name := range raster.BandNames {
		a, b := first.Bands[name], second.Bands[name]
		for i := range a {
			av, bv := float64(a[i]), float64(b[i])
			if math.IsNaN(av) && math.IsNaN(bv) {
				continue
			}
			if av != bv {
				t.Fatalf("band %s pixel %d differs between runs: %g vs %g", name, i, av, bv)
			}
		}
	}
}

func TestCompositeAtUsesRequestedCeiling(t *testing.T) {
	src := &fakeSource{
		scenes: map[float64][]Scene{
			40: sceneList("relaxed"),
		},
		value: func(string, string, int) (float64, uint16) { return 1500, 0 },
	}

	if _, err := NewCompositor(src).Composite(context.Background(), testRegion(), 2022); err == nil {
		t.Fatal("default ceiling should find no scenes")
	}
	if _, err := NewCompositor(src).CompositeAt(context.Background(), testRegion(), 2022, 40); err != nil {
		t.Fatalf("relaxed ceiling should succeed: %v", err)
	}
	if len(src.searchCalls) != 2 || src.searchCalls[0] != DefaultCloudCeilingPct || src.searchCalls[1] != 40 {
		t.Errorf("search ceilings = %v, want [%g 40]", src.searchCalls, DefaultCloudCeilingPct)
	}
}
