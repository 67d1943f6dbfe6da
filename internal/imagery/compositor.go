package imagery

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/monitoring"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
)

// QA bitmask bits flagging opaque cloud and cirrus. Pixels with either
// bit set are dropped before compositing.
const (
	qaCloudBit  = 1 << 10
	qaCirrusBit = 1 << 11
)

// reflectanceScale converts provider digital numbers to surface
// reflectance.
const reflectanceScale = 1.0 / 10000.0

// DefaultCloudCeilingPct is the scene-level cloud cover ceiling applied
// to catalog searches.
const DefaultCloudCeilingPct = 20.0

// Compositor reduces the summer scene stack for one region/year into a
// single cloud-free composite via a per-pixel median. The median across
// the time dimension suppresses transient cloud and shadow that the
// per-pixel QA mask misses, without needing any per-scene tuning.
type Compositor struct {
	Source SceneSource

	// ResolutionM is the analysis grid resolution. Zero means the
	// raster default.
	ResolutionM float64

	// Window selects the acquisition window for a year. Nil means
	// SummerWindow.
	Window func(year int) TimeWindow
}

// NewCompositor creates a compositor reading from source at the default
// resolution.
func NewCompositor(source SceneSource) *Compositor {
	return &Compositor{Source: source, ResolutionM: raster.DefaultResolutionM}
}

// Composite builds the yearly composite at the default cloud ceiling.
func (c *Compositor) Composite(ctx context.Context, region geo.RegionSpec, year int) (*raster.CompositeRaster, error) {
	return c.CompositeAt(ctx, region, year, DefaultCloudCeilingPct)
}

// CompositeAt builds the yearly composite with an explicit scene-level
// cloud ceiling. The orchestrator uses this for its single relaxed
// retry when the default ceiling leaves zero scenes.
func (c *Compositor) CompositeAt(ctx context.Context, region geo.RegionSpec, year int, cloudCeilingPct float64) (*raster.CompositeRaster, error) {
	window := SummerWindow(year)
	if c.Window != nil {
		window = c.Window(year)
	}
	scenes, err := c.Source.Search(ctx, region.Bounds, window, cloudCeilingPct)
	if err != nil {
		return nil, &satelerr.DataUnavailableError{Region: region.ID(), Year: year, Reason: err.Error()}
	}
	if len(scenes) == 0 {
		return nil, &satelerr.DataUnavailableError{
			Region: region.ID(),
			Year:   year,
			Reason: fmt.Sprintf("0 scenes in %s under %g%% cloud ceiling", window, cloudCeilingPct),
		}
	}

	grid := raster.NewGrid(region.Bounds, c.ResolutionM)
	interior := grid.Interior(region)

	// Per-band sample stacks: stacks[band][pixel] collects the valid
	// reflectance samples across scenes.
	stacks := make(map[string][][]float64, len(raster.BandNames))
	for _, name := range raster.BandNames {
		stacks[name] = make([][]float64, grid.Pixels())
	}

	composite := raster.NewCompositeRaster(grid, year)
	for _, scene := range scenes {
		sr, err := c.Source.FetchBands(ctx, scene.ID, grid)
		if err != nil {
			return nil, &satelerr.DataUnavailableError{Region: region.ID(), Year: year, Reason: err.Error()}
		}
		composite.SceneIDs = append(composite.SceneIDs, scene.ID)
		composite.SceneCount++

		for _, name := range raster.BandNames {
			plane, ok := sr.Bands[name]
			if !ok {
				continue
			}
			stack := stacks[name]
			for i, dn := range plane {
				if !interior[i] {
					continue
				}
				if sr.QA[i]&(qaCloudBit|qaCirrusBit) != 0 {
					continue
				}
				v := float64(dn)
				if math.IsNaN(v) {
					continue
				}
				stack[i] = append(stack[i], v*reflectanceScale)
			}
		}
	}

	valid := 0
	for _, name := range raster.BandNames {
		out := composite.Bands[name]
		for i, samples := range stacks[name] {
			if len(samples) == 0 {
				continue
			}
			sort.Float64s(samples)
			out[i] = float32(stat.Quantile(0.5, stat.Empirical, samples, nil))
			valid++
		}
	}
	if valid == 0 {
		return nil, &satelerr.DataUnavailableError{
			Region: region.ID(),
			Year:   year,
			Reason: fmt.Sprintf("%d scenes fetched but every pixel cloud-masked", composite.SceneCount),
		}
	}

	monitoring.Logf("composited %s year %d: %d scenes, grid %s", region.Name, year, composite.SceneCount, grid)
	return composite, nil
}
