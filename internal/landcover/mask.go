package landcover

import (
	"fmt"
	"math"

	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// ExtractBuiltMask thresholds classifier output into the binary
// built-up mask for the raster's year. Categorical output marks a pixel
// built when its top label is the built class; probability output marks
// it built when p(built) meets the threshold (DefaultBuiltThreshold
// when threshold is zero). Nodata pixels are never built. The grid is
// carried over untouched — no resampling — so pixel-wise diffing
// downstream stays valid. Pure function of its inputs.
func ExtractBuiltMask(cls *raster.ClassificationRaster, threshold float64) (*raster.BuiltMask, error) {
	if cls == nil {
		return nil, fmt.Errorf("nil classification raster")
	}
	if threshold == 0 {
		threshold = DefaultBuiltThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("built threshold must be within [0, 1], got %g", threshold)
	}

	mask := raster.NewBuiltMask(cls.Grid, cls.Year)
	switch {
	case cls.Categorical():
		if len(cls.Labels) != cls.Grid.Pixels() {
			return nil, fmt.Errorf("label plane has %d samples, grid has %d pixels", len(cls.Labels), cls.Grid.Pixels())
		}
		for i, label := range cls.Labels {
			mask.Bits[i] = label == ClassBuilt
		}
	case cls.Probs != nil:
		if int(ClassBuilt) >= len(cls.Probs) {
			return nil, fmt.Errorf("probability raster has %d classes, no built plane", len(cls.Probs))
		}
		built := cls.Probs[ClassBuilt]
		if len(built) != cls.Grid.Pixels() {
			return nil, fmt.Errorf("built probability plane has %d samples, grid has %d pixels", len(built), cls.Grid.Pixels())
		}
		for i, p := range built {
			v := float64(p)
			mask.Bits[i] = !math.IsNaN(v) && v >= threshold
		}
	default:
		return nil, fmt.Errorf("classification raster carries neither labels nor probabilities")
	}
	return mask, nil
}
