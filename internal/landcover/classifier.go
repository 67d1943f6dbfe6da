// Package landcover wraps the external land-cover classifier and turns
// its output into binary built-up masks. The classifier is a versioned
// black box behind a single-method interface; this package never
// inspects anything but the built-class signal.
package landcover

import (
	"context"

	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// Class indices of the classifier's fixed label set.
const (
	ClassWater uint8 = iota
	ClassTrees
	ClassGrass
	ClassFloodedVegetation
	ClassCrops
	ClassShrubAndScrub
	ClassBuilt
	ClassBare
	ClassSnowAndIce
)

// ClassNames maps class index to the provider's label name.
var ClassNames = []string{
	"water",
	"trees",
	"grass",
	"flooded_vegetation",
	"crops",
	"shrub_and_scrub",
	"built",
	"bare",
	"snow_and_ice",
}

// ClassCount is the size of the label set.
const ClassCount = 9

// DefaultBuiltThreshold is the decision threshold applied to
// probability-mode output.
const DefaultBuiltThreshold = 0.5

// Classifier is the capability boundary to the external model. Swapping
// providers or model versions means swapping this implementation;
// pipeline logic never changes.
type Classifier interface {
	Classify(ctx context.Context, composite *raster.CompositeRaster) (*raster.ClassificationRaster, error)
}
