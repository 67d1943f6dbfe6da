package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elvinvaliyev/karabakh-monitor/internal/change"
	"github.com/elvinvaliyev/karabakh-monitor/internal/config"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/imagery"
	"github.com/elvinvaliyev/karabakh-monitor/internal/landcover"
	"github.com/elvinvaliyev/karabakh-monitor/internal/monitoring"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
	"github.com/elvinvaliyev/karabakh-monitor/internal/timeutil"
)

// Orchestrator runs the per-year pipelines and joins the anchor years
// into a ReconstructionReport. Safe for concurrent use; per-year state
// lives in explicit cache slots, never in package globals.
type Orchestrator struct {
	compositor *imagery.Compositor
	classifier landcover.Classifier
	cfg        *config.AnalysisConfig
	cache      *Cache
	clock      timeutil.Clock
}

// NewOrchestrator wires the pipeline stages together. A nil cfg means
// shipped defaults.
func NewOrchestrator(compositor *imagery.Compositor, classifier landcover.Classifier, cfg *config.AnalysisConfig) *Orchestrator {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Orchestrator{
		compositor: compositor,
		classifier: classifier,
		cfg:        cfg,
		cache:      NewCache(),
		clock:      timeutil.RealClock{},
	}
}

// SetClock replaces the orchestrator's clock. Intended for tests.
func (o *Orchestrator) SetClock(clock timeutil.Clock) { o.clock = clock }

// Cache exposes the stage cache, mainly so callers can observe warm
// state in tests and diagnostics.
func (o *Orchestrator) Cache() *Cache { return o.cache }

// Run executes the pipeline for every year in the region's range and
// diffs baselineYear against comparisonYear. Invalid regions and
// malformed anchor years fail eagerly; per-year provider and classifier
// failures are recorded in the report and do not abort other years.
// A grid mismatch at the join is a programming error and aborts the run.
func (o *Orchestrator) Run(ctx context.Context, region geo.RegionSpec, baselineYear, comparisonYear int) (*ReconstructionReport, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	years := region.Years()
	if !containsYear(years, baselineYear) {
		return nil, &geo.InvalidRegionError{Reason: fmt.Sprintf("baseline year %d outside analysis range [%d, %d]", baselineYear, region.StartYear, region.EndYear)}
	}
	if !containsYear(years, comparisonYear) {
		return nil, &geo.InvalidRegionError{Reason: fmt.Sprintf("comparison year %d outside analysis range [%d, %d]", comparisonYear, region.StartYear, region.EndYear)}
	}
	if baselineYear >= comparisonYear {
		return nil, &geo.InvalidRegionError{Reason: fmt.Sprintf("baseline year %d must precede comparison year %d", baselineYear, comparisonYear)}
	}

	results := make([]YearResult, len(years))
	masks := make([]*raster.BuiltMask, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.GetMaxConcurrentYears())
	for i, year := range years {
		i, year := i, year
		g.Go(func() error {
			mask, res := o.runYear(gctx, region, year)
			masks[i], results[i] = mask, res
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ReconstructionReport{
		ID:             uuid.NewString(),
		Region:         region,
		BaselineYear:   baselineYear,
		ComparisonYear: comparisonYear,
		Years:          results,
		CreatedAt:      o.clock.Now(),
	}
	for _, res := range results {
		if res.Succeeded() {
			report.Series = append(report.Series, TimeSeriesPoint{Year: res.Year, AreaKm2: res.AreaKm2})
		}
	}
	report.Trend = ComputeTrend(report.Series)

	baselineMask := masks[indexOfYear(years, baselineYear)]
	comparisonMask := masks[indexOfYear(years, comparisonYear)]
	switch {
	case baselineMask == nil:
		report.ChangeUnavailableReason = fmt.Sprintf("baseline year %d failed: %s", baselineYear, failureReason(results, baselineYear))
	case comparisonMask == nil:
		report.ChangeUnavailableReason = fmt.Sprintf("comparison year %d failed: %s", comparisonYear, failureReason(results, comparisonYear))
	default:
		changeRaster, summary, err := change.Diff(baselineMask, comparisonMask)
		if err != nil {
			// Masks from one region/resolution always share a grid;
			// reaching this means the cache or compositor is broken.
			return nil, err
		}
		report.Change = changeRaster
		report.Diff = &summary
	}

	monitoring.Logf("analysis %s complete: region=%s years=%d-%d ok=%d failed=%d",
		report.ID, region.Name, region.StartYear, region.EndYear,
		len(report.Series), len(report.FailedYears()))
	return report, nil
}

// runYear advances one year through the stage machine. Failures are
// returned inside the YearResult; only context cancellation escapes.
func (o *Orchestrator) runYear(ctx context.Context, region geo.RegionSpec, year int) (*raster.BuiltMask, YearResult) {
	res := YearResult{Year: year, State: StatePending}
	regionID := region.ID()

	fail := func(err error) (*raster.BuiltMask, YearResult) {
		res.State = StateFailed
		res.FailureReason = err.Error()
		monitoring.Logf("year %d failed: %v", year, err)
		return nil, res
	}

	// A cached mask short-circuits the whole year, classifier call
	// included — classifier calls dominate cost.
	if v, ok := o.cache.Get(regionID, year, StageMask); ok {
		mask := v.(*raster.BuiltMask)
		if c, ok := o.cache.Get(regionID, year, StageComposite); ok {
			res.SceneCount = c.(*raster.CompositeRaster).SceneCount
		}
		res.AreaKm2 = change.AggregateArea(mask, mask.Grid.ResolutionM)
		res.State = StateAreaComputed
		return mask, res
	}

	res.State = StateCompositing
	composite, err := o.composite(ctx, region, year, &res)
	if err != nil {
		return fail(err)
	}
	composite = o.cache.Put(regionID, year, StageComposite, composite).(*raster.CompositeRaster)
	res.SceneCount = composite.SceneCount

	res.State = StateClassifying
	var cls *raster.ClassificationRaster
	if v, ok := o.cache.Get(regionID, year, StageClassification); ok {
		cls = v.(*raster.ClassificationRaster)
	} else {
		cls, err = o.classifier.Classify(ctx, composite)
		if err != nil {
			if !errors.Is(err, satelerr.ErrClassifierUnavailable) {
				err = &satelerr.ClassifierUnavailableError{Year: year, Cause: err}
			}
			return fail(err)
		}
		cls = o.cache.Put(regionID, year, StageClassification, cls).(*raster.ClassificationRaster)
	}

	mask, err := landcover.ExtractBuiltMask(cls, o.cfg.GetBuiltThreshold())
	if err != nil {
		return fail(err)
	}
	res.State = StateMasked
	mask = o.cache.Put(regionID, year, StageMask, mask).(*raster.BuiltMask)

	res.AreaKm2 = change.AggregateArea(mask, mask.Grid.ResolutionM)
	res.State = StateAreaComputed
	return mask, res
}

// composite builds the year's composite, retrying once with a relaxed
// cloud ceiling when the default ceiling leaves no usable scenes. One
// bounded retry, never more; after that the failure surfaces.
func (o *Orchestrator) composite(ctx context.Context, region geo.RegionSpec, year int, res *YearResult) (*raster.CompositeRaster, error) {
	if v, ok := o.cache.Get(region.ID(), year, StageComposite); ok {
		return v.(*raster.CompositeRaster), nil
	}

	ceiling := o.cfg.GetCloudCeilingPct()
	composite, err := o.compositor.CompositeAt(ctx, region, year, ceiling)
	if err == nil {
		return composite, nil
	}
	if !errors.Is(err, satelerr.ErrDataUnavailable) || ctx.Err() != nil {
		return nil, err
	}

	relaxed := ceiling * 2
	if max := o.cfg.GetMaxCloudRelaxPct(); relaxed > max {
		relaxed = max
	}
	if relaxed <= ceiling {
		return nil, err
	}
	monitoring.Logf("year %d: no scenes under %g%% cloud ceiling, retrying at %g%%", year, ceiling, relaxed)
	composite, retryErr := o.compositor.CompositeAt(ctx, region, year, relaxed)
	if retryErr != nil {
		return nil, err // surface the original failure
	}
	res.RelaxedCloudCeiling = true
	return composite, nil
}

func containsYear(years []int, year int) bool {
	return indexOfYear(years, year) >= 0
}

func indexOfYear(years []int, year int) int {
	for i, y := range years {
		if y == year {
			return i
		}
	}
	return -1
}

func failureReason(results []YearResult, year int) string {
	for _, r := range results {
		if r.Year == year {
			return r.FailureReason
		}
	}
	return "unknown"
}
