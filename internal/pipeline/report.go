// Package pipeline sequences compositing, classification, masking, and
// area aggregation per analysis year, then joins the baseline and
// comparison years into a change report. Per-year runs are independent
// and failures are year-scoped; the report is the terminal artifact
// handed to persistence and rendering.
package pipeline

import (
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/change"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// YearState is the per-year pipeline state. A year advances
// pending → compositing → classifying → masked → area_computed, or
// terminates at failed.
type YearState string

const (
	StatePending      YearState = "pending"
	StateCompositing  YearState = "compositing"
	StateClassifying  YearState = "classifying"
	StateMasked       YearState = "masked"
	StateAreaComputed YearState = "area_computed"
	StateFailed       YearState = "failed"
)

// YearResult records one year's terminal pipeline state. Failed years
// carry the reason; successful years carry the measured area and
// composite provenance.
type YearResult struct {
	Year                int       `json:"year"`
	State               YearState `json:"state"`
	AreaKm2             float64   `json:"area_km2"`
	SceneCount          int       `json:"scene_count,omitempty"`
	RelaxedCloudCeiling bool      `json:"relaxed_cloud_ceiling,omitempty"`
	FailureReason       string    `json:"failure_reason,omitempty"`
}

// Succeeded reports whether the year reached area_computed.
func (r YearResult) Succeeded() bool { return r.State == StateAreaComputed }

// TimeSeriesPoint is one (year, area) measurement.
type TimeSeriesPoint struct {
	Year    int     `json:"year"`
	AreaKm2 float64 `json:"area_km2"`
}

// TimeSeries is ascending by year with no duplicate years; it carries
// only the years that completed the pipeline.
type TimeSeries []TimeSeriesPoint

// Years returns the series years in order.
func (ts TimeSeries) Years() []int {
	years := make([]int, len(ts))
	for i, p := range ts {
		years[i] = p.Year
	}
	return years
}

// Trend is the linear growth fit over a time series.
type Trend struct {
	SlopeKm2PerYear float64 `json:"slope_km2_per_year"`
	InterceptKm2    float64 `json:"intercept_km2"`
	RSquared        float64 `json:"r_squared"`
}

// ReconstructionReport is the read-only terminal artifact of one
// analysis request. The change raster is nil when either anchor year
// failed, with the reason in ChangeUnavailableReason; the time series
// still carries whatever years succeeded.
type ReconstructionReport struct {
	ID             string         `json:"id"`
	Region         geo.RegionSpec `json:"region"`
	BaselineYear   int            `json:"baseline_year"`
	ComparisonYear int            `json:"comparison_year"`

	Series TimeSeries   `json:"series"`
	Years  []YearResult `json:"years"`
	Trend  *Trend       `json:"trend,omitempty"`

	// Change is the spatial diff; omitted from JSON because of its
	// size, exported separately as a PNG overlay.
	Change *raster.ChangeRaster `json:"-"`

	Diff                    *change.DiffSummary `json:"diff,omitempty"`
	ChangeUnavailableReason string              `json:"change_unavailable_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Point returns the series point for a year, if the year succeeded.
func (r *ReconstructionReport) Point(year int) (TimeSeriesPoint, bool) {
	for _, p := range r.Series {
		if p.Year == year {
			return p, true
		}
	}
	return TimeSeriesPoint{}, false
}

// FailedYears returns the results of years that did not complete.
func (r *ReconstructionReport) FailedYears() []YearResult {
	var failed []YearResult
	for _, yr := range r.Years {
		if !yr.Succeeded() {
			failed = append(failed, yr)
		}
	}
	return failed
}
