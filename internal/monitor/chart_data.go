// Chart data preparation for the growth and change visualisations.
// This file separates data transformation from eCharts rendering for
// improved testability.
package monitor

import (
	"fmt"

	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
)

// GrowthChartData holds prepared data for rendering the built-up area
// time series chart.
type GrowthChartData struct {
	RegionName string    `json:"region_name"`
	Units      string    `json:"units"`
	Years      []string  `json:"years"`
	Areas      []float64 `json:"areas"`

	// TrendAreas carries the fitted line sampled at the same years,
	// empty when no trend could be computed.
	TrendAreas []float64 `json:"trend_areas,omitempty"`
	TrendLabel string    `json:"trend_label,omitempty"`

	// FailedYears annotates years the pipeline could not measure.
	FailedYears []string `json:"failed_years,omitempty"`
}

// ChangeChartData holds prepared data for rendering the baseline vs
// comparison change summary chart.
type ChangeChartData struct {
	RegionName     string    `json:"region_name"`
	Units          string    `json:"units"`
	BaselineYear   int       `json:"baseline_year"`
	ComparisonYear int       `json:"comparison_year"`
	Labels         []string  `json:"labels"`
	Areas          []float64 `json:"areas"`
}

// PrepareGrowthChartData transforms a report's time series into chart
// series, converting areas to the display unit.
func PrepareGrowthChartData(report *pipeline.ReconstructionReport, unit string) *GrowthChartData {
	if !units.IsValid(unit) {
		unit = units.KM2
	}

	data := &GrowthChartData{
		RegionName: report.Region.Name,
		Units:      unit,
		Years:      make([]string, 0, len(report.Series)),
		Areas:      make([]float64, 0, len(report.Series)),
	}

	for _, p := range report.Series {
		data.Years = append(data.Years, fmt.Sprintf("%d", p.Year))
		data.Areas = append(data.Areas, units.ConvertArea(p.AreaKm2, unit))
	}

	if report.Trend != nil && len(report.Series) >= 2 {
		data.TrendAreas = make([]float64, 0, len(report.Series))
		for _, p := range report.Series {
			fit := report.Trend.InterceptKm2 + report.Trend.SlopeKm2PerYear*float64(p.Year)
			data.TrendAreas = append(data.TrendAreas, units.ConvertArea(fit, unit))
		}
		data.TrendLabel = fmt.Sprintf("trend %.3f %s/yr (R²=%.2f)",
			units.ConvertArea(report.Trend.SlopeKm2PerYear, unit), unit, report.Trend.RSquared)
	}

	for _, yr := range report.FailedYears() {
		data.FailedYears = append(data.FailedYears, fmt.Sprintf("%d", yr.Year))
	}

	return data
}

// PrepareChangeChartData transforms a report's diff summary into chart
// bars. Returns nil when the report has no diff.
func PrepareChangeChartData(report *pipeline.ReconstructionReport, unit string) *ChangeChartData {
	if report.Diff == nil {
		return nil
	}
	if !units.IsValid(unit) {
		unit = units.KM2
	}

	diff := report.Diff
	return &ChangeChartData{
		RegionName:     report.Region.Name,
		Units:          unit,
		BaselineYear:   report.BaselineYear,
		ComparisonYear: report.ComparisonYear,
		Labels: []string{
			fmt.Sprintf("Built %d", report.BaselineYear),
			fmt.Sprintf("Built %d", report.ComparisonYear),
			"Unchanged Built",
			"New Construction",
			"Regressed",
		},
		Areas: []float64{
			units.ConvertArea(diff.BaselineKm2, unit),
			units.ConvertArea(diff.ComparisonKm2, unit),
			units.ConvertArea(diff.UnchangedBuiltKm2, unit),
			units.ConvertArea(diff.NewConstructionKm2, unit),
			units.ConvertArea(diff.RegressedKm2, unit),
		},
	}
}
