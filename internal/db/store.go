package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/change"
	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("analysis run not found")

// AnalysisRun is one persisted pipeline run: the request, the change
// summary, and the trend fit. Per-year measurements live in their own
// table and are loaded separately.
type AnalysisRun struct {
	ID             string         `json:"id"`
	Region         geo.RegionSpec `json:"region"`
	BaselineYear   int            `json:"baseline_year"`
	ComparisonYear int            `json:"comparison_year"`

	Trend *pipeline.Trend     `json:"trend,omitempty"`
	Diff  *change.DiffSummary `json:"diff,omitempty"`

	ChangeUnavailableReason string    `json:"change_unavailable_reason,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// Measurement is one persisted per-year pipeline outcome.
type Measurement struct {
	RunID               string             `json:"run_id"`
	Year                int                `json:"year"`
	State               pipeline.YearState `json:"state"`
	AreaKm2             float64            `json:"area_km2"`
	SceneCount          int                `json:"scene_count"`
	RelaxedCloudCeiling bool               `json:"relaxed_cloud_ceiling"`
	FailureReason       string             `json:"failure_reason,omitempty"`
}

// InsertReport persists a finished report: one analysis_runs row plus
// one measurements row per requested year. The change raster itself is
// not stored; overlays are re-rendered from the in-memory report.
func (db *DB) InsertReport(report *pipeline.ReconstructionReport) error {
	regionJSON, err := json.Marshal(report.Region)
	if err != nil {
		return fmt.Errorf("encode region: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var slope, intercept, rSquared sql.NullFloat64
	if report.Trend != nil {
		slope = sql.NullFloat64{Float64: report.Trend.SlopeKm2PerYear, Valid: true}
		intercept = sql.NullFloat64{Float64: report.Trend.InterceptKm2, Valid: true}
		rSquared = sql.NullFloat64{Float64: report.Trend.RSquared, Valid: true}
	}

	var baselineKm2, comparisonKm2, unchangedKm2, newKm2, regressedKm2, deltaKm2 sql.NullFloat64
	var newPixels sql.NullInt64
	if report.Diff != nil {
		baselineKm2 = sql.NullFloat64{Float64: report.Diff.BaselineKm2, Valid: true}
		comparisonKm2 = sql.NullFloat64{Float64: report.Diff.ComparisonKm2, Valid: true}
		unchangedKm2 = sql.NullFloat64{Float64: report.Diff.UnchangedBuiltKm2, Valid: true}
		newKm2 = sql.NullFloat64{Float64: report.Diff.NewConstructionKm2, Valid: true}
		regressedKm2 = sql.NullFloat64{Float64: report.Diff.RegressedKm2, Valid: true}
		deltaKm2 = sql.NullFloat64{Float64: report.Diff.DeltaAreaKm2, Valid: true}
		newPixels = sql.NullInt64{Int64: int64(report.Diff.NewConstructionPixels), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO analysis_runs (
			id, region_id, region_name, region_json,
			baseline_year, comparison_year,
			trend_slope_km2_per_year, trend_intercept_km2, trend_r_squared,
			baseline_km2, comparison_km2, unchanged_built_km2,
			new_construction_km2, regressed_km2, delta_area_km2,
			new_construction_pixels, change_unavailable_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Region.ID(), report.Region.Name, string(regionJSON),
		report.BaselineYear, report.ComparisonYear,
		slope, intercept, rSquared,
		baselineKm2, comparisonKm2, unchangedKm2,
		newKm2, regressedKm2, deltaKm2,
		newPixels, report.ChangeUnavailableReason, report.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", report.ID, err)
	}

	for _, yr := range report.Years {
		_, err = tx.Exec(`
			INSERT INTO measurements (
				run_id, year, state, area_km2,
				scene_count, relaxed_cloud_ceiling, failure_reason
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.ID, yr.Year, string(yr.State), yr.AreaKm2,
			yr.SceneCount, yr.RelaxedCloudCeiling, yr.FailureReason,
		)
		if err != nil {
			return fmt.Errorf("insert measurement %s/%d: %w", report.ID, yr.Year, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. limit <= 0
// means the default page of 50.
func (db *DB) ListRuns(limit int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(runSelectColumns+`
		FROM analysis_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or ErrRunNotFound.
func (db *DB) GetRun(id string) (*AnalysisRun, error) {
	row := db.QueryRow(runSelectColumns+` FROM analysis_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunMeasurements returns the per-year outcomes of a run, ascending by
// year. Failed years are included.
func (db *DB) RunMeasurements(runID string) ([]Measurement, error) {
	rows, err := db.Query(`
		SELECT run_id, year, state, area_km2, scene_count,
		       relaxed_cloud_ceiling, failure_reason
		FROM measurements WHERE run_id = ? ORDER BY year`, runID)
	if err != nil {
		return nil, fmt.Errorf("measurements for %s: %w", runID, err)
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		var state string
		if err := rows.Scan(
			&m.RunID, &m.Year, &state, &m.AreaKm2,
			&m.SceneCount, &m.RelaxedCloudCeiling, &m.FailureReason,
		); err != nil {
			return nil, err
		}
		m.State = pipeline.YearState(state)
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

// LoadReport rebuilds a ReconstructionReport from its persisted run
// and measurements. The change raster is not persisted, so Change is
// nil on loaded reports; the diff summary and series survive intact.
func (db *DB) LoadReport(id string) (*pipeline.ReconstructionReport, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	measurements, err := db.RunMeasurements(id)
	if err != nil {
		return nil, err
	}

	report := &pipeline.ReconstructionReport{
		ID:                      run.ID,
		Region:                  run.Region,
		BaselineYear:            run.BaselineYear,
		ComparisonYear:          run.ComparisonYear,
		Trend:                   run.Trend,
		Diff:                    run.Diff,
		ChangeUnavailableReason: run.ChangeUnavailableReason,
		CreatedAt:               run.CreatedAt,
	}
	for _, m := range measurements {
		yr := pipeline.YearResult{
			Year:                m.Year,
			State:               m.State,
			AreaKm2:             m.AreaKm2,
			SceneCount:          m.SceneCount,
			RelaxedCloudCeiling: m.RelaxedCloudCeiling,
			FailureReason:       m.FailureReason,
		}
		report.Years = append(report.Years, yr)
		if yr.Succeeded() {
			report.Series = append(report.Series, pipeline.TimeSeriesPoint{
				Year:    yr.Year,
				AreaKm2: yr.AreaKm2,
			})
		}
	}
	return report, nil
}

// RegionSeries returns the most recent measured time series for a
// region across all of its runs: for each year, the area from the
// newest run in which that year succeeded.
func (db *DB) RegionSeries(regionID string) (pipeline.TimeSeries, error) {
	// SQLite resolves the bare area_km2 column to the row carrying
	// MAX(created_at) within each year group.
	rows, err := db.Query(`
		SELECT year, area_km2 FROM (
			SELECT m.year AS year, m.area_km2 AS area_km2, MAX(r.created_at)
			FROM measurements m
			JOIN analysis_runs r ON r.id = m.run_id
			WHERE r.region_id = ? AND m.state = ?
			GROUP BY m.year
		) ORDER BY year`, regionID, string(pipeline.StateAreaComputed))
	if err != nil {
		return nil, fmt.Errorf("series for region %s: %w", regionID, err)
	}
	defer rows.Close()

	var series pipeline.TimeSeries
	for rows.Next() {
		var p pipeline.TimeSeriesPoint
		if err := rows.Scan(&p.Year, &p.AreaKm2); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

const runSelectColumns = `
	SELECT id, region_json, baseline_year, comparison_year,
	       trend_slope_km2_per_year, trend_intercept_km2, trend_r_squared,
	       baseline_km2, comparison_km2, unchanged_built_km2,
	       new_construction_km2, regressed_km2, delta_area_km2,
	       new_construction_pixels, change_unavailable_reason, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (AnalysisRun, error) {
	var run AnalysisRun
	var regionJSON string
	var slope, intercept, rSquared sql.NullFloat64
	var baselineKm2, comparisonKm2, unchangedKm2, newKm2, regressedKm2, deltaKm2 sql.NullFloat64
	var newPixels sql.NullInt64

	err := row.Scan(
		&run.ID, &regionJSON, &run.BaselineYear, &run.ComparisonYear,
		&slope, &intercept, &rSquared,
		&baselineKm2, &comparisonKm2, &unchangedKm2,
		&newKm2, &regressedKm2, &deltaKm2,
		&newPixels, &run.ChangeUnavailableReason, &run.CreatedAt,
	)
	if err != nil {
		return AnalysisRun{}, err
	}

	if err := json.Unmarshal([]byte(regionJSON), &run.Region); err != nil {
		return AnalysisRun{}, fmt.Errorf("decode region for run %s: %w", run.ID, err)
	}
	if slope.Valid {
		run.Trend = &pipeline.Trend{
			SlopeKm2PerYear: slope.Float64,
			InterceptKm2:    intercept.Float64,
			RSquared:        rSquared.Float64,
		}
	}
	if baselineKm2.Valid {
		run.Diff = &change.DiffSummary{
			BaselineKm2:           baselineKm2.Float64,
			ComparisonKm2:         comparisonKm2.Float64,
			UnchangedBuiltKm2:     unchangedKm2.Float64,
			NewConstructionKm2:    newKm2.Float64,
			RegressedKm2:          regressedKm2.Float64,
			DeltaAreaKm2:          deltaKm2.Float64,
			NewConstructionPixels: int(newPixels.Int64),
		}
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return run, nil
}
