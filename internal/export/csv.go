package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/elvinvaliyev/karabakh-monitor/internal/pipeline"
	"github.com/elvinvaliyev/karabakh-monitor/internal/units"
)

// SeriesCSV encodes the per-year outcomes, failed years included, with
// areas in km².
func SeriesCSV(report *pipeline.ReconstructionReport) ([]byte, error) {
	return SeriesCSVInUnits(report, units.KM2)
}

// SeriesCSVInUnits encodes the per-year outcomes with areas converted
// to the requested display unit.
func SeriesCSVInUnits(report *pipeline.ReconstructionReport, unit string) ([]byte, error) {
	if !units.IsValid(unit) {
		return nil, fmt.Errorf("invalid area unit %q (valid: %s)", unit, units.GetValidUnitsString())
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"year", "state", "area_" + unit, "scene_count", "relaxed_cloud_ceiling", "failure_reason"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, yr := range report.Years {
		area := ""
		if yr.Succeeded() {
			area = strconv.FormatFloat(units.ConvertArea(yr.AreaKm2, unit), 'f', 6, 64)
		}
		record := []string{
			strconv.Itoa(yr.Year),
			string(yr.State),
			area,
			strconv.Itoa(yr.SceneCount),
			strconv.FormatBool(yr.RelaxedCloudCeiling),
			yr.FailureReason,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
