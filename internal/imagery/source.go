// Package imagery talks to the satellite imagery provider and reduces
// multi-scene stacks into cloud-free yearly composites.
package imagery

import (
	"context"
	"fmt"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// Scene is one catalog entry: a single satellite acquisition covering
// the search bounds.
type Scene struct {
	ID            string    `json:"id"`
	AcquiredAt    time.Time `json:"acquired_at"`
	CloudCoverPct float64   `json:"cloud_cover_pct"`
}

// SceneRaster is the pixel payload for one scene resampled onto the
// analysis grid: raw digital numbers per band plus the quality bitmask
// plane. NaN marks pixels the provider had no data for.
type SceneRaster struct {
	SceneID string
	Grid    raster.Grid
	Bands   map[string][]float32
	QA      []uint16
}

// TimeWindow is a half-open [Start, End) acquisition interval.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// SummerWindow returns the default June–September analysis window for
// a year. Restricting every year to the same summer sub-range keeps
// the composites seasonally comparable and avoids snow cover.
func SummerWindow(year int) TimeWindow {
	return MonthWindow(year, 6, 9)
}

// MonthWindow returns the window spanning startMonth through the end
// of endMonth (inclusive) within year.
func MonthWindow(year, startMonth, endMonth int) TimeWindow {
	return TimeWindow{
		Start: time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.Month(endMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0),
	}
}

// SceneSource is the imagery provider boundary. Implementations are
// expected to honour context cancellation; all calls may be
// long-running network operations.
type SceneSource interface {
	// Search lists scenes intersecting bounds within the window whose
	// scene-level cloud cover is at or below maxCloudPct, ordered by
	// acquisition time.
	Search(ctx context.Context, bounds geo.BBox, window TimeWindow, maxCloudPct float64) ([]Scene, error)

	// FetchBands retrieves one scene's band planes resampled to grid.
	FetchBands(ctx context.Context, sceneID string, grid raster.Grid) (*SceneRaster, error)
}
