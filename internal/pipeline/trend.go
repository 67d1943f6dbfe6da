package pipeline

import "gonum.org/v1/gonum/stat"

// ComputeTrend fits a least-squares line through the time series and
// reports the growth slope in km² per year. Returns nil when fewer
// than two points are available.
func ComputeTrend(series TimeSeries) *Trend {
	if len(series) < 2 {
		return nil
	}
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = float64(p.Year)
		ys[i] = p.AreaKm2
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	return &Trend{
		SlopeKm2PerYear: slope,
		InterceptKm2:    intercept,
		RSquared:        r2,
	}
}
