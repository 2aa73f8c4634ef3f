package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/salesforecast/timeseries"
)

// DecompositionType selects how the components combine.
type DecompositionType string

const (
	// Additive models Y = T + S + R.
	Additive DecompositionType = "additive"
	// Multiplicative models Y = T * S * R.
	Multiplicative DecompositionType = "multiplicative"
)

// DecompositionResult holds the classical decomposition of a series. Trend
// and Residual are NaN over the first and last period/2 observations.
type DecompositionResult struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Type     DecompositionType
}

// Decompose performs classical decomposition with a centered moving average
// trend. It needs at least two full periods.
func Decompose(series *timeseries.Series, period int, kind DecompositionType) (*DecompositionResult, error) {
	n := series.Len()
	if period < 2 {
		period = timeseries.MonthlyFrequency
	}
	if err := timeseries.RequireHistory("decompose", 2*period, n); err != nil {
		return nil, err
	}
	if kind != Multiplicative {
		kind = Additive
	}

	trend := movingAverageTrend(series.Values, period)

	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			detrended[i] = math.NaN()
		case kind == Multiplicative:
			if trend[i] == 0 {
				detrended[i] = math.NaN()
			} else {
				detrended[i] = series.Values[i] / trend[i]
			}
		default:
			detrended[i] = series.Values[i] - trend[i]
		}
	}

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		if !math.IsNaN(v) {
			pattern[i%period] += v
			counts[i%period]++
		}
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}

	center := stat.Mean(pattern, nil)
	for i := range pattern {
		if kind == Multiplicative {
			pattern[i] /= center
		} else {
			pattern[i] -= center
		}
	}

	seasonal := make([]float64, n)
	for i := range seasonal {
		seasonal[i] = pattern[i%period]
	}

	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case kind == Multiplicative:
			if trend[i] == 0 || seasonal[i] == 0 {
				residual[i] = math.NaN()
			} else {
				residual[i] = series.Values[i] / (trend[i] * seasonal[i])
			}
		default:
			residual[i] = series.Values[i] - trend[i] - seasonal[i]
		}
	}

	return &DecompositionResult{
		Original: series,
		Trend:    component(series, trend, "trend"),
		Seasonal: component(series, seasonal, "seasonal"),
		Residual: component(series, residual, "residual"),
		Period:   period,
		Type:     kind,
	}, nil
}

func component(src *timeseries.Series, values []float64, metric string) *timeseries.Series {
	ts := make([]time.Time, len(src.Timestamps))
	copy(ts, src.Timestamps)
	return &timeseries.Series{
		Timestamps: ts,
		Values:     values,
		Name:       src.Name,
		Metric:     metric,
		Frequency:  src.Frequency,
	}
}

// movingAverageTrend is a centered moving average; even periods use the
// 2xperiod filter with half weights at both ends.
func movingAverageTrend(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		trend[i] = sum / float64(period)
	}
	return trend
}

// NaNVariance is the sample variance of the non-NaN entries of data, or 0
// when fewer than two remain.
func NaNVariance(data []float64) float64 {
	valid := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return 0
	}
	return stat.Variance(valid, nil)
}
