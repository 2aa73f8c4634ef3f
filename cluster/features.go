package cluster

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// ErrConstantSeries is returned for a series with zero variance, whose
// strengths are undefined.
var ErrConstantSeries = errors.New("constant series")

// Features are the component strengths of one series: the variance of each
// additive decomposition component over the variance of the series. They are
// not clamped and the random strength may exceed 1.
type Features struct {
	Series           string  `json:"series"`
	TrendStrength    float64 `json:"trend_strength"`
	SeasonalStrength float64 `json:"seasonal_strength"`
	RandomStrength   float64 `json:"random_strength"`
}

func (f Features) vector() []float64 {
	return []float64{f.TrendStrength, f.SeasonalStrength, f.RandomStrength}
}

// ExtractFeatures decomposes the full series with a period-12 additive
// decomposition. Fewer than 24 observations yields a
// *timeseries.InsufficientHistoryError.
func ExtractFeatures(series *timeseries.Series) (Features, error) {
	f := Features{Series: series.Name}

	decomp, err := stats.Decompose(series, timeseries.MonthlyFrequency, stats.Additive)
	if err != nil {
		return f, fmt.Errorf("%s: %w", series.Name, err)
	}
	total := stats.NaNVariance(series.Values)
	if total == 0 {
		return f, fmt.Errorf("%s: %w", series.Name, ErrConstantSeries)
	}

	f.TrendStrength = stats.NaNVariance(decomp.Trend.Values) / total
	f.SeasonalStrength = stats.NaNVariance(decomp.Seasonal.Values) / total
	f.RandomStrength = stats.NaNVariance(decomp.Residual.Values) / total
	return f, nil
}

// ExtractAll runs ExtractFeatures over series on at most workers goroutines.
// Features come back in input order for the series that could be decomposed;
// the others are reported in skipped by name.
func ExtractAll(ctx context.Context, series []*timeseries.Series, workers int) ([]Features, map[string]error) {
	features := make([]Features, len(series))
	errs := make([]error, len(series))

	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, s := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			features[i], errs[i] = ExtractFeatures(s)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Features, 0, len(series))
	skipped := make(map[string]error)
	for i, s := range series {
		if errs[i] != nil {
			skipped[s.Name] = errs[i]
			continue
		}
		out = append(out, features[i])
	}
	return out, skipped
}
