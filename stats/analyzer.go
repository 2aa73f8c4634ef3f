package stats

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sartorproj/salesforecast/timeseries"
)

// DefaultAlpha is the significance level of the stationarity decision.
const DefaultAlpha = 0.05

// StationarityResult records the KPSS decision for one series. When the
// level test rejects, the series is differenced once and re-tested.
type StationarityResult struct {
	Series      string      `json:"series"`
	Metric      string      `json:"metric"`
	Initial     *KPSSResult `json:"initial"`
	AfterDiff   *KPSSResult `json:"after_diff,omitempty"`
	Differenced bool        `json:"differenced"`
	// ACFLags and PACFLags are the lags of Used outside the 95% white-noise
	// bound.
	ACFLags  []int `json:"acf_lags,omitempty"`
	PACFLags []int `json:"pacf_lags,omitempty"`
	// Used is the series handed to downstream stages.
	Used *timeseries.Series `json:"-"`
}

// IsStationary reports the decision on the series actually used.
func (r *StationarityResult) IsStationary() bool {
	return r.final().IsStationary
}

// PValue reports the KPSS p-value on the series actually used.
func (r *StationarityResult) PValue() float64 {
	return r.final().PValue
}

// D is the number of first differences applied (0 or 1).
func (r *StationarityResult) D() int {
	if r.Differenced {
		return 1
	}
	return 0
}

func (r *StationarityResult) final() *KPSSResult {
	if r.AfterDiff != nil {
		return r.AfterDiff
	}
	return r.Initial
}

// CorrelogramLags is the deepest lag inspected for significant
// autocorrelation; shorter series stop at half their length.
const CorrelogramLags = 24

func correlogram(series *timeseries.Series) (acfLags, pacfLags []int) {
	maxLag := min(CorrelogramLags, series.Len()/2)
	bound := ConfidenceBound(series.Len())
	return SignificantLags(ACF(series, maxLag), bound), SignificantLags(PACF(series, maxLag), bound)
}

// Analyzer runs the level KPSS test and differences at most once.
type Analyzer struct {
	alpha float64
	log   zerolog.Logger
}

// NewAnalyzer creates an analyzer; alpha <= 0 selects DefaultAlpha.
func NewAnalyzer(alpha float64, log zerolog.Logger) *Analyzer {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &Analyzer{
		alpha: alpha,
		log:   log.With().Str("component", "stationarity").Logger(),
	}
}

// TestAndDifference tests the series and, if p <= alpha, differences it once
// and re-tests. It never differences a second time.
func (a *Analyzer) TestAndDifference(series *timeseries.Series) (*StationarityResult, error) {
	initial, err := KPSS(series, Level, 0)
	if err != nil {
		return nil, fmt.Errorf("kpss on %s: %w", series.Key(), err)
	}
	initial.IsStationary = initial.PValue > a.alpha

	res := &StationarityResult{
		Series:  series.Name,
		Metric:  series.Metric,
		Initial: initial,
		Used:    series,
	}

	if !initial.IsStationary {
		diffed := series.Diff()
		after, err := KPSS(diffed, Level, 0)
		if err != nil {
			return nil, fmt.Errorf("kpss on differenced %s: %w", series.Key(), err)
		}
		after.IsStationary = after.PValue > a.alpha
		res.AfterDiff = after
		res.Differenced = true
		res.Used = diffed
	}
	res.ACFLags, res.PACFLags = correlogram(res.Used)

	a.log.Debug().
		Str("series", series.Key()).
		Float64("statistic", initial.Statistic).
		Float64("p_value", initial.PValue).
		Bool("differenced", res.Differenced).
		Bool("stationary", res.IsStationary()).
		Ints("acf_lags", res.ACFLags).
		Msg("stationarity tested")

	return res, nil
}
