package autoarima

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/salesforecast/arima"
	"github.com/sartorproj/salesforecast/sarima"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// ErrNoModel is returned when no candidate order could be fitted.
var ErrNoModel = errors.New("no ARIMA candidate could be fitted")

// Criterion is the information criterion minimised by the search.
type Criterion string

const (
	AIC  Criterion = "aic"
	AICc Criterion = "aicc"
	BIC  Criterion = "bic"
)

// Config holds configuration for auto ARIMA search.
type Config struct {
	MaxP        int
	MaxD        int
	MaxQ        int
	MaxSP       int
	MaxSD       int
	MaxSQ       int
	Seasonal    bool
	SeasonalM   int
	Stepwise    bool
	Criterion   Criterion
	StationTest stats.UnitRootTest
	// FixedD, when non-nil, pins the non-seasonal differencing order instead
	// of testing for it.
	FixedD *int
}

// DefaultConfig returns the configuration used for monthly sales series.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Seasonal:    true,
		SeasonalM:   timeseries.MonthlyFrequency,
		Stepwise:    true,
		Criterion:   AIC,
		StationTest: stats.UnitRootKPSS,
	}
}

// Result represents the result of auto ARIMA model selection.
type Result struct {
	Model         *arima.Model
	SeasonalModel *sarima.Model

	P  int
	D  int
	Q  int
	SP int
	SD int
	SQ int
	M  int

	AIC       float64
	BIC       float64
	LogLik    float64
	Criterion float64

	ModelsEvaluated int
	IsSeasonal      bool
}

type candidate struct {
	p, q, sp, sq int
}

type fittedModel interface {
	Predict(steps int) ([]float64, error)
	PredictWithInterval(steps int, confidence float64) ([]float64, []float64, []float64, error)
	Residuals() []float64
	String() string
}

// AutoARIMA selects and fits the best ARIMA or SARIMA model for series. The
// context is checked between candidate fits.
func AutoARIMA(ctx context.Context, series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}

	d := determineDifferencing(series, config.MaxD, config.StationTest)
	if config.FixedD != nil {
		d = *config.FixedD
	}

	m := config.SeasonalM
	if m <= 0 {
		m = series.Period()
	}
	seasonal := config.Seasonal && m > 1 && series.Len() >= 2*m

	if seasonal {
		sd := min(stats.NSDiffs(series, m, config.MaxSD), config.MaxSD)
		res, err := search(ctx, series, d, sd, m, config)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// fall through to the non-seasonal search
	}

	return search(ctx, series, d, 0, 0, config)
}

// determineDifferencing combines KPSS and ADF: the series counts as
// stationary when both agree, or when KPSS alone is comfortably above 10%.
func determineDifferencing(series *timeseries.Series, maxD int, test stats.UnitRootTest) int {
	if maxD <= 0 {
		maxD = 2
	}
	if test == stats.UnitRootADF {
		return stats.NDiffs(series, maxD, stats.UnitRootADF)
	}

	current := series
	for d := 0; d < maxD; d++ {
		kpss, err := stats.KPSS(current, stats.Level, 0)
		if err != nil {
			return d
		}
		adf, err := stats.ADF(current, 0)
		adfStationary := err == nil && adf.IsStationary

		if kpss.IsStationary && (adfStationary || kpss.PValue >= 0.1) {
			return d
		}

		current = current.Diff()
		if current.Len() < stats.MinTestLength {
			return d + 1
		}
	}
	return maxD
}

func search(ctx context.Context, series *timeseries.Series, d, sd, m int, config *Config) (*Result, error) {
	isSeasonal := m > 1
	maxSP, maxSQ := 0, 0
	if isSeasonal {
		maxSP, maxSQ = config.MaxSP, config.MaxSQ
	}

	inBounds := func(c candidate) bool {
		return c.p >= 0 && c.p <= config.MaxP && c.q >= 0 && c.q <= config.MaxQ &&
			c.sp >= 0 && c.sp <= maxSP && c.sq >= 0 && c.sq <= maxSQ
	}

	var (
		best      *Result
		evaluated int
		lastErr   error
		tried     = map[candidate]bool{}
	)

	try := func(c candidate) (bool, error) {
		if !inBounds(c) || tried[c] {
			return false, nil
		}
		tried[c] = true
		if err := ctx.Err(); err != nil {
			return false, err
		}

		res, err := fitCandidate(series, c, d, sd, m, config.Criterion)
		if err != nil {
			lastErr = err
			return false, nil
		}
		evaluated++
		if best == nil || res.Criterion < best.Criterion {
			best = res
			return true, nil
		}
		return false, nil
	}

	if config.Stepwise {
		starts := []candidate{{0, 0, 0, 0}, {1, 0, 1, 0}, {0, 1, 0, 1}, {1, 1, 1, 1}, {2, 2, 1, 1}}
		for _, c := range starts {
			if !isSeasonal {
				c.sp, c.sq = 0, 0
			}
			if _, err := try(c); err != nil {
				return nil, err
			}
		}

		for improved := best != nil; improved; {
			improved = false
			cur := candidate{best.P, best.Q, best.SP, best.SQ}
			neighbors := []candidate{
				{cur.p + 1, cur.q, cur.sp, cur.sq},
				{cur.p - 1, cur.q, cur.sp, cur.sq},
				{cur.p, cur.q + 1, cur.sp, cur.sq},
				{cur.p, cur.q - 1, cur.sp, cur.sq},
				{cur.p + 1, cur.q + 1, cur.sp, cur.sq},
				{cur.p - 1, cur.q - 1, cur.sp, cur.sq},
				{cur.p, cur.q, cur.sp + 1, cur.sq},
				{cur.p, cur.q, cur.sp - 1, cur.sq},
				{cur.p, cur.q, cur.sp, cur.sq + 1},
				{cur.p, cur.q, cur.sp, cur.sq - 1},
			}
			for _, c := range neighbors {
				ok, err := try(c)
				if err != nil {
					return nil, err
				}
				if ok {
					improved = true
				}
			}
		}
	} else {
		for p := 0; p <= config.MaxP; p++ {
			for q := 0; q <= config.MaxQ; q++ {
				for sp := 0; sp <= maxSP; sp++ {
					for sq := 0; sq <= maxSQ; sq++ {
						if _, err := try(candidate{p, q, sp, sq}); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	if best == nil {
		if lastErr != nil && errors.Is(lastErr, timeseries.ErrInsufficientHistory) {
			return nil, lastErr
		}
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoModel, lastErr)
		}
		return nil, ErrNoModel
	}

	best.ModelsEvaluated = evaluated
	return best, nil
}

func fitCandidate(series *timeseries.Series, c candidate, d, sd, m int, criterion Criterion) (*Result, error) {
	res := &Result{P: c.p, D: d, Q: c.q, SP: c.sp, SD: sd, SQ: c.sq, M: m}

	var aic, aicc, bic, loglik float64
	var model fittedModel
	if m > 1 {
		sm := sarima.New(c.p, d, c.q, c.sp, sd, c.sq, m)
		if err := sm.Fit(series); err != nil {
			return nil, err
		}
		res.SeasonalModel = sm
		res.IsSeasonal = true
		aic, aicc, bic, loglik = sm.AIC, sm.AICc, sm.BIC, sm.LogLik
		model = sm
	} else {
		am := arima.New(c.p, d, c.q)
		if err := am.Fit(series); err != nil {
			return nil, err
		}
		res.Model = am
		aic, aicc, bic, loglik = am.AIC, am.AICc, am.BIC, am.LogLik
		model = am
	}

	res.AIC, res.BIC, res.LogLik = aic, bic, loglik
	switch criterion {
	case BIC:
		res.Criterion = bic
	case AICc:
		res.Criterion = aicc
	default:
		res.Criterion = aic
	}
	if math.IsNaN(res.Criterion) {
		return nil, fmt.Errorf("%s: criterion is NaN", model.String())
	}
	return res, nil
}

func (r *Result) model() fittedModel {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel
	}
	if r.Model != nil {
		return r.Model
	}
	return nil
}

// String renders the selected order.
func (r *Result) String() string {
	if m := r.model(); m != nil {
		return m.String()
	}
	return "ARIMA(?)"
}

// Predict generates forecasts using the selected model.
func (r *Result) Predict(steps int) ([]float64, error) {
	m := r.model()
	if m == nil {
		return nil, arima.ErrNotFitted
	}
	return m.Predict(steps)
}

// PredictWithInterval generates forecasts with prediction intervals.
func (r *Result) PredictWithInterval(steps int, confidence float64) (point, lower, upper []float64, err error) {
	m := r.model()
	if m == nil {
		return nil, nil, nil, arima.ErrNotFitted
	}
	return m.PredictWithInterval(steps, confidence)
}

// Diagnostics returns the Ljung-Box test on the selected model's
// residuals, or nil when there is no model or too few residuals to test.
func (r *Result) Diagnostics() *stats.LjungBoxResult {
	switch {
	case r.IsSeasonal && r.SeasonalModel != nil:
		if s := r.SeasonalModel.Summary(); s != nil {
			return s.LjungBox
		}
	case r.Model != nil:
		if s := r.Model.Summary(); s != nil {
			return s.LjungBox
		}
	}
	return nil
}

// Residuals returns the model residuals.
func (r *Result) Residuals() []float64 {
	if m := r.model(); m != nil {
		return m.Residuals()
	}
	return nil
}
