package holtwinters

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salesforecast/internal/numopt"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// ErrNotFitted is returned by prediction methods before Fit succeeds.
var ErrNotFitted = errors.New("holt-winters: model not fitted")

// Params are the smoothing parameters, each in (0, 1).
type Params struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Model is an additive-trend, additive-season Holt-Winters model.
type Model struct {
	Period int
	Params

	// Final states after the last training observation. Seasonals[j] applies
	// to the (j+1)-th step ahead, modulo Period.
	Level     float64
	Trend     float64
	Seasonals []float64

	SSE    float64
	Sigma2 float64
	IC     stats.InformationCriteria
	NObs   int

	residuals []float64
}

// New creates an unfitted model with the given seasonal period. A period of
// zero or less is taken from the series at fit time.
func New(period int) *Model {
	return &Model{Period: period}
}

type state struct {
	level, trend float64
	seasonals    []float64
}

// Fit estimates the smoothing parameters on series. Fewer than two full
// seasons yields a *timeseries.InsufficientHistoryError.
func (m *Model) Fit(series *timeseries.Series) error {
	period := m.Period
	if period <= 0 {
		period = series.Period()
	}
	if period < 2 {
		return fmt.Errorf("holt-winters: seasonal period must be at least 2, got %d", period)
	}
	if err := timeseries.RequireHistory("holt-winters", 2*period, series.Len()); err != nil {
		return err
	}

	y := series.Values
	init := initialState(y, period)

	objective := func(x []float64) float64 {
		sse, _, _ := smooth(y, period, toParams(x), init)
		return sse
	}
	x0 := []float64{numopt.Logit(0.3), numopt.Logit(0.1), numopt.Logit(0.1)}
	best, _ := numopt.Minimize(objective, x0, 0)

	params := toParams(best)
	sse, fitted, final := smooth(y, period, params, init)

	m.Period = period
	m.Params = params
	m.Level = final.level
	m.Trend = final.trend
	m.Seasonals = final.seasonals
	m.SSE = sse
	m.NObs = len(y) - period
	m.Sigma2 = sse / float64(m.NObs)
	// three smoothing parameters plus the innovation variance
	m.IC = stats.CalculateIC(stats.GaussianLogLik(sse, m.NObs), m.NObs, 4)

	m.residuals = make([]float64, len(fitted))
	for i, f := range fitted {
		m.residuals[i] = y[period+i] - f
	}
	return nil
}

func toParams(x []float64) Params {
	return Params{
		Alpha: numopt.Logistic(x[0]),
		Beta:  numopt.Logistic(x[1]),
		Gamma: numopt.Logistic(x[2]),
	}
}

// initialState derives the states at the end of the first season from the
// first two seasons: the level is centred on the first season mean and the
// seasonal indices are deviations from the fitted line.
func initialState(y []float64, period int) state {
	var first, second float64
	for i := 0; i < period; i++ {
		first += y[i]
		second += y[period+i]
	}
	mp := float64(period)
	first /= mp
	second /= mp
	trend := (second - first) / mp

	mid := (mp - 1) / 2
	seasonals := make([]float64, period)
	var sum float64
	for i := range seasonals {
		seasonals[i] = y[i] - (first + (float64(i)-mid)*trend)
		sum += seasonals[i]
	}
	for i := range seasonals {
		seasonals[i] -= sum / mp
	}

	return state{
		level:     first + mid*trend,
		trend:     trend,
		seasonals: seasonals,
	}
}

// smooth runs the recursions from observation period onward and returns the
// one-step SSE, the one-step fitted values and the final state with its
// seasonal indices rotated to start at the next period.
func smooth(y []float64, period int, p Params, init state) (float64, []float64, state) {
	level, trend := init.level, init.trend
	s := make([]float64, period)
	copy(s, init.seasonals)

	n := len(y)
	fitted := make([]float64, 0, n-period)
	var sse float64
	for t := period; t < n; t++ {
		idx := t % period
		f := level + trend + s[idx]
		fitted = append(fitted, f)
		e := y[t] - f
		sse += e * e

		prev := level
		level = p.Alpha*(y[t]-s[idx]) + (1-p.Alpha)*(level+trend)
		trend = p.Beta*(level-prev) + (1-p.Beta)*trend
		s[idx] = p.Gamma*(y[t]-level) + (1-p.Gamma)*s[idx]
	}

	rotated := make([]float64, period)
	for j := range rotated {
		rotated[j] = s[(n+j)%period]
	}
	return sse, fitted, state{level: level, trend: trend, seasonals: rotated}
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool {
	return m.Seasonals != nil
}

// String returns the model specification.
func (m *Model) String() string {
	return fmt.Sprintf("HoltWinters(additive, m=%d)", m.Period)
}

// Predict generates point forecasts.
func (m *Model) Predict(steps int) ([]float64, error) {
	point, _, _, err := m.PredictWithInterval(steps, 0.95)
	return point, err
}

// PredictWithInterval generates forecasts with prediction intervals. The
// h-step variance is σ²(1 + Σ_{j<h} c_j²) with c_j = α(1 + jβ) + γ(1−α)
// at seasonal lags.
func (m *Model) PredictWithInterval(steps int, confidence float64) (point, lower, upper []float64, err error) {
	if !m.Fitted() {
		return nil, nil, nil, ErrNotFitted
	}
	if steps <= 0 {
		return nil, nil, nil, fmt.Errorf("steps must be positive, got %d", steps)
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)

	point = make([]float64, steps)
	lower = make([]float64, steps)
	upper = make([]float64, steps)

	var cum float64
	for h := 1; h <= steps; h++ {
		point[h-1] = m.Level + float64(h)*m.Trend + m.Seasonals[(h-1)%m.Period]

		if h > 1 {
			j := h - 1
			c := m.Alpha * (1 + float64(j)*m.Beta)
			if j%m.Period == 0 {
				c += m.Gamma * (1 - m.Alpha)
			}
			cum += c * c
		}
		se := math.Sqrt(m.Sigma2 * (1 + cum))
		lower[h-1] = point[h-1] - z*se
		upper[h-1] = point[h-1] + z*se
	}
	return point, lower, upper, nil
}

// Residuals returns the one-step-ahead errors from the second season on.
func (m *Model) Residuals() []float64 {
	if !m.Fitted() {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}
