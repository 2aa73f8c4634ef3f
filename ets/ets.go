package ets

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salesforecast/internal/numopt"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

var (
	// ErrNotFitted is returned by prediction methods before Fit succeeds.
	ErrNotFitted = errors.New("ets: model not fitted")
	// ErrNoModel is returned when no candidate could be fitted.
	ErrNoModel = errors.New("ets: no candidate model could be fitted")
	// ErrInvalidSpec is returned for excluded component combinations.
	ErrInvalidSpec = errors.New("ets: invalid component combination")
)

// Component is the form of one ETS component.
type Component byte

const (
	None           Component = 'N'
	Additive       Component = 'A'
	Multiplicative Component = 'M'
)

func (c Component) String() string {
	return string(c)
}

// Spec identifies an ETS model by its error, trend and season forms.
type Spec struct {
	Error  Component `json:"error"`
	Trend  Component `json:"trend"`
	Season Component `json:"season"`
}

func (s Spec) String() string {
	return fmt.Sprintf("ETS(%c,%c,%c)", s.Error, s.Trend, s.Season)
}

// Multiplicative reports whether any component is multiplicative.
func (s Spec) Multiplicative() bool {
	return s.Error == Multiplicative || s.Trend == Multiplicative || s.Season == Multiplicative
}

// Validate rejects additive error with multiplicative season.
func (s Spec) Validate() error {
	if s.Error != Additive && s.Error != Multiplicative {
		return fmt.Errorf("%w: error must be A or M in %s", ErrInvalidSpec, s)
	}
	for _, c := range []Component{s.Trend, s.Season} {
		if c != None && c != Additive && c != Multiplicative {
			return fmt.Errorf("%w: unknown component %q in %s", ErrInvalidSpec, c, s)
		}
	}
	if s.Error == Additive && s.Season == Multiplicative {
		return fmt.Errorf("%w: %s is numerically unstable", ErrInvalidSpec, s)
	}
	return nil
}

// Params are the smoothing parameters. Beta is at most Alpha and Gamma at
// most 1-Alpha.
type Params struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Model is a fitted exponential smoothing state-space model.
type Model struct {
	Spec   Spec
	Period int
	Params

	Level     float64
	Trend     float64
	Seasonals []float64

	Sigma2 float64
	IC     stats.InformationCriteria
	NObs   int

	residuals []float64
}

// New creates an unfitted model of the given form. A period of zero or less
// is taken from the series at fit time.
func New(spec Spec, period int) *Model {
	return &Model{Spec: spec, Period: period}
}

type state struct {
	level, trend float64
	seasonals    []float64
}

func (m *Model) seasonal() bool {
	return m.Spec.Season != None
}

// Fit estimates the smoothing parameters by maximum likelihood. Seasonal
// specs need two full seasons; multiplicative specs need strictly positive
// data.
func (m *Model) Fit(series *timeseries.Series) error {
	if err := m.Spec.Validate(); err != nil {
		return err
	}
	period := m.Period
	if period <= 0 {
		period = series.Period()
	}
	if !m.seasonal() {
		period = 1
	}
	m.Period = period

	y := series.Values
	need := 4
	if m.seasonal() {
		if period < 2 {
			return fmt.Errorf("%s: seasonal period must be at least 2, got %d", m.Spec, period)
		}
		need = 2 * period
	}
	if err := timeseries.RequireHistory(m.Spec.String(), need, len(y)); err != nil {
		return err
	}
	if m.Spec.Multiplicative() && !series.AllPositive() {
		return fmt.Errorf("%s: multiplicative components need strictly positive data", m.Spec)
	}

	init := m.initialState(y)
	nParams := 1
	if m.Spec.Trend != None {
		nParams++
	}
	if m.seasonal() {
		nParams++
	}

	objective := func(x []float64) float64 {
		ll, _, _, ok := m.filter(y, m.toParams(x), init)
		if !ok {
			return numopt.Penalty
		}
		return -ll
	}
	x0 := []float64{numopt.Logit(0.3), numopt.Logit(0.3), numopt.Logit(0.1)}[:nParams]
	best, _ := numopt.Minimize(objective, x0, 0)

	params := m.toParams(best)
	ll, residuals, final, ok := m.filter(y, params, init)
	if !ok || math.IsInf(ll, 0) || math.IsNaN(ll) {
		return fmt.Errorf("%s: likelihood is not finite", m.Spec)
	}

	m.Params = params
	m.Level = final.level
	m.Trend = final.trend
	m.Seasonals = final.seasonals
	m.NObs = len(y)
	m.residuals = residuals
	m.Sigma2 = floats.Dot(residuals, residuals) / float64(len(residuals))

	// smoothing parameters, initial level and trend, free seasonal indices,
	// innovation variance
	k := nParams + 1 + 1
	if m.Spec.Trend != None {
		k++
	}
	if m.seasonal() {
		k += period - 1
	}
	m.IC = stats.CalculateIC(ll, m.NObs, k)
	return nil
}

func (m *Model) toParams(x []float64) Params {
	p := Params{Alpha: numopt.Logistic(x[0])}
	i := 1
	if m.Spec.Trend != None {
		p.Beta = p.Alpha * numopt.Logistic(x[i])
		i++
	}
	if m.seasonal() {
		p.Gamma = (1 - p.Alpha) * numopt.Logistic(x[i])
	}
	return p
}

// initialState is the state before the first observation, derived from a
// line through the first two season means.
func (m *Model) initialState(y []float64) state {
	period := m.Period
	window := period
	if !m.seasonal() {
		window = min(len(y)/2, 6)
	}

	var first, second float64
	for i := 0; i < window; i++ {
		first += y[i]
		second += y[window+i]
	}
	w := float64(window)
	first /= w
	second /= w
	slope := (second - first) / w
	mid := (w - 1) / 2

	st := state{level: first - (mid+1)*slope}
	switch m.Spec.Trend {
	case Additive:
		st.trend = slope
	case Multiplicative:
		st.trend = math.Pow(second/first, 1/w)
		st.level = first / math.Pow(st.trend, mid+1)
	default:
		st.level = first
	}

	if !m.seasonal() {
		return st
	}
	st.seasonals = make([]float64, period)
	var sum float64
	for i := range st.seasonals {
		line := first + (float64(i)-mid)*slope
		if m.Spec.Season == Multiplicative {
			st.seasonals[i] = y[i] / line
		} else {
			st.seasonals[i] = y[i] - line
		}
		sum += st.seasonals[i]
	}
	mean := sum / float64(period)
	for i := range st.seasonals {
		if m.Spec.Season == Multiplicative {
			st.seasonals[i] /= mean
		} else {
			st.seasonals[i] -= mean
		}
	}
	return st
}

// step returns the one-step forecast and the trend-combined level.
func (m *Model) step(st *state, idx int) (mu, base float64) {
	switch m.Spec.Trend {
	case Additive:
		base = st.level + st.trend
	case Multiplicative:
		base = st.level * st.trend
	default:
		base = st.level
	}
	switch m.Spec.Season {
	case Additive:
		mu = base + st.seasonals[idx]
	case Multiplicative:
		mu = base * st.seasonals[idx]
	default:
		mu = base
	}
	return mu, base
}

// update applies the state equations for raw error d = y - mu. Error type
// only enters the likelihood.
func (m *Model) update(st *state, idx int, d, base float64, p Params) {
	s := 0.0
	if m.seasonal() {
		s = st.seasonals[idx]
	}
	prev := st.level

	switch m.Spec.Season {
	case Multiplicative:
		st.level = base + p.Alpha*d/s
	default:
		st.level = base + p.Alpha*d
	}

	switch m.Spec.Trend {
	case Additive:
		if m.Spec.Season == Multiplicative {
			st.trend += p.Beta * d / s
		} else {
			st.trend += p.Beta * d
		}
	case Multiplicative:
		if m.Spec.Season == Multiplicative {
			st.trend += p.Beta * d / (s * prev)
		} else {
			st.trend += p.Beta * d / prev
		}
	}

	switch m.Spec.Season {
	case Additive:
		st.seasonals[idx] = s + p.Gamma*d
	case Multiplicative:
		st.seasonals[idx] = s + p.Gamma*d/base
	}
}

// filter runs the model over y and returns the log-likelihood, the
// innovations (relative for multiplicative error) and the final state with
// seasonal indices rotated to start at the next period.
func (m *Model) filter(y []float64, p Params, init state) (float64, []float64, state, bool) {
	st := state{level: init.level, trend: init.trend}
	if m.seasonal() {
		st.seasonals = make([]float64, m.Period)
		copy(st.seasonals, init.seasonals)
	}

	innovations := make([]float64, len(y))
	var sse, logScale float64
	for t, obs := range y {
		idx := 0
		if m.seasonal() {
			idx = t % m.Period
		}
		mu, base := m.step(&st, idx)
		if math.IsNaN(mu) || math.IsInf(mu, 0) {
			return math.Inf(-1), nil, st, false
		}
		d := obs - mu
		e := d
		if m.Spec.Error == Multiplicative {
			if mu <= 0 {
				return math.Inf(-1), nil, st, false
			}
			e = d / mu
			logScale += math.Log(mu)
		}
		innovations[t] = e
		sse += e * e
		m.update(&st, idx, d, base, p)
		if m.Spec.Trend == Multiplicative && st.trend <= 0 {
			return math.Inf(-1), nil, st, false
		}
	}

	if m.seasonal() {
		rotated := make([]float64, m.Period)
		for j := range rotated {
			rotated[j] = st.seasonals[(len(y)+j)%m.Period]
		}
		st.seasonals = rotated
	}
	return stats.GaussianLogLik(sse, len(y)) - logScale, innovations, st, true
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool {
	return m.residuals != nil
}

// String returns the model specification, e.g. "ETS(A,A,A)".
func (m *Model) String() string {
	return m.Spec.String()
}

// Predict generates point forecasts.
func (m *Model) Predict(steps int) ([]float64, error) {
	point, _, _, err := m.PredictWithInterval(steps, 0.95)
	return point, err
}

// PredictWithInterval generates forecasts with prediction intervals. Point
// forecasts iterate the state equations with zero error. The h-step variance
// is σ²(1 + Σ_{j<h} c_j²) with c_j = α + jβ + γ at seasonal lags, scaled by
// the point forecast for multiplicative error.
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

	st := state{level: m.Level, trend: m.Trend}
	if m.seasonal() {
		st.seasonals = make([]float64, m.Period)
		copy(st.seasonals, m.Seasonals)
	}

	point = make([]float64, steps)
	lower = make([]float64, steps)
	upper = make([]float64, steps)

	var cum float64
	for h := 1; h <= steps; h++ {
		idx := 0
		if m.seasonal() {
			idx = (h - 1) % m.Period
		}
		mu, base := m.step(&st, idx)
		point[h-1] = mu
		m.update(&st, idx, 0, base, m.Params)

		if h > 1 {
			j := h - 1
			c := m.Alpha + float64(j)*m.Beta
			if m.seasonal() && j%m.Period == 0 {
				c += m.Gamma
			}
			cum += c * c
		}
		se := math.Sqrt(m.Sigma2 * (1 + cum))
		if m.Spec.Error == Multiplicative {
			se *= math.Abs(mu)
		}
		lower[h-1] = mu - z*se
		upper[h-1] = mu + z*se
	}
	return point, lower, upper, nil
}

// Residuals returns the innovations; relative errors for multiplicative
// error models.
func (m *Model) Residuals() []float64 {
	if !m.Fitted() {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// Config controls automatic model selection.
type Config struct {
	Period int
	// AllowMultiplicative enables M components; they are still skipped for
	// data that is not strictly positive.
	AllowMultiplicative bool
	// Seasonal enables seasonal candidates.
	Seasonal bool
}

// DefaultConfig returns the configuration used for monthly sales series.
func DefaultConfig() Config {
	return Config{
		Period:              timeseries.MonthlyFrequency,
		AllowMultiplicative: true,
		Seasonal:            true,
	}
}

// Candidates lists the specs considered for series under config.
func Candidates(series *timeseries.Series, config Config) []Spec {
	forms := []Component{None, Additive}
	errs := []Component{Additive}
	if config.AllowMultiplicative && series.AllPositive() {
		forms = append(forms, Multiplicative)
		errs = append(errs, Multiplicative)
	}
	seasons := []Component{None}
	if config.Seasonal {
		seasons = forms
	}

	var out []Spec
	for _, e := range errs {
		for _, tr := range forms {
			for _, se := range seasons {
				spec := Spec{Error: e, Trend: tr, Season: se}
				if spec.Validate() == nil {
					out = append(out, spec)
				}
			}
		}
	}
	return out
}

// Auto fits every candidate spec and returns the one with the lowest AICc.
// A seasonal configuration requires two full seasons; the context is checked
// between candidates.
func Auto(ctx context.Context, series *timeseries.Series, config Config) (*Model, error) {
	period := config.Period
	if period <= 0 {
		period = series.Period()
	}
	if config.Seasonal {
		if err := timeseries.RequireHistory("ets", 2*period, series.Len()); err != nil {
			return nil, err
		}
	}

	var (
		best    *Model
		lastErr error
	)
	for _, spec := range Candidates(series, config) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := New(spec, period)
		if err := model.Fit(series); err != nil {
			lastErr = err
			continue
		}
		if math.IsInf(model.IC.AICc, 0) || math.IsNaN(model.IC.AICc) {
			continue
		}
		if best == nil || model.IC.AICc < best.IC.AICc {
			best = model
		}
	}

	if best == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoModel, lastErr)
		}
		return nil, ErrNoModel
	}
	return best, nil
}
